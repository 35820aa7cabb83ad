// Package storage persists job outputs to MySQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"blueprint-runner/pkg/logger"
)

const createJobResults = `
	CREATE TABLE IF NOT EXISTS job_results (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		job        VARCHAR(128) NOT NULL,
		output     JSON         NOT NULL,
		created_at DATETIME(6)  NOT NULL,
		INDEX idx_job_results_job (job)
	)`

type MySQLStorage struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func NewMySQLStorage(dsn string, log *zap.SugaredLogger) (*MySQLStorage, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	db := sql.OpenDB(connector)
	// tune pool
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	log = logger.OrNop(log).With("component", "mysql_storage")
	log.Infow("mysql storage initialized", "addr", cfg.Addr, "db", cfg.DBName)
	return &MySQLStorage{db: db, log: log}, nil
}

func (s *MySQLStorage) DB() *sql.DB {
	return s.db
}

func (s *MySQLStorage) Close() error {
	return s.db.Close()
}

// Migrate creates the job_results table when it does not exist.
func (s *MySQLStorage) Migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createJobResults); err != nil {
		return fmt.Errorf("create job_results: %w", err)
	}
	return nil
}

// Store inserts results in one transaction.
func (s *MySQLStorage) Store(ctx context.Context, results []JobResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Errorw("begin transaction failed", "error", err)
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_results (id, job, output, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		s.log.Errorw("prepare statement failed", "error", err)
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Job, string(r.Output), r.CreatedAt); err != nil {
			_ = tx.Rollback()
			s.log.Errorw("insert failed", "result_id", r.ID, "job", r.Job, "error", err)
			return fmt.Errorf("insert failed: %w", err)
		}
		s.log.Debugw("result stored", "result_id", r.ID, "job", r.Job)
	}

	if err := tx.Commit(); err != nil {
		s.log.Errorw("transaction commit failed", "error", err)
		return err
	}
	return nil
}

// Results returns the newest results of job, newest first.
func (s *MySQLStorage) Results(ctx context.Context, job string, limit int) ([]JobResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job, output, created_at FROM job_results
		WHERE job = ? ORDER BY created_at DESC LIMIT ?
	`, job, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobResult
	for rows.Next() {
		var r JobResult
		var output []byte
		if err := rows.Scan(&r.ID, &r.Job, &output, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Output = output
		out = append(out, r)
	}
	return out, rows.Err()
}
