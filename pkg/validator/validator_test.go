package validator

import (
	"errors"
	"testing"
)

func TestAddressValid(t *testing.T) {
	addr, err := Address("0x00000000000000000000000000000000000000aA")
	if err != nil {
		t.Fatalf("expected valid address, got error: %v", err)
	}
	if addr.Hex() != "0x00000000000000000000000000000000000000AA" {
		t.Errorf("unexpected checksum address %s", addr.Hex())
	}
}

func TestAddressRejectsGarbage(t *testing.T) {
	if _, err := Address("not-an-address"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := Address(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := Address("0x0000000000000000000000000000000000000000"); !errors.Is(err, ErrZeroAddress) {
		t.Errorf("expected ErrZeroAddress, got %v", err)
	}
}

func TestEndpointSchemes(t *testing.T) {
	if err := Endpoint("http://localhost:8545", "http", "https"); err != nil {
		t.Errorf("expected valid endpoint, got %v", err)
	}
	if err := Endpoint("ws://localhost:8546", "http", "https"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL for ws scheme, got %v", err)
	}
	if err := Endpoint("localhost"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL for missing host, got %v", err)
	}
}
