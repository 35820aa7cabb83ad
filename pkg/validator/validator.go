package validator

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmpty          = errors.New("value is empty")
	ErrInvalidAddress = errors.New("invalid hex address")
	ErrZeroAddress    = errors.New("zero address")
	ErrInvalidURL     = errors.New("invalid endpoint url")
)

// Address parses a 0x-prefixed contract or account address.
func Address(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, ErrEmpty
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, ErrZeroAddress
	}
	return addr, nil
}

// Endpoint checks that s is an absolute URL with one of the allowed schemes.
func Endpoint(s string, schemes ...string) error {
	if s == "" {
		return ErrEmpty
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidURL, s)
	}
	if len(schemes) == 0 {
		return nil
	}
	for _, sc := range schemes {
		if u.Scheme == sc {
			return nil
		}
	}
	return fmt.Errorf("%w: scheme %q not in %v", ErrInvalidURL, u.Scheme, schemes)
}
