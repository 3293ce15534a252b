package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload reports a missing field, a field of the wrong type or
	// a field value out of its domain.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInconsistentTotals reports a computed field that does not match the
	// fields it is derived from.
	ErrInconsistentTotals = errors.New("inconsistent totals")
	// ErrEmptyPortfolio reports a portfolio without any ticker.
	ErrEmptyPortfolio = errors.New("empty portfolio")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentTotals, fmt.Sprintf(format, args...))
}

// Error codes carried by error responses.
const (
	CodeMalformedPayload   = "malformed_payload"
	CodeInconsistentTotals = "inconsistent_totals"
	CodeEmptyPortfolio     = "empty_portfolio"
	CodeInternal           = "internal"
)

// Code returns the error code of err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, ErrEmptyPortfolio):
		return CodeEmptyPortfolio
	case errors.Is(err, ErrInconsistentTotals):
		return CodeInconsistentTotals
	}
	return CodeInternal
}

// FromCode rebuilds an error received with code, so that errors.Is keeps
// working across a process boundary.
func FromCode(code, message string) error {
	switch code {
	case CodeMalformedPayload:
		return fmt.Errorf("%w: %s", ErrMalformedPayload, message)
	case CodeEmptyPortfolio:
		return fmt.Errorf("%w: %s", ErrEmptyPortfolio, message)
	case CodeInconsistentTotals:
		return fmt.Errorf("%w: %s", ErrInconsistentTotals, message)
	}
	return errors.New(message)
}
