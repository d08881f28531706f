// Package storage provides the SQLite delivery ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
	ErrZeroTime    = errors.New("timestamp cannot be zero")
	ErrBadFilename = errors.New("invalid artifact filename")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateFilename rejects empty names and names that still carry a directory.
func validateFilename(filename string) error {
	if err := validateString(filename, "filename"); err != nil {
		return err
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: %q contains a directory", ErrBadFilename, filename)
	}
	return nil
}
