// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Collaborator errors.
	ErrTicketSource     = errors.New("ticket source request failed")
	ErrCatalogLoad      = errors.New("service catalog load failed")
	ErrClassification   = errors.New("classification failed")
	ErrReportGeneration = errors.New("report generation failed")
	ErrEmailSend        = errors.New("email send failed")

	// Ledger errors.
	ErrDeliveryNotFound = errors.New("delivery record not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind tells the pipeline how far an error reaches.
type Kind int

// Error kinds.
const (
	// KindUnknown is reported for errors that carry no kind.
	KindUnknown Kind = iota
	// KindFatal aborts the run and makes the process exit non-zero.
	KindFatal
	// KindBatch is confined to a single classification batch.
	KindBatch
	// KindStage ends the run early without a non-zero exit.
	KindStage
	// KindValidation is resolved by treating the offending value as absent.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindBatch:
		return "batch"
	case KindStage:
		return "stage"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// PipelineError tags an error with its kind and the operation that produced it.
type PipelineError struct {
	Err  error
	Op   string
	Kind Kind
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with a kind and operation name.
func NewPipelineError(kind Kind, op string, err error) error {
	return &PipelineError{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// Fatal wraps err as a run-aborting error.
func Fatal(op string, err error) error {
	return NewPipelineError(KindFatal, op, err)
}

// Stage wraps err as a stage-scoped error.
func Stage(op string, err error) error {
	return NewPipelineError(KindStage, op, err)
}

// KindOf returns the kind of the outermost PipelineError in err's chain.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err should abort the run with a non-zero exit.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
