package sending

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField    = errors.New("missing required field")
	ErrEmptyRecipients = errors.New("empty recipients")
	ErrBatchTooLarge   = errors.New("batch too large")
	ErrPipelineFault   = errors.New("send pipeline fault")
)

// ValidationError is an admission failure. Message is the client-facing
// text; Limit is set for ErrBatchTooLarge.
type ValidationError struct {
	Err     error
	Message string
	Limit   int
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

func newPipelineFault(cause any) error {
	if err, ok := cause.(error); ok {
		return fmt.Errorf("%w: %w", ErrPipelineFault, err)
	}
	return fmt.Errorf("%w: %v", ErrPipelineFault, cause)
}
