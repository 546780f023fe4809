package sending

import (
	"fmt"

	"github.com/ignite/blast-sender/internal/domain"
)

// Validate admits or rejects a batch before any message is sent. Checks run
// in order and stop at the first failure. The request is not modified.
func Validate(req *domain.SendRequest, maxPerBatch int) error {
	if req.Subject == "" || req.FromEmail == "" || req.HTMLTemplate == "" {
		return &ValidationError{Err: ErrMissingField, Message: "subject, fromEmail, htmlTemplate required"}
	}
	if len(req.Recipients) == 0 {
		return &ValidationError{Err: ErrEmptyRecipients, Message: "recipients array required"}
	}
	if len(req.Recipients) > maxPerBatch {
		return &ValidationError{
			Err:     ErrBatchTooLarge,
			Message: fmt.Sprintf("Limit %d recipients per batch", maxPerBatch),
			Limit:   maxPerBatch,
		}
	}
	return nil
}
