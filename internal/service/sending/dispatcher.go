package sending

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/logger"
)

// DefaultTestModeLimit caps the number of attempts in test mode.
const DefaultTestModeLimit = 5

// Dispatcher runs the throttled, strictly sequential send loop for a batch.
// A Dispatcher holds no per-batch state and may serve concurrent batches.
type Dispatcher struct {
	transport     Transport
	delay         time.Duration
	testModeLimit int
	sleep         func(ctx context.Context, d time.Duration) error
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDelay sets the pause after every attempt. Zero disables throttling.
func WithDelay(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.delay = d
		}
	}
}

// WithTestModeLimit overrides the test-mode attempt cap.
func WithTestModeLimit(n int) DispatcherOption {
	return func(disp *Dispatcher) {
		if n > 0 {
			disp.testModeLimit = n
		}
	}
}

// NewDispatcher creates a dispatcher that delivers through t.
func NewDispatcher(t Transport, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport:     t,
		testModeLimit: DefaultTestModeLimit,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the configured inter-message pause.
func (d *Dispatcher) Delay() time.Duration { return d.delay }

// Dispatch attempts every recipient of an admitted request in input order and
// returns one outcome per attempt. Delivery failures are recorded, never
// returned. The only error is ErrPipelineFault, in which case the outcomes
// recorded so far are discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, req *domain.SendRequest) (outcomes []domain.DeliveryOutcome, err error) {
	batchID := uuid.NewString()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch aborted",
				"batch_id", batchID,
				"attempted", len(outcomes),
				"panic", fmt.Sprintf("%v", r),
			)
			outcomes = nil
			err = newPipelineFault(r)
		}
	}()

	from := FormatSender(req.FromName, req.FromEmail)
	outcomes = make([]domain.DeliveryOutcome, 0, len(req.Recipients))

	logger.Info("dispatch started",
		"batch_id", batchID,
		"recipients", len(req.Recipients),
		"test_mode", req.TestMode,
		"delay", d.delay,
	)

	for _, rcpt := range req.Recipients {
		// Cap on recorded outcomes, not on index.
		if req.TestMode && len(outcomes) >= d.testModeLimit {
			break
		}

		env := &domain.Envelope{
			To:      rcpt.Email,
			From:    from,
			Subject: req.Subject,
			HTML:    Render(req.HTMLTemplate, rcpt.Name),
		}

		id, sendErr := d.transport.Send(ctx, env)
		if sendErr != nil {
			logger.Warn("delivery failed", "batch_id", batchID, "email", rcpt.Email, "error", sendErr)
			outcomes = append(outcomes, domain.DeliveryOutcome{
				To:     rcpt.Email,
				Status: domain.StatusFailed,
				Error:  sendErr.Error(),
			})
		} else {
			logger.Debug("delivered", "batch_id", batchID, "email", rcpt.Email, "message_id", id)
			outcomes = append(outcomes, domain.DeliveryOutcome{
				To:        rcpt.Email,
				Status:    domain.StatusSent,
				MessageID: id,
			})
		}

		if d.delay > 0 {
			if err := d.sleep(ctx, d.delay); err != nil {
				logger.Error("dispatch interrupted", "batch_id", batchID, "attempted", len(outcomes), "error", err)
				return nil, newPipelineFault(err)
			}
		}
	}

	logger.Info("dispatch finished",
		"batch_id", batchID,
		"attempted", len(outcomes),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return outcomes, nil
}

// FormatSender builds the From header value: `"Name" <email>` when a display
// name is given, the bare address otherwise.
func FormatSender(name, email string) string {
	if name == "" {
		return email
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
	return fmt.Sprintf("\"%s\" <%s>", escaped, email)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
