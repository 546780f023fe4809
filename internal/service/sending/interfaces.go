// Package sending is the mail-merge send pipeline.
//
// A batch is admitted by Validate, dispatched recipient by recipient by a
// Dispatcher (render, send through a Transport, record the outcome, pause),
// and summarized by Aggregate. Pipeline ties the three together.
package sending

import (
	"context"

	"github.com/ignite/blast-sender/internal/domain"
)

// Transport delivers one rendered message. Implementations must be safe for
// concurrent use, since independent batches share a single transport.
//
// A nil error means the message was accepted; messageID may be empty when the
// transport does not assign one. Errors are treated uniformly by the pipeline:
// only their text is recorded.
type Transport interface {
	Send(ctx context.Context, env *domain.Envelope) (messageID string, err error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, env *domain.Envelope) (string, error)

// Send calls f(ctx, env).
func (f TransportFunc) Send(ctx context.Context, env *domain.Envelope) (string, error) {
	return f(ctx, env)
}
