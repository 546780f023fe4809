// Package transport contains the mail transports the send pipeline delivers
// through.
//
// Each transport lives in its own file:
//   - smtp.go:   SMTP relay with a bounded connection pool
//   - ses.go:    AWS SES v2
//   - resend.go: Resend HTTP API
//
// New picks one from configuration; the pipeline only sees sending.Transport.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/service/sending"
)

var (
	ErrTransportNotConfigured = errors.New("transport not configured")
	ErrUnknownTransport       = errors.New("unknown transport type")
)

// Gateway is a sending.Transport owned by the process: constructed once at
// startup and closed on shutdown.
type Gateway interface {
	sending.Transport
	Name() domain.TransportType
	Close() error
}

// New builds the transport selected by cfg.Transport.Type.
func New(ctx context.Context, cfg *config.Config) (Gateway, error) {
	switch domain.TransportType(strings.ToLower(cfg.Transport.Type)) {
	case domain.TransportSMTP:
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("%w: smtp host is empty", ErrTransportNotConfigured)
		}
		return NewSMTPTransport(cfg.SMTP), nil
	case domain.TransportSES:
		t, err := NewSESTransport(ctx, cfg.SES)
		if err != nil {
			return nil, err
		}
		return t, nil
	case domain.TransportResend:
		t, err := NewResendTransport(cfg.Resend)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport.Type)
	}
}
