package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/httpretry"
	"github.com/ignite/blast-sender/internal/pkg/logger"
	"github.com/resend/resend-go/v3"
)

const resendTimeout = 30 * time.Second

// ResendTransport sends emails via the Resend API.
type ResendTransport struct {
	client *resend.Client
}

// NewResendTransport creates a Resend transport. BaseURL overrides the API
// endpoint (tests, regional proxies).
func NewResendTransport(cfg config.ResendConfig) (*ResendTransport, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: resend api key is empty", ErrTransportNotConfigured)
	}

	client := resend.NewCustomClient(httpretry.New(nil, cfg.MaxRetries).Client(resendTimeout), cfg.APIKey)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendTransport{client: client}, nil
}

// Name implements Gateway.
func (s *ResendTransport) Name() domain.TransportType { return domain.TransportResend }

// Close implements Gateway.
func (s *ResendTransport) Close() error { return nil }

// Send implements sending.Transport.
func (s *ResendTransport) Send(ctx context.Context, env *domain.Envelope) (string, error) {
	req := &resend.SendEmailRequest{
		From:    env.From,
		To:      []string{env.To},
		Subject: env.Subject,
		Html:    env.HTML,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}

	logger.Debug("resend accepted", "to", env.To, "message_id", sent.Id)
	return sent.Id, nil
}
