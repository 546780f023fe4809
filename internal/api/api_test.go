package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/ratelimit"
	"github.com/ignite/blast-sender/internal/service/sending"
	"github.com/stretchr/testify/require"
)

// recordingTransport accepts everything except addresses in fail and
// panics on addresses in panicOn.
type recordingTransport struct {
	mu        sync.Mutex
	envelopes []domain.Envelope
	ctxErrs   []error
	fail      map[string]bool
	panicOn   map[string]bool
}

func (rt *recordingTransport) Send(ctx context.Context, env *domain.Envelope) (string, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.panicOn[env.To] {
		panic("transport blew up")
	}
	rt.envelopes = append(rt.envelopes, *env)
	rt.ctxErrs = append(rt.ctxErrs, ctx.Err())
	if rt.fail[env.To] {
		return "", errors.New("550 mailbox unavailable")
	}
	return fmt.Sprintf("msg-%d", len(rt.envelopes)), nil
}

type recordingArchiver struct {
	names []string
	data  [][]byte
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, filename, _ string, data []byte) (string, error) {
	a.names = append(a.names, filename)
	a.data = append(a.data, data)
	if a.err != nil {
		return "", a.err
	}
	return "uploads/id/" + filename, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{RetryAfter: 30 * time.Second}, nil
}

func (denyLimiter) Close() error { return nil }

type testEnv struct {
	transport *recordingTransport
	archiver  *recordingArchiver
	server    *Server
	handler   http.Handler
}

func setupTestServer(t *testing.T, limiter ratelimit.Limiter, mods ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Sending.MaxPerBatch = 3
	cfg.Sending.PreviewLimit = 2
	cfg.Server.BodyLimitBytes = 4 << 10
	for _, mod := range mods {
		mod(cfg)
	}

	tr := &recordingTransport{fail: map[string]bool{}, panicOn: map[string]bool{}}
	ar := &recordingArchiver{}
	pipeline := sending.NewPipeline(sending.NewDispatcher(tr), cfg.Sending.MaxPerBatch)
	h := NewHandlers(pipeline, ar, domain.TransportSMTP, cfg)

	srv := NewServer(cfg.Server, h, limiter)
	return &testEnv{
		transport: tr,
		archiver:  ar,
		server:    srv,
		handler:   srv.Handler(),
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sendBody(emails ...string) map[string]any {
	recipients := make([]map[string]string, 0, len(emails))
	for i, e := range emails {
		recipients = append(recipients, map[string]string{"email": e, "name": fmt.Sprintf("User %d", i+1)})
	}
	return map[string]any{
		"subject":      "Spring update",
		"fromName":     "Acme News",
		"fromEmail":    "news@acme.test",
		"htmlTemplate": "<p>Hi {{ name }}</p>",
		"recipients":   recipients,
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
