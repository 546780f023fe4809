package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"4ef9a417-02e9-4d39-ad75-9611e0fcc33c"}`))
	}))
	defer srv.Close()

	tr, err := NewResendTransport(config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL})
	require.NoError(t, err)

	id, err := tr.Send(context.Background(), newEnvelope("ann@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "4ef9a417-02e9-4d39-ad75-9611e0fcc33c", id)

	assert.Equal(t, `"Acme News" <news@acme.test>`, got["from"])
	assert.Equal(t, []any{"ann@example.com"}, got["to"])
	assert.Equal(t, "Spring update", got["subject"])
	assert.Equal(t, "<p>Hi Ann</p>", got["html"])
}

func TestResendSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field."}`))
	}))
	defer srv.Close()

	tr, err := NewResendTransport(config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), newEnvelope("bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend")
}

func TestResendRequiresAPIKey(t *testing.T) {
	_, err := NewResendTransport(config.ResendConfig{})
	assert.ErrorIs(t, err, ErrTransportNotConfigured)
}

func TestResendRetriesRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"statusCode":429,"name":"rate_limit_exceeded","message":"Too many requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"retried"}`))
	}))
	defer srv.Close()

	tr, err := NewResendTransport(config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL, MaxRetries: 1})
	require.NoError(t, err)

	id, err := tr.Send(context.Background(), newEnvelope("ann@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "retried", id)
	assert.Equal(t, int32(2), hits.Load())
}
