// Package httpretry provides an http.RoundTripper that retries requests the
// server explicitly refused (429, 503) with exponential backoff and jitter.
//
// Network errors and other 5xx responses are returned as-is: for
// non-idempotent calls such as sending an email the server may already have
// acted on the request.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/blast-sender/internal/pkg/logger"
)

// Transport wraps Base with retry logic.
type Transport struct {
	Base       http.RoundTripper
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	sleep func(*http.Request, time.Duration) error
}

// New creates a Transport around base (http.DefaultTransport when nil).
// maxRetries is the number of attempts after the first one.
func New(base http.RoundTripper, maxRetries int) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Transport{
		Base:       base,
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// Client returns an *http.Client using t with the given overall timeout.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// RoundTrip implements http.RoundTripper. On the final attempt the refused
// response is returned so the caller can read the error body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
			}
			req = req.Clone(req.Context())
			req.Body = body
		}

		resp, err := t.Base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if !isRetryableStatus(resp.StatusCode) || attempt >= t.MaxRetries {
			return resp, nil
		}
		if req.Body != nil && req.GetBody == nil {
			return resp, nil
		}

		delay := t.delay(attempt+1, resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		logger.Warn("httpretry: retrying refused request",
			"attempt", attempt+1,
			"max_retries", t.MaxRetries,
			"status", resp.StatusCode,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"wait", delay.String(),
		)

		sleep := t.sleep
		if sleep == nil {
			sleep = sleepRequest
		}
		if err := sleep(req, delay); err != nil {
			return nil, err
		}
	}
}

// delay honours a Retry-After in seconds, otherwise uses full-jitter
// exponential backoff. Both are capped at MaxDelay.
func (t *Transport) delay(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if t.MaxDelay > 0 && d > t.MaxDelay {
			d = t.MaxDelay
		}
		return d
	}

	exp := float64(t.BaseDelay) * math.Pow(2, float64(attempt-1))
	if t.MaxDelay > 0 && exp > float64(t.MaxDelay) {
		exp = float64(t.MaxDelay)
	}
	d := time.Duration(rand.Float64() * exp)
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}

func sleepRequest(req *http.Request, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}
