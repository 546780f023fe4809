package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/ignite/blast-sender/internal/pkg/httputil"
	"github.com/ignite/blast-sender/internal/pkg/logger"
)

// Middleware rejects requests over budget with 429 and a Retry-After header.
// Limiter failures let the request through.
func Middleware(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			d, err := l.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("Rate limit check failed", "ip", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httputil.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
