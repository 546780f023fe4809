package api

import (
	"net/http"
	"time"

	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/httputil"
)

const healthVersion = "1.0.0"

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status    string               `json:"status"`
	Version   string               `json:"version"`
	Uptime    string               `json:"uptime"`
	Transport domain.TransportType `json:"transport"`
}

// HealthCheck reports that the process is serving.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, HealthStatus{
		Status:    "ok",
		Version:   healthVersion,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Transport: h.transport,
	})
}
