package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/httputil"
	"github.com/ignite/blast-sender/internal/pkg/logger"
	"github.com/ignite/blast-sender/internal/service/sending"
)

// Send runs one batch and answers with its report.
//
//	POST /api/send
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if !httputil.Decode(w, r, &req, h.bodyLimit) {
		return
	}

	// A started batch runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	report, err := h.pipeline.Send(ctx, &req)
	if err != nil {
		var verr *sending.ValidationError
		if errors.As(err, &verr) {
			httputil.BadRequest(w, verr.Message)
			return
		}
		// ErrPipelineFault: the partial ledger is discarded.
		httputil.InternalError(w, err)
		return
	}

	logger.Info("Batch finished",
		"request_id", middleware.GetReqID(r.Context()),
		"requested", report.TotalRequested,
		"attempted", report.TotalAttempted,
		"sent", report.Sent,
		"failed", report.Failed,
		"test_mode", req.TestMode,
	)
	httputil.OK(w, report)
}
