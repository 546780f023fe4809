package api

import (
	"net/http"

	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/httputil"
	"github.com/ignite/blast-sender/internal/service/sending"
)

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	HTMLTemplate string             `json:"htmlTemplate"`
	Recipients   []domain.Recipient `json:"recipients"`
}

// PreviewResponse lists rendered bodies for the head of the recipient list.
type PreviewResponse struct {
	Total     int              `json:"total"`
	Previewed int              `json:"previewed"`
	Previews  []domain.Preview `json:"previews"`
}

// Preview renders the template for the first recipients without sending.
//
//	POST /api/preview
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !httputil.Decode(w, r, &req, h.bodyLimit) {
		return
	}
	if req.HTMLTemplate == "" {
		httputil.BadRequest(w, "htmlTemplate is required")
		return
	}
	if len(req.Recipients) == 0 {
		httputil.BadRequest(w, "recipients array required")
		return
	}

	previews := sending.Preview(req.HTMLTemplate, req.Recipients, h.previewLimit)
	httputil.OK(w, PreviewResponse{
		Total:     len(req.Recipients),
		Previewed: len(previews),
		Previews:  previews,
	})
}
