package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/httputil"
	"github.com/ignite/blast-sender/internal/pkg/logger"
	"github.com/ignite/blast-sender/internal/recipients"
)

// ErrNoFile is logged when the multipart "file" field is absent.
var ErrNoFile = errors.New("no file uploaded")

const noFileMessage = "No file uploaded"

// multipart parts above this size spill to temp files
const uploadMemory = 8 << 20

// UploadResponse is the recipient list parsed from an uploaded sheet.
type UploadResponse struct {
	Count      int                `json:"count"`
	Recipients []domain.Recipient `json:"recipients"`
}

// Upload parses a CSV or XLSX file into recipients.
//
//	POST /api/upload (multipart field "file")
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploadLimit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit)
	}

	reqID := middleware.GetReqID(r.Context())

	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		logger.Debug("Upload rejected", "request_id", reqID, "error", err)
		httputil.BadRequest(w, noFileMessage)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Debug("Upload rejected", "request_id", reqID, "error", fmt.Errorf("%w: %v", ErrNoFile, err))
		httputil.BadRequest(w, noFileMessage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	key, err := h.archiver.Archive(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		logger.Warn("Upload archive failed", "request_id", reqID, "file", header.Filename, "error", err)
	} else if key != "" {
		logger.Info("Upload archived", "request_id", reqID, "key", key)
	}

	list, err := recipients.Parse(header.Filename, bytes.NewReader(data))
	if err != nil {
		logger.Warn("Upload parse failed", "request_id", reqID, "file", header.Filename, "error", err)
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.OK(w, UploadResponse{Count: len(list), Recipients: list})
}
