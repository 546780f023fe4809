package api

import (
	"time"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/service/sending"
	"github.com/ignite/blast-sender/internal/storage"
)

// Handlers contains HTTP handlers for the API
type Handlers struct {
	pipeline     *sending.Pipeline
	archiver     storage.Archiver
	transport    domain.TransportType
	bodyLimit    int64
	uploadLimit  int64
	previewLimit int
	startTime    time.Time
}

// NewHandlers creates the handler set. A nil archiver disables upload
// archiving.
func NewHandlers(pipeline *sending.Pipeline, archiver storage.Archiver, transport domain.TransportType, cfg *config.Config) *Handlers {
	if archiver == nil {
		archiver = storage.NopArchiver{}
	}
	return &Handlers{
		pipeline:     pipeline,
		archiver:     archiver,
		transport:    transport,
		bodyLimit:    cfg.Server.BodyLimitBytes,
		uploadLimit:  cfg.Uploads.MaxBytes,
		previewLimit: cfg.Sending.PreviewLimit,
		startTime:    time.Now(),
	}
}
