package sending

import (
	"context"

	"github.com/ignite/blast-sender/internal/domain"
)

// DefaultMaxPerBatch is the admission cap used when none is configured.
const DefaultMaxPerBatch = 200

// Pipeline admits, dispatches and aggregates a batch.
type Pipeline struct {
	dispatcher  *Dispatcher
	maxPerBatch int
}

// NewPipeline creates a pipeline around d. A non-positive maxPerBatch falls
// back to DefaultMaxPerBatch.
func NewPipeline(d *Dispatcher, maxPerBatch int) *Pipeline {
	if maxPerBatch <= 0 {
		maxPerBatch = DefaultMaxPerBatch
	}
	return &Pipeline{dispatcher: d, maxPerBatch: maxPerBatch}
}

// MaxPerBatch returns the admission cap.
func (p *Pipeline) MaxPerBatch() int { return p.maxPerBatch }

// Send runs the whole pipeline. It returns a *ValidationError when the batch
// is not admitted (nothing was sent) and ErrPipelineFault when the loop broke
// down; otherwise the report, however many deliveries failed.
func (p *Pipeline) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendReport, error) {
	if err := Validate(req, p.maxPerBatch); err != nil {
		return nil, err
	}

	outcomes, err := p.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return Aggregate(req, outcomes), nil
}
