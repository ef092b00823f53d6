package recognition

import (
	"context"
	"sync"
	"time"

	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/usage"
)

// Recorder receives the outcome of each recognition call.
type Recorder interface {
	LogSuccess(ctx context.Context, p usage.SuccessParams) usage.WriteResult
	LogError(ctx context.Context, p usage.ErrorParams) usage.WriteResult
}

// usageReporter publishes exactly one ledger entry per call, however many
// attempts the call took.
type usageReporter struct {
	recorder  Recorder
	model     string
	files     int
	startedAt time.Time
	now       func() time.Time
	once      sync.Once
}

func newUsageReporter(rec Recorder, model string, files int, now func() time.Time) *usageReporter {
	return &usageReporter{
		recorder:  rec,
		model:     model,
		files:     files,
		startedAt: now(),
		now:       now,
	}
}

func (r *usageReporter) elapsedMs() int64 {
	return r.now().Sub(r.startedAt).Milliseconds()
}

func (r *usageReporter) publishSuccess(ctx context.Context, u TokenUsage, cost float64) {
	if r == nil || r.recorder == nil {
		return
	}
	r.once.Do(func() {
		res := r.recorder.LogSuccess(context.WithoutCancel(ctx), usage.SuccessParams{
			Model:            r.model,
			FilesProcessed:   r.files,
			PromptTokens:     u.PromptTokens,
			OutputTokens:     u.OutputTokens,
			EstimatedCost:    cost,
			ProcessingTimeMs: r.elapsedMs(),
		})
		r.logWriteFailure(res)
	})
}

func (r *usageReporter) publishFailure(ctx context.Context, err error) {
	if r == nil || r.recorder == nil || err == nil {
		return
	}
	r.once.Do(func() {
		res := r.recorder.LogError(context.WithoutCancel(ctx), usage.ErrorParams{
			Model:            r.model,
			FilesProcessed:   r.files,
			ErrorMessage:     err.Error(),
			ProcessingTimeMs: r.elapsedMs(),
		})
		r.logWriteFailure(res)
	})
}

// trackFailure is deferred by callers with a pointer to their named error.
func (r *usageReporter) trackFailure(ctx context.Context, errPtr *error) {
	if r == nil || errPtr == nil || *errPtr == nil {
		return
	}
	r.publishFailure(ctx, *errPtr)
}

func (r *usageReporter) logWriteFailure(res usage.WriteResult) {
	if err := res.Err(); err != nil {
		log.WithError(err).Debugf("recognition: usage entry for %s not fully persisted", r.model)
	}
}
