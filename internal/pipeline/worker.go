package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/progress"
)

// Merger runs merge jobs; *document.Merger satisfies it.
type Merger interface {
	Merge(ctx context.Context, opts document.MergeOptions, sink progress.Sink) (document.Result, error)
}

// Extractor runs extraction jobs; *document.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, opts document.ExtractOptions, sink progress.Sink) (document.Result, error)
}

// Worker processes one job at a time.
type Worker struct {
	merger    Merger
	extractor Extractor
	log       *slog.Logger
}

func NewWorker(merger Merger, extractor Extractor, log *slog.Logger) *Worker {
	return &Worker{merger: merger, extractor: extractor, log: log}
}

// Process runs the job's operation and records its outcome.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !job.start(cancel) {
		log.Info("job cancelled before start")
		return
	}
	log.Info("job started")

	res, err := w.run(jobCtx, job)
	switch {
	case errors.Is(err, document.ErrCancelled), errors.Is(err, context.Canceled):
		log.Info("job cancelled")
		job.SetStatus(StatusCancelled)
	case err != nil:
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed)
	default:
		if res.PdfAFailed {
			log.Warn("pdf/a conversion failed, delivered unconverted files")
			job.AddError("pdf/a conversion failed; unconverted files delivered")
		}
		job.complete(res)
		log.Info("job completed", "outputs", len(res.Outputs))
	}
}

func (w *Worker) run(ctx context.Context, job *Job) (document.Result, error) {
	switch job.Kind {
	case KindMerge:
		if w.merger == nil || job.merge == nil {
			return document.Result{}, errors.New("merge is not configured")
		}
		return w.merger.Merge(ctx, *job.merge, job.Sink())
	case KindExtract:
		if w.extractor == nil || job.extract == nil {
			return document.Result{}, errors.New("extract is not configured")
		}
		return w.extractor.Extract(ctx, *job.extract, job.Sink())
	default:
		return document.Result{}, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
