package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/model"
	"github.com/dgallion1/docatlas/internal/storage"
)

// Worker processes extraction jobs: it reads the upload, runs the
// extraction pipeline, stores the JSON result and records its location.
type Worker struct {
	files    *storage.FileStore
	registry *storage.Registry
	pipeline *extraction.Pipeline
	stats    *Stats
	log      *slog.Logger
}

func NewWorker(files *storage.FileStore, registry *storage.Registry, p *extraction.Pipeline, stats *Stats, log *slog.Logger) *Worker {
	return &Worker{
		files:    files,
		registry: registry,
		pipeline: p,
		stats:    stats,
		log:      log,
	}
}

// Process runs a job to completion. Failures are recorded on the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	if _, err := w.Run(ctx, job); err != nil {
		w.stats.RecordFailure()
	}
}

// Run processes job and returns the extraction result.
func (w *Worker) Run(ctx context.Context, job *Job) (model.Result, error) {
	log := w.log.With("job_id", job.ID, "file_id", job.FileID)

	// Phase 1: Read
	job.SetStatus(StatusReading, "reading")
	rec, err := w.registry.Get(ctx, job.FileID)
	if err != nil {
		log.Error("lookup failed", "error", err)
		job.Fail("reading", err)
		return model.Result{}, err
	}
	data, err := w.files.Read(rec.StoredPath)
	if err != nil {
		log.Error("read upload failed", "error", err)
		job.Fail("reading", err)
		return model.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		job.Fail("reading", err)
		return model.Result{}, err
	}

	// Phase 2: Extract
	job.SetStatus(StatusExtracting, "extracting")
	start := time.Now()
	doc, sections, err := w.pipeline.Extract(data, rec.FileName, rec.ContentType, rec.FileID, job.Options)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.Fail("extracting", err)
		return model.Result{}, err
	}
	elapsed := time.Since(start)
	w.stats.Record(elapsed, len(sections))
	log.Info("extraction complete", "sections", len(sections), "duration_ms", elapsed.Milliseconds())

	if err := ctx.Err(); err != nil {
		job.Fail("extracting", err)
		return model.Result{}, err
	}

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	payload, err := extraction.Marshal(doc, sections)
	if err != nil {
		job.Fail("storing", err)
		return model.Result{}, err
	}
	path := storage.ExtractionPath(rec.FileID)
	if err := w.files.Save(path, payload); err != nil {
		log.Error("store result failed", "error", err)
		job.Fail("storing", err)
		return model.Result{}, err
	}
	if err := w.registry.SetExtractedPath(ctx, rec.FileID, path); err != nil {
		log.Error("registry update failed", "error", err)
		job.Fail("storing", fmt.Errorf("record result: %w", err))
		return model.Result{}, err
	}

	job.Complete(path, len(sections), len(payload))
	return model.Result{Document: doc, Sections: sections}, nil
}
