package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docatlas/internal/config"
	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/model"
	"github.com/dgallion1/docatlas/internal/storage"
)

// Orchestrator runs extraction jobs on a pool of workers.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	worker   *Worker
	stats    *Stats
	files    *storage.FileStore
	registry *storage.Registry
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, files *storage.FileStore, registry *storage.Registry, p *extraction.Pipeline, log *slog.Logger) *Orchestrator {
	stats := NewStats(cfg.StatsWindow)
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		worker:   NewWorker(files, registry, p, stats, log),
		stats:    stats,
		files:    files,
		registry: registry,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// process runs one queued job. A panic fails the job instead of taking
// the worker down with it.
func (o *Orchestrator) process(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("worker panic", "job_id", job.ID, "panic", r)
			job.Fail(job.Snapshot().Phase, fmt.Errorf("panic: %v", r))
			o.stats.RecordFailure()
		}
	}()
	o.worker.Process(ctx, job)
}

// SubmitFile queues an extraction of a registered upload.
func (o *Orchestrator) SubmitFile(ctx context.Context, fileID string, opts extraction.Options) (*Job, error) {
	rec, err := o.registry.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	job := NewJob(rec.FileID, rec.FileName, opts)
	if err := o.Submit(job); err != nil {
		return job, err
	}
	o.log.Info("job queued", "job_id", job.ID, "file_id", rec.FileID, "queue_depth", len(o.queue))
	return job, nil
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		err := fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
		job.Fail("queued", err)
		return err
	}
}

// Run processes job on the caller's goroutine. The job is registered so
// it can be polled like a queued one.
func (o *Orchestrator) Run(ctx context.Context, job *Job) (model.Result, error) {
	o.jobs.Put(job)
	res, err := o.worker.Run(ctx, job)
	if err != nil {
		o.stats.RecordFailure()
	}
	return res, err
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}

func (o *Orchestrator) Files() *storage.FileStore { return o.files }

func (o *Orchestrator) Registry() *storage.Registry { return o.registry }

// DefaultOptions returns the extraction options configured for the service.
func (o *Orchestrator) DefaultOptions() extraction.Options {
	return o.cfg.ExtractionOptions()
}
