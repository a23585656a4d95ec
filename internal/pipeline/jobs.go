package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/docatlas/internal/extraction"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusReading    JobStatus = "reading"
	StatusExtracting JobStatus = "extracting"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the extraction of one uploaded file.
type Job struct {
	mu sync.Mutex

	ID       string
	FileID   string
	Filename string
	Options  extraction.Options

	Status   JobStatus
	Phase    string
	Progress Progress

	ResultPath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Progress reports what a job has produced so far.
type Progress struct {
	Sections int      `json:"sections"`
	Bytes    int      `json:"bytes"`
	Errors   []string `json:"errors"`
}

// NewJob returns a queued job for fileID with a fresh id.
func NewJob(fileID, filename string, opts extraction.Options) *Job {
	now := time.Now()
	return &Job{
		ID:        newJobID(),
		FileID:    fileID,
		Filename:  filename,
		Options:   opts,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in phase.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, err.Error())
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Complete records the stored result.
func (j *Job) Complete(resultPath string, sections, size int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ResultPath = resultPath
	j.Progress.Sections = sections
	j.Progress.Bytes = size
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Progress   Progress  `json:"progress"`
	ResultPath string    `json:"result_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:         j.ID,
		FileID:     j.FileID,
		Filename:   j.Filename,
		Status:     j.Status,
		Phase:      j.Phase,
		Progress:   Progress{Sections: j.Progress.Sections, Bytes: j.Progress.Bytes, Errors: errs},
		ResultPath: j.ResultPath,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
