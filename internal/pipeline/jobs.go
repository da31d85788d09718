package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/progress"
)

// JobKind selects the document operation a job runs.
type JobKind string

const (
	KindMerge   JobKind = "merge"
	KindExtract JobKind = "extract"
)

// JobStatus represents the state of a job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job tracks the state of a single merge or extraction.
type Job struct {
	mu sync.Mutex

	ID     string         `json:"job_id"`
	Kind   JobKind        `json:"kind"`
	Status JobStatus      `json:"status"`
	Phase  progress.Phase `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Dir holds the job's uploads and outputs. It is removed on eviction.
	Dir string `json:"-"`

	merge   *document.MergeOptions
	extract *document.ExtractOptions
	result  document.Result
	cancel  context.CancelFunc
	errors  []string
}

// Progress is the last report received from the running operation.
type Progress struct {
	Percentage int      `json:"percentage"`
	Item       string   `json:"item,omitempty"`
	Errors     []string `json:"errors"`
}

func newJob(kind JobKind, dir string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusQueued,
		Phase:     progress.Unassigned,
		Dir:       dir,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMergeJob creates a queued merge job. dir is owned by the job.
func NewMergeJob(dir string, opts document.MergeOptions) *Job {
	j := newJob(KindMerge, dir)
	j.merge = &opts
	return j
}

// NewExtractJob creates a queued extraction job. dir is owned by the job.
func NewExtractJob(dir string, opts document.ExtractOptions) *Job {
	j := newJob(KindExtract, dir)
	j.extract = &opts
	return j
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not been updated within the TTL,
// together with their directories. Running jobs are never evicted.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	var expired []*Job
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Done() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, job)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		if job.Dir != "" {
			os.RemoveAll(job.Dir)
		}
	}
	return len(expired)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Sink returns a progress sink that records reports on the job.
func (j *Job) Sink() progress.Sink {
	return func(r progress.Report) {
		j.mu.Lock()
		defer j.mu.Unlock()
		j.Phase = r.Phase
		j.Progress.Percentage = r.Percentage
		j.Progress.Item = r.Item
		j.UpdatedAt = time.Now()
	}
}

// start moves a queued job to running and remembers how to cancel it. It
// returns false when the job was cancelled while queued.
func (j *Job) start(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusQueued {
		return false
	}
	j.Status = StatusRunning
	j.cancel = cancel
	j.UpdatedAt = time.Now()
	return true
}

// Cancel stops a queued or running job. It reports whether the job was
// still active.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.Status {
	case StatusQueued:
		j.Status = StatusCancelled
		j.UpdatedAt = time.Now()
		return true
	case StatusRunning:
		if j.cancel != nil {
			j.cancel()
		}
		return true
	}
	return false
}

func (j *Job) complete(res document.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Status = StatusCompleted
	j.cancel = nil
	j.UpdatedAt = time.Now()
}

// Outputs returns the paths of the files the job produced.
func (j *Job) Outputs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.result.Outputs...)
}

// JobSnapshot is a read-only, JSON-safe copy of job state. Outputs holds
// file names only.
type JobSnapshot struct {
	ID         string         `json:"job_id"`
	Kind       JobKind        `json:"kind"`
	Status     JobStatus      `json:"status"`
	Phase      progress.Phase `json:"phase"`
	Progress   Progress       `json:"progress"`
	Outputs    []string       `json:"outputs"`
	PdfAFailed bool           `json:"pdfa_failed,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	outputs := make([]string, len(j.result.Outputs))
	for i, p := range j.result.Outputs {
		outputs[i] = filepath.Base(p)
	}
	return JobSnapshot{
		ID:     j.ID,
		Kind:   j.Kind,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			Percentage: j.Progress.Percentage,
			Item:       j.Progress.Item,
			Errors:     errs,
		},
		Outputs:    outputs,
		PdfAFailed: j.result.PdfAFailed,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
