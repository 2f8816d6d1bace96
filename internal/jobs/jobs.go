// Package jobs tracks the asynchronous batch operations (ingest, export,
// label recognition) behind stable job handles. A job handle outlives the
// operation so callers can poll its outcome after completion.
package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wsideid/internal/logging"
	"wsideid/internal/services"
)

// Status is the lifecycle phase of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is a snapshot of one batch operation.
type Job struct {
	ID       string
	Kind     string
	Status   Status
	Summary  string
	Error    string
	Started  time.Time
	Finished time.Time
}

// Done reports whether the job has reached a terminal status.
func (j Job) Done() bool {
	return j.Status != StatusRunning
}

// Manager launches and tracks jobs. Cancelling a job stops issuing new
// per-item work inside the operation; work already applied stays applied.
type Manager struct {
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager builds an empty job registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		logger:  logger.With(logging.String(logging.FieldComponent, "jobs")),
		jobs:    map[string]*Job{},
		cancels: map[string]context.CancelFunc{},
	}
}

// Launch starts fn on its own goroutine and returns the job handle
// immediately. fn's returned summary or error lands on the handle when it
// finishes.
func (m *Manager) Launch(ctx context.Context, kind string, fn func(ctx context.Context) (string, error)) Job {
	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:      uuid.New().String(),
		Kind:    kind,
		Status:  StatusRunning,
		Started: time.Now().UTC(),
	}
	jobCtx = services.WithJobID(jobCtx, job.ID)

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.cancels[job.ID] = cancel
	m.mu.Unlock()

	// The handle is copied before fn starts; once the goroutine is running
	// only Get/List may read the tracked job, and they take the lock.
	handle := *job

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		summary, err := fn(jobCtx)

		m.mu.Lock()
		defer m.mu.Unlock()
		job.Finished = time.Now().UTC()
		job.Summary = summary
		switch {
		case err != nil && jobCtx.Err() != nil:
			job.Status = StatusCancelled
			job.Error = err.Error()
		case err != nil:
			job.Status = StatusFailed
			job.Error = err.Error()
		default:
			job.Status = StatusSucceeded
		}
		delete(m.cancels, job.ID)

		m.logger.Info("job finished",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("kind", job.Kind),
			logging.String("status", string(job.Status)),
		)
	}()

	return handle
}

// Get returns a snapshot of the job, if known.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Cancel requests cancellation of a running job. It reports whether a
// running job was found.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// List returns snapshots of all known jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Started.After(out[j].Started)
	})
	return out
}

// Wait blocks until every launched job has finished. Used at shutdown and in
// tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}
