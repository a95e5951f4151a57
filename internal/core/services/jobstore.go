// Package services holds the pipeline's long-lived, injected dependencies:
// the job store and queue, the marked-job persistence, the LLM oracle
// adapters, the stock footage provider, and the local asset cache. None of
// these are package-level singletons; callers construct one and thread it
// through, following the teacher's move away from globals toward an
// explicit dependency-injection container (internal/cloud.ServiceClients).
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genshorts/genshorts/internal/core/model"
)

// JobStore is a process-wide, in-memory job table plus a FIFO of pending job
// IDs. It has no durability: a process restart loses all jobs, matching the
// pipeline's non-goal of persistent storage. All accessors are serialized
// by a single mutex.
type JobStore struct {
	mu      sync.Mutex
	jobs    map[string]*model.Job
	pending []string
}

// NewJobStore returns an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*model.Job)}
}

// Create allocates a fresh job ID, stores a QUEUED Job, and appends it to
// the FIFO.
func (s *JobStore) Create(topic string, durationSeconds int, tone model.Tone, dryRun bool) *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	job := &model.Job{
		ID:              uuid.NewString(),
		Topic:           topic,
		DurationSeconds: durationSeconds,
		Tone:            tone,
		DryRun:          dryRun,
		Status:          model.StatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.jobs[job.ID] = job
	s.pending = append(s.pending, job.ID)
	return job.Clone()
}

// Pop removes and returns the head of the FIFO, or nil if empty.
func (s *JobStore) Pop() *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	id := s.pending[0]
	s.pending = s.pending[1:]
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	return job.Clone()
}

// Get returns a snapshot of the job by ID, or nil if it doesn't exist.
func (s *JobStore) Get(id string) *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	return job.Clone()
}

// List returns a snapshot of every known job, most recently created first.
func (s *JobStore) List() []*model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Update mutates the job at id in place via fn and bumps UpdatedAt. fn
// receives a pointer into the store's own map entry, not a clone.
func (s *JobStore) Update(id string, fn func(job *model.Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now()
}
