package jobstore

import (
	"sync"
	"time"

	"github.com/dealdesk/docgen/core"
)

// InMemoryStore is the volatile JobStore implementation backing the
// orchestrator: a process-local arena keyed by job id, safe for concurrent
// access. Jobs are shared by pointer and carry their own mutex, so the store
// only synchronizes map membership.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*core.GenerationJob
}

// NewInMemoryStore constructs an empty in-memory job arena.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[string]*core.GenerationJob)}
}

// Put registers a job under its id.
func (s *InMemoryStore) Put(job *core.GenerationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns the live job for id, if present.
func (s *InMemoryStore) Get(id string) (*core.GenerationJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Remove drops the job for id, if present.
func (s *InMemoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Sweep removes every completed job older than retention and returns the
// number removed. Incomplete jobs survive regardless of age; a hung worker
// is never reaped here.
func (s *InMemoryStore) Sweep(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.IsComplete() && job.Age(now) > retention {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live jobs.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
