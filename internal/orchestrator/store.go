package orchestrator

import (
	"sync"
	"time"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/validator"
)

// Store is an in-memory job record store. Persistent job storage is an
// external concern; this keeps the records reachable for the status API
// and audit within the process lifetime.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Put inserts or replaces a job record
func (s *Store) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a copy of the job record, so callers never observe a record
// mid-update. StageOutputs and Summaries are copied too: workers keep
// mutating the live record after Get returns, and handing out the shared
// map would let a status read race a stage update.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	if job.StageOutputs != nil {
		copied.StageOutputs = make(map[config.Stage]string, len(job.StageOutputs))
		for stage, path := range job.StageOutputs {
			copied.StageOutputs[stage] = path
		}
	}
	if job.Summaries != nil {
		copied.Summaries = append([]*validator.Summary(nil), job.Summaries...)
	}
	return &copied, true
}

// Update applies fn to the job record under the lock
func (s *Store) Update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}
