package jobs

import (
	"context"
	"sync"
	"time"

	dErrors "deepsearch/pkg/domain-errors"
	"deepsearch/internal/search/models"
)

// InMemoryStore keeps jobs in a mutex-guarded map. Jobs are deep-copied on
// the way in and out so no caller ever shares slices with the stored state.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewInMemory creates an empty in-memory job store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[string]*models.Job)}
}

func (s *InMemoryStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	next := job.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	s.jobs[id] = next
	return nil
}
