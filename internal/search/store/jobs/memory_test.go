package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"deepsearch/internal/search/models"
	dErrors "deepsearch/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func newTestJob() *models.Job {
	now := time.Now().UTC()
	return &models.Job{
		ID:        uuid.NewString(),
		Status:    models.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	s.Run("round-trips a job", func() {
		job := newTestJob()
		s.Require().NoError(s.store.Create(s.ctx, job))

		found, err := s.store.Get(s.ctx, job.ID)
		s.Require().NoError(err)
		s.Equal(job.ID, found.ID)
		s.Equal(models.StatusQueued, found.Status)
	})

	s.Run("unknown id is ErrNotFound", func() {
		_, err := s.store.Get(s.ctx, uuid.NewString())
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("duplicate id conflicts", func() {
		job := newTestJob()
		s.Require().NoError(s.store.Create(s.ctx, job))
		err := s.store.Create(s.ctx, job)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *MemoryStoreSuite) TestSnapshotIsolation() {
	job := newTestJob()
	job.Questions = []string{"original"}
	s.Require().NoError(s.store.Create(s.ctx, job))

	// Mutating the caller's copy after Create must not leak into the store.
	job.Questions[0] = "mutated"
	job.Status = models.StatusFailed

	found, err := s.store.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal([]string{"original"}, found.Questions)
	s.Equal(models.StatusQueued, found.Status)

	// Mutating a Get snapshot must not leak either.
	found.Questions[0] = "mutated again"
	again, err := s.store.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal([]string{"original"}, again.Questions)
}

func (s *MemoryStoreSuite) TestUpdate() {
	s.Run("applies the mutation atomically", func() {
		job := newTestJob()
		s.Require().NoError(s.store.Create(s.ctx, job))

		err := s.store.Update(s.ctx, job.ID, func(j *models.Job) error {
			j.Status = models.StatusCompleted
			j.Result = &models.Result{Profile: models.PersonProfile{OverallConfidence: 0.9}}
			return nil
		})
		s.Require().NoError(err)

		found, err := s.store.Get(s.ctx, job.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, found.Status)
		s.Require().NotNil(found.Result)
		s.InDelta(0.9, found.Result.Profile.OverallConfidence, 1e-9)
		s.False(found.UpdatedAt.Before(job.UpdatedAt))
	})

	s.Run("a failing mutation leaves the job untouched", func() {
		job := newTestJob()
		s.Require().NoError(s.store.Create(s.ctx, job))

		wantErr := dErrors.New(dErrors.CodeConflict, "not now")
		err := s.store.Update(s.ctx, job.ID, func(j *models.Job) error {
			j.Status = models.StatusFailed
			return wantErr
		})
		s.Require().ErrorIs(err, wantErr)

		found, err := s.store.Get(s.ctx, job.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusQueued, found.Status)
	})

	s.Run("unknown id is ErrNotFound", func() {
		err := s.store.Update(s.ctx, uuid.NewString(), func(*models.Job) error { return nil })
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestConcurrentUpdates() {
	job := newTestJob()
	job.Result = &models.Result{}
	s.Require().NoError(s.store.Create(s.ctx, job))

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.Update(s.ctx, job.ID, func(j *models.Job) error {
				j.Result.Metrics.LatencyMS++
				return nil
			})
		}()
	}
	wg.Wait()

	found, err := s.store.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(int64(writers), found.Result.Metrics.LatencyMS, "updates serialize, none are lost")
}
