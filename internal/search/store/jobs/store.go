// Package jobs persists resolution jobs. Implementations must support
// concurrent get/update without ever exposing a half-written job: readers
// always see a complete snapshot.
package jobs

import (
	"context"

	"deepsearch/internal/search/models"
	dErrors "deepsearch/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "job not found")

// Store is the job registry shared by the HTTP status path and the
// background pipeline.
type Store interface {
	// Create inserts a new job. Inserting an existing id is an error.
	Create(ctx context.Context, job *models.Job) error
	// Get returns a snapshot of the job. Mutating the returned value does
	// not affect the stored job.
	Get(ctx context.Context, id string) (*models.Job, error)
	// Update applies fn to the stored job atomically. fn receives a copy;
	// the copy replaces the stored job only when fn returns nil.
	Update(ctx context.Context, id string, fn func(*models.Job) error) error
}
