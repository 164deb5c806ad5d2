// Package repository owns the technician roster.
package repository

import (
	"context"

	"github.com/okian/cityconnect/internal/domain/model"
)

// Store provides read/write access to the roster. Every returned technician
// is a copy the caller may keep.
type Store interface {
	// Upsert validates and stores tech, stamping UpdatedAt.
	Upsert(ctx context.Context, tech model.Technician) (model.Technician, error)

	// Get returns ErrNotFound if the technician is unknown.
	Get(ctx context.Context, id string) (model.Technician, error)

	// Delete returns ErrNotFound if the technician is unknown.
	Delete(ctx context.Context, id string) error

	// List returns the whole roster ordered by id.
	List(ctx context.Context) ([]model.Technician, error)

	// Update applies fn to the stored technician atomically. The id cannot
	// be changed and the result is validated before it is written.
	Update(ctx context.Context, id string, fn func(*model.Technician) error) (model.Technician, error)

	// Count returns the number of technicians.
	Count(ctx context.Context) (int, error)
}
