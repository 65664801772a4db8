package interfaces

import (
	"context"

	"github.com/bobmcallan/rebal/internal/models"
)

// ConfigStore owns the persistent user intent: the allocation set and the
// buffer percent. Writes are validated at this boundary so invalid state
// never reaches the planning engine.
type ConfigStore interface {
	// GetAllocations returns the stored allocation set; empty when unset.
	GetAllocations(ctx context.Context) ([]*models.Allocation, error)

	// SaveAllocations validates and replaces the allocation set.
	SaveAllocations(ctx context.Context, allocations []*models.Allocation) error

	// GetBufferPercent returns the stored buffer fraction, or the default
	// when unset.
	GetBufferPercent(ctx context.Context) (float64, error)

	// SetBufferPercent validates and stores the buffer fraction.
	SetBufferPercent(ctx context.Context, buffer float64) error

	// Close releases the underlying store.
	Close() error
}
