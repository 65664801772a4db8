// Package configdb implements the ConfigStore using BadgerHold. It owns the
// two pieces of state that survive across invocations: the allocation set
// and the buffer percent.
package configdb

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// DefaultBufferPercent applies when no buffer has ever been stored.
const DefaultBufferPercent = 0.05

const (
	allocationsKey = "allocations"
	bufferKey      = "buffer_percent"
)

// allocationRecord wraps the full allocation set so reads and writes are
// single-record operations.
type allocationRecord struct {
	Key         string `badgerhold:"key"`
	Allocations []models.Allocation
}

type bufferRecord struct {
	Key   string `badgerhold:"key"`
	Value float64
}

// Store implements interfaces.ConfigStore using BadgerHold.
type Store struct {
	db            *badgerhold.Store
	logger        *common.Logger
	defaultBuffer float64
}

// NewStore opens (creating if needed) the config database at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open config db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Config store opened")
	return &Store{db: db, logger: logger, defaultBuffer: DefaultBufferPercent}, nil
}

// WithDefaultBuffer overrides the buffer returned when none is stored.
func (s *Store) WithDefaultBuffer(buffer float64) *Store {
	s.defaultBuffer = buffer
	return s
}

// GetAllocations returns the stored allocation set, or an empty slice when
// never saved.
func (s *Store) GetAllocations(_ context.Context) ([]*models.Allocation, error) {
	var rec allocationRecord
	if err := s.db.Get(allocationsKey, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return []*models.Allocation{}, nil
		}
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}

	allocations := make([]*models.Allocation, len(rec.Allocations))
	for i := range rec.Allocations {
		a := rec.Allocations[i]
		allocations[i] = &a
	}
	return allocations, nil
}

// SaveAllocations validates and replaces the full allocation set. Symbols
// are normalized to upper case on the way in.
func (s *Store) SaveAllocations(_ context.Context, allocations []*models.Allocation) error {
	if err := models.ValidateAllocations(allocations); err != nil {
		return err
	}

	rec := allocationRecord{Key: allocationsKey, Allocations: make([]models.Allocation, len(allocations))}
	for i, a := range allocations {
		rec.Allocations[i] = models.Allocation{
			Symbol:        strings.ToUpper(strings.TrimSpace(a.Symbol)),
			TargetPercent: a.TargetPercent,
			InstrumentID:  a.InstrumentID,
		}
	}

	if err := s.db.Upsert(allocationsKey, &rec); err != nil {
		return fmt.Errorf("failed to save allocations: %w", err)
	}
	s.logger.Info().Int("count", len(allocations)).Msg("Allocations saved")
	return nil
}

// GetBufferPercent returns the stored buffer fraction, or the default when
// never set.
func (s *Store) GetBufferPercent(_ context.Context) (float64, error) {
	var rec bufferRecord
	if err := s.db.Get(bufferKey, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return s.defaultBuffer, nil
		}
		return 0, fmt.Errorf("failed to get buffer percent: %w", err)
	}
	return rec.Value, nil
}

// SetBufferPercent validates and stores the buffer fraction.
func (s *Store) SetBufferPercent(_ context.Context, buffer float64) error {
	if err := models.ValidateBufferPercent(buffer); err != nil {
		return err
	}
	rec := bufferRecord{Key: bufferKey, Value: buffer}
	if err := s.db.Upsert(bufferKey, &rec); err != nil {
		return fmt.Errorf("failed to set buffer percent: %w", err)
	}
	s.logger.Info().Float64("buffer", buffer).Msg("Buffer percent saved")
	return nil
}

// Close releases the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements ConfigStore.
var _ interfaces.ConfigStore = (*Store)(nil)
