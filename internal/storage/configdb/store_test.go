package configdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetAllocations_EmptyWhenNeverSaved(t *testing.T) {
	store := newTestStore(t)

	allocations, err := store.GetAllocations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, allocations)
}

func TestSaveAllocations_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	input := []*models.Allocation{
		{Symbol: "voo", TargetPercent: 50, InstrumentID: 136155102},
		{Symbol: "QQQ", TargetPercent: 30},
	}
	require.NoError(t, store.SaveAllocations(ctx, input))

	got, err := store.GetAllocations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "VOO", got[0].Symbol, "symbols are normalized to upper case")
	assert.Equal(t, 50.0, got[0].TargetPercent)
	assert.Equal(t, int64(136155102), got[0].InstrumentID)
	assert.Equal(t, "QQQ", got[1].Symbol)
}

func TestSaveAllocations_ReplacesPreviousSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAllocations(ctx, []*models.Allocation{
		{Symbol: "VOO", TargetPercent: 50},
		{Symbol: "QQQ", TargetPercent: 30},
	}))
	require.NoError(t, store.SaveAllocations(ctx, []*models.Allocation{
		{Symbol: "VTI", TargetPercent: 100},
	}))

	got, err := store.GetAllocations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VTI", got[0].Symbol)
}

func TestSaveAllocations_RejectsInvalidSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveAllocations(ctx, []*models.Allocation{
		{Symbol: "VOO", TargetPercent: 60},
		{Symbol: "QQQ", TargetPercent: 50},
	})
	require.Error(t, err, "sum over 100% must be rejected at the write boundary")

	// The store is untouched by the failed write
	got, err := store.GetAllocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetBufferPercent_DefaultWhenNeverSet(t *testing.T) {
	store := newTestStore(t)

	buffer, err := store.GetBufferPercent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferPercent, buffer)
}

func TestGetBufferPercent_ConfiguredDefault(t *testing.T) {
	store := newTestStore(t).WithDefaultBuffer(0.10)

	buffer, err := store.GetBufferPercent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.10, buffer)
}

func TestSetBufferPercent_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetBufferPercent(ctx, 0.08))

	buffer, err := store.GetBufferPercent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.08, buffer)
}

func TestSetBufferPercent_RejectsOutOfRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.SetBufferPercent(ctx, -0.1))
	assert.Error(t, store.SetBufferPercent(ctx, 1.2))
}
