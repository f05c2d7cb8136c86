package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	older := Entry{
		FilePath:            "bills/2024-03.jpg",
		ReferenceMonth:      3,
		ReferenceYear:       2024,
		TotalAmount:         98.50,
		MinimumPossible:     57.50,
		UncompensatedCost:   41.00,
		MonitoredGeneration: 400,
		SystemStatus:        "adequate",
		BillScore:           82,
		AnalyzedAt:          time.Now().Add(-time.Hour),
	}
	newer := Entry{
		FilePath:            "bills/2024-04.jpg",
		ReferenceMonth:      4,
		ReferenceYear:       2024,
		TotalAmount:         120.10,
		MonitoredGeneration: 380,
		SystemStatus:        "slightly_below",
		AnalyzedAt:          time.Now(),
	}

	require.NoError(t, store.Record(ctx, older))
	require.NoError(t, store.Record(ctx, newer))

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "bills/2024-04.jpg", entries[0].FilePath)
	assert.Equal(t, "bills/2024-03.jpg", entries[1].FilePath)
	assert.InDelta(t, 57.50, entries[1].MinimumPossible, 1e-9)
	assert.Equal(t, "adequate", entries[1].SystemStatus)
}

func TestListLimit(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for month := 1; month <= 5; month++ {
		require.NoError(t, store.Record(ctx, Entry{
			FilePath:       "bill.jpg",
			ReferenceMonth: month,
			ReferenceYear:  2024,
			AnalyzedAt:     time.Date(2024, time.Month(month), 10, 0, 0, 0, 0, time.UTC),
		}))
	}

	entries, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 5, entries[0].ReferenceMonth)
	assert.Equal(t, 4, entries[1].ReferenceMonth)
}

func TestListEmpty(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	entries, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
