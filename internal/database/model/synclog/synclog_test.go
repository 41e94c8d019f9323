package synclog

import (
	"context"
	"testing"
	"time"

	"PimSync/internal/database"
	"PimSync/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, logging.Discard())
}

func TestCreateFinish(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	e := &Entry{RunID: "r1", SyncType: TypeFull, CatalogID: "21", CompanyID: 1, StorefrontID: 1,
		StartedAt: now.Unix(), Status: StatusRunning}
	require.NoError(t, s.Create(ctx, e))
	assert.NotZero(t, e.LogID)

	running, err := s.HasRunning(ctx, "21", 1, 1, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, running)

	// запись старше окна считается брошенной
	running, err = s.HasRunning(ctx, "21", 1, 1, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, running)

	e.Status = StatusCompleted
	e.CompletedAt = now.Add(time.Second).Unix()
	e.AffectedCategories = 3
	e.AffectedProducts = 10
	require.NoError(t, s.Finish(ctx, e))

	running, err = s.HasRunning(ctx, "21", 1, 1, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, running)

	entries, err := s.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusCompleted, entries[0].Status)
	assert.Equal(t, 10, entries[0].AffectedProducts)
	assert.Equal(t, "r1", entries[0].RunID)
}

func TestClear(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	old := now.AddDate(0, 0, -40).Unix()
	for _, e := range []*Entry{
		{SyncType: TypeDelta, CompanyID: 1, StartedAt: old, Status: StatusCompleted},
		{SyncType: TypeDelta, CompanyID: 1, StartedAt: now.Unix(), Status: StatusFailed},
		{SyncType: TypeDelta, CompanyID: 1, StartedAt: now.Unix(), Status: StatusCompleted},
		{SyncType: TypeDelta, CompanyID: 2, StartedAt: old, Status: StatusFailed},
	} {
		require.NoError(t, s.Create(ctx, e))
	}

	n, err := s.ClearOlderThan(ctx, 1, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.ClearFailed(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	n, err = s.ClearAll(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
