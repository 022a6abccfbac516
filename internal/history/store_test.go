// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history", "popularity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	t0 = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	t1 = time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
)

func TestRecordRunAndRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1, err := s.RecordRun(ctx, t0, t0.Add(time.Minute), []types.PopularityRecord{
		{Ecosystem: "sklearn", Dataset: "iris", Query: "q1", Count: 1200},
		{Ecosystem: "sklearn", Dataset: "broken", Query: "q2", Err: errors.New("HTTP 500")},
	})
	require.NoError(t, err)

	id2, err := s.RecordRun(ctx, t1, t1.Add(time.Minute), []types.PopularityRecord{
		{Ecosystem: "sklearn", Dataset: "iris", Query: "q1", Count: 1300},
	})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, Run{ID: id2, StartedAt: t1, FinishedAt: t1.Add(time.Minute), Counted: 1, Failed: 0}, runs[0])
	assert.Equal(t, Run{ID: id1, StartedAt: t0, FinishedAt: t0.Add(time.Minute), Counted: 1, Failed: 1}, runs[1])

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, id2, limited[0].ID)
}

func TestTrend(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.RecordRun(ctx, t0, t0, []types.PopularityRecord{
		{Ecosystem: "sklearn", Dataset: "iris", Query: "sklearn.datasets load_iris extension:py", Count: 1200},
		{Ecosystem: "r", Dataset: "iris", Query: "data(iris) extension:r", Err: errors.New("HTTP 500")},
	})
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, t1, t1, []types.PopularityRecord{
		{Ecosystem: "sklearn", Dataset: "iris", Query: "sklearn.datasets load_iris extension:py", Count: 1300},
	})
	require.NoError(t, err)

	all, err := s.Trend(ctx, "", "iris")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.NotNil(t, all[0].Count)
	assert.Equal(t, 1300, *all[0].Count)
	assert.Equal(t, t1, all[0].StartedAt)
	assert.Nil(t, all[2].Count)
	assert.Equal(t, "HTTP 500", all[2].Error)

	sk, err := s.Trend(ctx, "sklearn", "iris")
	require.NoError(t, err)
	assert.Len(t, sk, 2)

	none, err := s.Trend(ctx, "", "mtcars")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popularity.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	_, err = s.RecordRun(context.Background(), t0, t0, []types.PopularityRecord{{Ecosystem: "r", Dataset: "mtcars", Count: 340}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
