package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fursa-app/opportunity-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteUpsertAndCount(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	count, err := st.CountOpportunities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	row := sampleRow()
	require.NoError(t, st.UpsertOpportunity(ctx, row))

	count, err = st.CountOpportunities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Upserting the same id again updates in place.
	row.Source = "othersource"
	require.NoError(t, st.UpsertOpportunity(ctx, row))

	count, err = st.CountOpportunities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteUpsertRequiresID(t *testing.T) {
	st := newTestSQLite(t)

	err := st.UpsertOpportunity(context.Background(), model.OpportunityRow{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without record id")
}

func TestSQLiteLastCreatedAt(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	last, err := st.LastCreatedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "empty table has no last ingestion time")

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, st.UpsertOpportunity(ctx, sampleRow()))

	last, err = st.LastCreatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.After(before))
}

func TestSQLiteNilListsSurvive(t *testing.T) {
	st := newTestSQLite(t)

	row := sampleRow()
	row.ID = "no-lists"
	row.Category = ""
	row.Subtype = nil
	row.Country = nil
	row.FundType = nil
	row.TargetSegment = nil
	row.Deadline = nil

	require.NoError(t, st.UpsertOpportunity(context.Background(), row))
}
