package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fursa-app/opportunity-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func sampleRow() model.OpportunityRow {
	deadline := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return model.OpportunityRow{
		ID:             "550e8400-e29b-41d4-a716-446655440000",
		Source:         "opportunitiescorners",
		SourceURL:      "https://example.org/daad",
		SourceMarkdown: "# DAAD",
		DataEN:         model.Record{"id": "550e8400-e29b-41d4-a716-446655440000", "title": "DAAD"},
		DataAR:         model.Record{"id": "550e8400-e29b-41d4-a716-446655440000", "title": "منحة"},
		Category:       "academic",
		Subtype:        []string{"masters"},
		Country:        []string{"Germany"},
		FundType:       []string{"fully_funded"},
		TargetSegment:  []string{"undergraduate", "graduate"},
		Deadline:       &deadline,
		IsRemote:       false,
	}
}

func TestPostgresUpsertOpportunity(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(
			"550e8400-e29b-41d4-a716-446655440000", "opportunitiescorners", "https://example.org/daad", "# DAAD",
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			"academic", []string{"masters"}, []string{"Germany"}, []string{"fully_funded"}, []string{"undergraduate", "graduate"},
			pgxmock.AnyArg(), false,
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.UpsertOpportunity(context.Background(), sampleRow()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertConflictUpdates(t *testing.T) {
	st, mock := newMockStore(t)

	// Same id twice; the second write must also be a single statement
	// (ON CONFLICT), not a failed insert.
	for i := 0; i < 2; i++ {
		mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
			WithArgs(
				"550e8400-e29b-41d4-a716-446655440000", "opportunitiescorners", "https://example.org/daad", "# DAAD",
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				"academic", []string{"masters"}, []string{"Germany"}, []string{"fully_funded"}, []string{"undergraduate", "graduate"},
				pgxmock.AnyArg(), false,
				pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	row := sampleRow()
	require.NoError(t, st.UpsertOpportunity(context.Background(), row))
	require.NoError(t, st.UpsertOpportunity(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRequiresID(t *testing.T) {
	st, _ := newMockStore(t)

	err := st.UpsertOpportunity(context.Background(), model.OpportunityRow{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without record id")
}

func TestPostgresUpsertEmptyCategoryIsNull(t *testing.T) {
	st, mock := newMockStore(t)

	row := sampleRow()
	row.Category = ""

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(
			row.ID, row.Source, row.SourceURL, row.SourceMarkdown,
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			nil, row.Subtype, row.Country, row.FundType, row.TargetSegment,
			pgxmock.AnyArg(), false,
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.UpsertOpportunity(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastCreatedAt(t *testing.T) {
	st, mock := newMockStore(t)

	want := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT MAX\\(created_at\\) FROM opportunities").
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&want))

	got, err := st.LastCreatedAt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastCreatedAtEmptyTable(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT MAX\\(created_at\\) FROM opportunities").
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow((*time.Time)(nil)))

	got, err := st.LastCreatedAt(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresCountOpportunities(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM opportunities").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := st.CountOpportunities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS opportunities").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
