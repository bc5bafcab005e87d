package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fursa-app/opportunity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local runs
// without a Postgres instance. Array columns are stored as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: database}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS opportunities (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	source_url     TEXT,
	source_md      TEXT,
	data_en        TEXT NOT NULL,
	data_ar        TEXT NOT NULL,
	category       TEXT,
	subtype        TEXT,
	country        TEXT,
	fund_type      TEXT,
	target_segment TEXT,
	deadline       TEXT,
	is_remote      INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_category ON opportunities(category);
CREATE INDEX IF NOT EXISTS idx_opportunities_deadline ON opportunities(deadline);
CREATE INDEX IF NOT EXISTS idx_opportunities_created_at ON opportunities(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// marshalList encodes a string slice as JSON text, NULL when absent.
func marshalList(vals []string) (any, error) {
	if vals == nil {
		return nil, nil
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *SQLiteStore) UpsertOpportunity(ctx context.Context, row model.OpportunityRow) error {
	if row.ID == "" {
		return eris.New("sqlite: upsert without record id")
	}

	dataEN, err := json.Marshal(row.DataEN)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal data_en")
	}
	dataAR, err := json.Marshal(row.DataAR)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal data_ar")
	}

	lists := make([]any, 4)
	for i, vals := range [][]string{row.Subtype, row.Country, row.FundType, row.TargetSegment} {
		lists[i], err = marshalList(vals)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal list column")
		}
	}

	var category any
	if row.Category != "" {
		category = row.Category
	}
	var deadline any
	if row.Deadline != nil {
		deadline = row.Deadline.Format("2006-01-02")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO opportunities (
			id, source, source_url, source_md,
			data_en, data_ar,
			category, subtype, country, fund_type, target_segment,
			deadline, is_remote,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source = excluded.source,
			source_url = excluded.source_url,
			source_md = excluded.source_md,
			data_en = excluded.data_en,
			data_ar = excluded.data_ar,
			category = excluded.category,
			subtype = excluded.subtype,
			country = excluded.country,
			fund_type = excluded.fund_type,
			target_segment = excluded.target_segment,
			deadline = excluded.deadline,
			is_remote = excluded.is_remote,
			updated_at = excluded.updated_at`,
		row.ID, row.Source, row.SourceURL, row.SourceMarkdown,
		string(dataEN), string(dataAR),
		category, lists[0], lists[1], lists[2], lists[3],
		deadline, row.IsRemote,
		now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert opportunity %s", row.ID)
}

func (s *SQLiteStore) LastCreatedAt(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM opportunities`).Scan(&raw)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query last created_at")
	}
	if !raw.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parse created_at")
	}
	return &t, nil
}

func (s *SQLiteStore) CountOpportunities(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count opportunities")
	}
	return count, nil
}
