package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fursa-app/opportunity-cli/internal/db"
	"github.com/fursa-app/opportunity-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS opportunities (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	source_url     TEXT,
	source_md      TEXT,
	data_en        JSONB NOT NULL,
	data_ar        JSONB NOT NULL,
	category       TEXT,
	subtype        TEXT[],
	country        TEXT[],
	fund_type      TEXT[],
	target_segment TEXT[],
	deadline       DATE,
	is_remote      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_opportunities_category ON opportunities(category);
CREATE INDEX IF NOT EXISTS idx_opportunities_deadline ON opportunities(deadline);
CREATE INDEX IF NOT EXISTS idx_opportunities_created_at ON opportunities(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_opportunities_country ON opportunities USING GIN(country);
CREATE INDEX IF NOT EXISTS idx_opportunities_subtype ON opportunities USING GIN(subtype);
`

const upsertOpportunitySQL = `
INSERT INTO opportunities (
	id, source, source_url, source_md,
	data_en, data_ar,
	category, subtype, country, fund_type, target_segment,
	deadline, is_remote,
	created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
	source = EXCLUDED.source,
	source_url = EXCLUDED.source_url,
	source_md = EXCLUDED.source_md,
	data_en = EXCLUDED.data_en,
	data_ar = EXCLUDED.data_ar,
	category = EXCLUDED.category,
	subtype = EXCLUDED.subtype,
	country = EXCLUDED.country,
	fund_type = EXCLUDED.fund_type,
	target_segment = EXCLUDED.target_segment,
	deadline = EXCLUDED.deadline,
	is_remote = EXCLUDED.is_remote,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertOpportunity(ctx context.Context, row model.OpportunityRow) error {
	if row.ID == "" {
		return eris.New("postgres: upsert without record id")
	}

	dataEN, err := json.Marshal(row.DataEN)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal data_en")
	}
	dataAR, err := json.Marshal(row.DataAR)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal data_ar")
	}

	var category any
	if row.Category != "" {
		category = row.Category
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, upsertOpportunitySQL,
		row.ID, row.Source, row.SourceURL, row.SourceMarkdown,
		dataEN, dataAR,
		category, row.Subtype, row.Country, row.FundType, row.TargetSegment,
		row.Deadline, row.IsRemote,
		now, now,
	)
	return eris.Wrapf(err, "postgres: upsert opportunity %s", row.ID)
}

func (s *PostgresStore) LastCreatedAt(ctx context.Context) (*time.Time, error) {
	var last *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(created_at) FROM opportunities`).Scan(&last)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query last created_at")
	}
	return last, nil
}

func (s *PostgresStore) CountOpportunities(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count opportunities")
	}
	return count, nil
}
