package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied by New. The matching service owns match_records; the
// candidate/job/agency tables are owned by the platform but created here too
// so the service runs standalone in development.
const schema = `
CREATE TABLE IF NOT EXISTS candidates (
    id                   TEXT PRIMARY KEY,
    skills               JSONB NOT NULL DEFAULT '[]',
    experience_years     INT NOT NULL DEFAULT 0,
    expected_salary_min  INT,
    expected_salary_max  INT,
    preferred_work_setup TEXT,
    preferred_shift      TEXT,
    location_city        TEXT,
    work_status          TEXT,
    is_active            BOOLEAN NOT NULL DEFAULT true,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS jobs (
    id               TEXT PRIMARY KEY,
    agency_id        TEXT,
    title            TEXT NOT NULL,
    skills           JSONB NOT NULL DEFAULT '[]',
    salary_min       INT,
    salary_max       INT,
    work_arrangement TEXT,
    shift            TEXT,
    location_city    TEXT,
    status           TEXT NOT NULL DEFAULT 'active',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS agencies (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    subscription_tier TEXT NOT NULL DEFAULT 'free',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS match_records (
    candidate_id    TEXT NOT NULL,
    job_id          TEXT NOT NULL,
    overall_score   INT NOT NULL,
    breakdown       JSONB NOT NULL,
    matching_skills TEXT[] NOT NULL DEFAULT '{}',
    missing_skills  TEXT[] NOT NULL DEFAULT '{}',
    status          TEXT NOT NULL DEFAULT 'pending',
    generated_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (candidate_id, job_id)
);

CREATE INDEX IF NOT EXISTS idx_match_records_candidate
    ON match_records (candidate_id, overall_score DESC);
CREATE INDEX IF NOT EXISTS idx_match_records_job
    ON match_records (job_id, overall_score DESC);
`

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
