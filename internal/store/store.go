// Package store is the persistence gateway of the matching service: upsert
// writes of match records keyed by the (candidate, job) pair, anchor and
// pool reads, and the agency tier lookup.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/matching-service/internal/matching"
	"jobmate/matching-service/internal/model"
)

// ErrNotFound is returned when an anchor entity does not exist.
var ErrNotFound = fmt.Errorf("record not found")

// Lifecycle statuses of a match record.
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
)

// MatchRecord is the persisted form of one scored pair. At most one live
// record exists per (candidate, job) pair; regeneration overwrites it.
type MatchRecord struct {
	CandidateID    string                  `json:"candidateId"`
	JobID          string                  `json:"jobId"`
	OverallScore   int                     `json:"overallScore"`
	Breakdown      matching.ScoreBreakdown `json:"breakdown"`
	MatchingSkills []string                `json:"matchingSkills"`
	MissingSkills  []string                `json:"missingSkills"`
	Status         string                  `json:"status"`
	GeneratedAt    time.Time               `json:"generatedAt"`
}

// Store wraps a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New ensures the schema and returns a Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := ensureSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// ─── Anchor and pool reads ───────────────────────────────────────────────────

// GetCandidate loads one candidate and normalizes it into the strict
// profile shape. Returns ErrNotFound for unknown ids.
func (s *Store) GetCandidate(ctx context.Context, id string) (model.CandidateProfile, error) {
	var (
		p         model.CandidateProfile
		skillsRaw []byte
		setup     *string
		shift     *string
		city      *string
		status    *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, skills, experience_years, expected_salary_min, expected_salary_max,
		        preferred_work_setup, preferred_shift, location_city, work_status
		 FROM candidates
		 WHERE id = $1`,
		id,
	).Scan(
		&p.ID, &skillsRaw, &p.ExperienceYears, &p.ExpectedSalaryMin, &p.ExpectedSalaryMax,
		&setup, &shift, &city, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CandidateProfile{}, ErrNotFound
	}
	if err != nil {
		return model.CandidateProfile{}, fmt.Errorf("getCandidate: %w", err)
	}

	p.Skills = model.NormalizeSkills(skillsRaw)
	p.PreferredArrangement = model.NormalizeEnum(setup)
	p.PreferredShift = model.NormalizeEnum(shift)
	p.City = model.NormalizeText(city)
	p.WorkStatus = model.NormalizeEnum(status)
	return p, nil
}

// GetJob loads one job posting. Returns ErrNotFound for unknown ids.
func (s *Store) GetJob(ctx context.Context, id string) (model.JobPosting, error) {
	var (
		j           model.JobPosting
		skillsRaw   []byte
		arrangement *string
		shift       *string
		city        *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, skills, salary_min, salary_max,
		        work_arrangement, shift, location_city
		 FROM jobs
		 WHERE id = $1`,
		id,
	).Scan(
		&j.ID, &j.Title, &skillsRaw, &j.SalaryMin, &j.SalaryMax,
		&arrangement, &shift, &city,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.JobPosting{}, ErrNotFound
	}
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("getJob: %w", err)
	}

	j.Skills = model.NormalizeSkills(skillsRaw)
	j.Arrangement = model.NormalizeEnum(arrangement)
	j.Shift = model.NormalizeEnum(shift)
	j.City = model.NormalizeText(city)
	return j, nil
}

// ListActiveJobs returns up to limit active jobs in a deterministic order,
// so ranked tie-breaks are reproducible across runs.
func (s *Store) ListActiveJobs(ctx context.Context, limit int) ([]model.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, skills, salary_min, salary_max,
		        work_arrangement, shift, location_city
		 FROM jobs
		 WHERE status = 'active'
		 ORDER BY created_at, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listActiveJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.JobPosting, 0)
	for rows.Next() {
		var (
			j           model.JobPosting
			skillsRaw   []byte
			arrangement *string
			shift       *string
			city        *string
		)
		if err := rows.Scan(
			&j.ID, &j.Title, &skillsRaw, &j.SalaryMin, &j.SalaryMax,
			&arrangement, &shift, &city,
		); err != nil {
			return nil, fmt.Errorf("listActiveJobs scan: %w", err)
		}
		j.Skills = model.NormalizeSkills(skillsRaw)
		j.Arrangement = model.NormalizeEnum(arrangement)
		j.Shift = model.NormalizeEnum(shift)
		j.City = model.NormalizeText(city)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListActiveCandidates returns up to limit active candidates in a
// deterministic order.
func (s *Store) ListActiveCandidates(ctx context.Context, limit int) ([]model.CandidateProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, skills, experience_years, expected_salary_min, expected_salary_max,
		        preferred_work_setup, preferred_shift, location_city, work_status
		 FROM candidates
		 WHERE is_active = true
		 ORDER BY created_at, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listActiveCandidates query: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.CandidateProfile, 0)
	for rows.Next() {
		var (
			p         model.CandidateProfile
			skillsRaw []byte
			setup     *string
			shift     *string
			city      *string
			status    *string
		)
		if err := rows.Scan(
			&p.ID, &skillsRaw, &p.ExperienceYears, &p.ExpectedSalaryMin, &p.ExpectedSalaryMax,
			&setup, &shift, &city, &status,
		); err != nil {
			return nil, fmt.Errorf("listActiveCandidates scan: %w", err)
		}
		p.Skills = model.NormalizeSkills(skillsRaw)
		p.PreferredArrangement = model.NormalizeEnum(setup)
		p.PreferredShift = model.NormalizeEnum(shift)
		p.City = model.NormalizeText(city)
		p.WorkStatus = model.NormalizeEnum(status)
		candidates = append(candidates, p)
	}
	return candidates, rows.Err()
}

// ─── Match record writes and reads ───────────────────────────────────────────

// UpsertMatches writes the records, one upsert per (candidate, job) pair,
// pipelined in a single batch so one refresh is one round trip. Re-persisting
// a batch overwrites scores and generated_at and resets the status to
// pending — a regenerated score invalidates a prior review.
func (s *Store) UpsertMatches(ctx context.Context, records []MatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		breakdown, err := json.Marshal(r.Breakdown)
		if err != nil {
			return fmt.Errorf("upsertMatches marshal breakdown: %w", err)
		}
		batch.Queue(
			`INSERT INTO match_records
			     (candidate_id, job_id, overall_score, breakdown,
			      matching_skills, missing_skills, status, generated_at)
			 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)
			 ON CONFLICT (candidate_id, job_id) DO UPDATE SET
			     overall_score   = EXCLUDED.overall_score,
			     breakdown       = EXCLUDED.breakdown,
			     matching_skills = EXCLUDED.matching_skills,
			     missing_skills  = EXCLUDED.missing_skills,
			     status          = EXCLUDED.status,
			     generated_at    = EXCLUDED.generated_at`,
			r.CandidateID, r.JobID, r.OverallScore, breakdown,
			r.MatchingSkills, r.MissingSkills, r.Status, r.GeneratedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	for _, r := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsertMatches (%s, %s): %w", r.CandidateID, r.JobID, err)
		}
	}
	return br.Close()
}

// CachedForCandidate returns the candidate's persisted matches, best first.
func (s *Store) CachedForCandidate(ctx context.Context, candidateID string, limit int) ([]MatchRecord, error) {
	return s.cached(ctx,
		`SELECT candidate_id, job_id, overall_score, breakdown,
		        matching_skills, missing_skills, status, generated_at
		 FROM match_records
		 WHERE candidate_id = $1
		 ORDER BY overall_score DESC, job_id
		 LIMIT $2`,
		candidateID, limit)
}

// CachedForJob returns the job's persisted matches, best first.
func (s *Store) CachedForJob(ctx context.Context, jobID string, limit int) ([]MatchRecord, error) {
	return s.cached(ctx,
		`SELECT candidate_id, job_id, overall_score, breakdown,
		        matching_skills, missing_skills, status, generated_at
		 FROM match_records
		 WHERE job_id = $1
		 ORDER BY overall_score DESC, candidate_id
		 LIMIT $2`,
		jobID, limit)
}

func (s *Store) cached(ctx context.Context, query, anchorID string, limit int) ([]MatchRecord, error) {
	rows, err := s.pool.Query(ctx, query, anchorID, limit)
	if err != nil {
		return nil, fmt.Errorf("cached matches query: %w", err)
	}
	defer rows.Close()

	records := make([]MatchRecord, 0)
	for rows.Next() {
		var (
			r         MatchRecord
			breakdown []byte
		)
		if err := rows.Scan(
			&r.CandidateID, &r.JobID, &r.OverallScore, &breakdown,
			&r.MatchingSkills, &r.MissingSkills, &r.Status, &r.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("cached matches scan: %w", err)
		}
		if err := json.Unmarshal(breakdown, &r.Breakdown); err != nil {
			return nil, fmt.Errorf("cached matches breakdown: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountForCandidate reports how many matches are persisted for a candidate.
func (s *Store) CountForCandidate(ctx context.Context, candidateID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM match_records WHERE candidate_id = $1`,
		candidateID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("countForCandidate: %w", err)
	}
	return n, nil
}

// ListStaleCandidates returns ids of active candidates whose newest match
// record predates olderThan. Used by the refresh scheduler.
func (s *Store) ListStaleCandidates(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id
		 FROM candidates c
		 JOIN match_records m ON m.candidate_id = c.id
		 WHERE c.is_active = true
		 GROUP BY c.id
		 HAVING MAX(m.generated_at) < $1
		 ORDER BY c.id
		 LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listStaleCandidates query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("listStaleCandidates scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AgencyTier returns the agency's raw subscription tier. Unknown agencies
// fall back to the free tier rather than failing the request.
func (s *Store) AgencyTier(ctx context.Context, agencyID string) (string, error) {
	var tier string
	err := s.pool.QueryRow(ctx,
		`SELECT subscription_tier FROM agencies WHERE id = $1`,
		agencyID,
	).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "free", nil
	}
	if err != nil {
		return "", fmt.Errorf("agencyTier: %w", err)
	}
	return tier, nil
}
