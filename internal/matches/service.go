// Package matches contains the business logic for match generation.
// It is transport-agnostic: used by the HTTP handler (handler.go) and the
// refresh scheduler.
package matches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/matching-service/internal/matching"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/policy"
	"jobmate/matching-service/internal/store"
)

// Default pool sizes scanned per run, overridable per request.
const (
	DefaultJobPool       = 50  // jobs scanned for one candidate
	DefaultCandidatePool = 100 // candidates scanned for one job
)

// ─── Service dependencies ────────────────────────────────────────────────────

// Store is the persistence surface the service needs.
type Store interface {
	GetCandidate(ctx context.Context, id string) (model.CandidateProfile, error)
	GetJob(ctx context.Context, id string) (model.JobPosting, error)
	ListActiveJobs(ctx context.Context, limit int) ([]model.JobPosting, error)
	ListActiveCandidates(ctx context.Context, limit int) ([]model.CandidateProfile, error)
	UpsertMatches(ctx context.Context, records []store.MatchRecord) error
	CachedForCandidate(ctx context.Context, candidateID string, limit int) ([]store.MatchRecord, error)
	CachedForJob(ctx context.Context, jobID string, limit int) ([]store.MatchRecord, error)
	CountForCandidate(ctx context.Context, candidateID string) (int, error)
	ListStaleCandidates(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
	AgencyTier(ctx context.Context, agencyID string) (string, error)
}

// Gate serializes regeneration per anchor entity.
type Gate interface {
	ClaimCandidate(ctx context.Context, candidateID string) (policy.Decision, error)
	ClaimJob(ctx context.Context, jobID string, tier policy.Tier) (policy.Decision, error)
	ReleaseCandidate(ctx context.Context, candidateID string) error
	ReleaseJob(ctx context.Context, jobID string) error
}

// ─── Results and errors ──────────────────────────────────────────────────────

// Match is one ranked pairing as returned to the portals. Job is populated
// on candidate-anchored runs, Candidate on job-anchored runs; cached reads
// carry ids only (the portals enrich from their own views).
type Match struct {
	CandidateID    string                  `json:"candidateId"`
	JobID          string                  `json:"jobId"`
	OverallScore   int                     `json:"overallScore"`
	Breakdown      matching.ScoreBreakdown `json:"breakdown"`
	MatchingSkills []string                `json:"matchingSkills"`
	MissingSkills  []string                `json:"missingSkills"`
	Status         string                  `json:"status,omitempty"`
	Job            *model.JobPosting       `json:"job,omitempty"`
	Candidate      *model.CandidateProfile `json:"candidate,omitempty"`
}

// Generation is the outcome of one matching request.
type Generation struct {
	Matches     []Match   `json:"matches"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
	Persisted   bool      `json:"persisted"`
	Message     string    `json:"message,omitempty"`
}

// Sentinel errors for missing anchor entities.
var (
	ErrCandidateNotFound = fmt.Errorf("candidate not found")
	ErrJobNotFound       = fmt.Errorf("job not found")
)

// RateLimitError is returned when the regeneration policy rejects a
// job-initiated run. It carries everything the caller needs to retry at the
// right moment.
type RateLimitError struct {
	NextAllowedAt time.Time
	Tier          policy.Tier
	LimitHours    int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s tier, next run at %s",
		e.Tier, e.NextAllowedAt.Format(time.RFC3339))
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service orchestrates one matching run: gate, fetch, rank, persist.
type Service struct {
	store      Store
	gate       Gate
	engine     *matching.Engine
	rdb        *redis.Client // optional; refresh events are skipped when nil
	staleness  time.Duration
	refreshNow func() time.Time
}

// NewService wires the matching service. staleness is the window used to
// pick up candidates for scheduled refresh; it should match the gate's
// candidate window.
func NewService(st Store, gate Gate, engine *matching.Engine, rdb *redis.Client, staleness time.Duration) *Service {
	return &Service{
		store:      st,
		gate:       gate,
		engine:     engine,
		rdb:        rdb,
		staleness:  staleness,
		refreshNow: time.Now,
	}
}

// GenerateForCandidate runs the candidate→jobs flow. The regeneration
// policy is soft: while the previous run is fresh, cached records are served
// instead of recomputing.
func (s *Service) GenerateForCandidate(ctx context.Context, candidateID string, poolLimit int) (*Generation, error) {
	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, err
	}

	if poolLimit <= 0 {
		poolLimit = DefaultJobPool
	}

	decision, err := s.gate.ClaimCandidate(ctx, candidateID)
	if err != nil {
		slog.Warn("regeneration gate unavailable, proceeding",
			"candidateId", candidateID, "err", err)
	}
	if !decision.Allowed {
		return s.cachedForCandidate(ctx, candidateID)
	}

	jobs, err := s.store.ListActiveJobs(ctx, poolLimit)
	if err != nil {
		s.release(ctx, candidateID, "")
		return nil, err
	}
	if len(jobs) == 0 {
		s.release(ctx, candidateID, "")
		return &Generation{
			Matches:     []Match{},
			GeneratedAt: s.refreshNow().UTC(),
			Message:     "no active jobs to match against",
		}, nil
	}

	ranked, err := s.engine.RankJobsForCandidate(ctx, candidate, jobs)
	if err != nil {
		// Cancelled mid-scan: nothing is persisted, the claim is released.
		s.release(ctx, candidateID, "")
		return nil, err
	}

	now := s.refreshNow().UTC()
	top := ranked
	if limit := s.engine.Config().PersistLimit; len(top) > limit {
		top = top[:limit]
	}

	records := make([]store.MatchRecord, 0, len(top))
	matches := make([]Match, 0, len(top))
	for _, m := range top {
		records = append(records, store.MatchRecord{
			CandidateID:    candidateID,
			JobID:          m.Job.ID,
			OverallScore:   m.OverallScore,
			Breakdown:      m.Breakdown,
			MatchingSkills: m.MatchingSkills,
			MissingSkills:  m.MissingSkills,
			Status:         store.StatusPending,
			GeneratedAt:    now,
		})
		job := m.Job
		matches = append(matches, Match{
			CandidateID:    candidateID,
			JobID:          m.Job.ID,
			OverallScore:   m.OverallScore,
			Breakdown:      m.Breakdown,
			MatchingSkills: m.MatchingSkills,
			MissingSkills:  m.MissingSkills,
			Status:         store.StatusPending,
			Job:            &job,
		})
	}

	persisted := s.persist(ctx, records, candidateID, "")
	if persisted {
		s.publishRefresh(ctx, candidateID, "", len(ranked))
	}

	gen := &Generation{
		Matches:     matches,
		Total:       len(ranked),
		GeneratedAt: now,
		Persisted:   persisted,
	}
	if len(ranked) == 0 {
		gen.Message = "no jobs cleared the minimum score"
	}
	return gen, nil
}

// GenerateForJob runs the job→candidates flow. The regeneration policy is
// hard: inside the agency tier's window the request is rejected with a
// RateLimitError rather than served from cache.
func (s *Service) GenerateForJob(ctx context.Context, jobID, agencyID string, poolLimit int) (*Generation, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	if poolLimit <= 0 {
		poolLimit = DefaultCandidatePool
	}

	rawTier, err := s.store.AgencyTier(ctx, agencyID)
	if err != nil {
		slog.Warn("agency tier lookup failed, assuming free tier",
			"agencyId", agencyID, "err", err)
		rawTier = string(policy.TierFree)
	}
	tier := policy.ParseTier(rawTier)

	decision, err := s.gate.ClaimJob(ctx, jobID, tier)
	if err != nil {
		slog.Warn("regeneration gate unavailable, proceeding",
			"jobId", jobID, "err", err)
	}
	if !decision.Allowed {
		return nil, &RateLimitError{
			NextAllowedAt: decision.NextAllowedAt,
			Tier:          tier,
			LimitHours:    int(decision.Interval.Hours()),
		}
	}

	candidates, err := s.store.ListActiveCandidates(ctx, poolLimit)
	if err != nil {
		s.release(ctx, "", jobID)
		return nil, err
	}
	if len(candidates) == 0 {
		s.release(ctx, "", jobID)
		return &Generation{
			Matches:     []Match{},
			GeneratedAt: s.refreshNow().UTC(),
			Message:     "no active candidates to match against",
		}, nil
	}

	ranked, err := s.engine.RankCandidatesForJob(ctx, job, candidates)
	if err != nil {
		s.release(ctx, "", jobID)
		return nil, err
	}

	now := s.refreshNow().UTC()
	top := ranked
	if limit := s.engine.Config().PersistLimit; len(top) > limit {
		top = top[:limit]
	}

	records := make([]store.MatchRecord, 0, len(top))
	matches := make([]Match, 0, len(top))
	for _, m := range top {
		records = append(records, store.MatchRecord{
			CandidateID:    m.Candidate.ID,
			JobID:          jobID,
			OverallScore:   m.OverallScore,
			Breakdown:      m.Breakdown,
			MatchingSkills: m.MatchingSkills,
			MissingSkills:  m.MissingSkills,
			Status:         store.StatusPending,
			GeneratedAt:    now,
		})
		candidate := m.Candidate
		matches = append(matches, Match{
			CandidateID:    m.Candidate.ID,
			JobID:          jobID,
			OverallScore:   m.OverallScore,
			Breakdown:      m.Breakdown,
			MatchingSkills: m.MatchingSkills,
			MissingSkills:  m.MissingSkills,
			Status:         store.StatusPending,
			Candidate:      &candidate,
		})
	}

	persisted := s.persist(ctx, records, "", jobID)
	if persisted {
		s.publishRefresh(ctx, "", jobID, len(ranked))
	}

	gen := &Generation{
		Matches:     matches,
		Total:       len(ranked),
		GeneratedAt: now,
		Persisted:   persisted,
	}
	if len(ranked) == 0 {
		gen.Message = "no candidates cleared the minimum score"
	}
	return gen, nil
}

// CachedCandidateMatches returns a candidate's persisted matches without
// triggering regeneration.
func (s *Service) CachedCandidateMatches(ctx context.Context, candidateID string, limit int) (*Generation, error) {
	if limit <= 0 {
		limit = s.engine.Config().PersistLimit
	}
	records, err := s.store.CachedForCandidate(ctx, candidateID, limit)
	if err != nil {
		return nil, err
	}
	return cachedGeneration(records, len(records)), nil
}

// CachedJobMatches returns a job's persisted matches without triggering
// regeneration.
func (s *Service) CachedJobMatches(ctx context.Context, jobID string, limit int) (*Generation, error) {
	if limit <= 0 {
		limit = s.engine.Config().PersistLimit
	}
	records, err := s.store.CachedForJob(ctx, jobID, limit)
	if err != nil {
		return nil, err
	}
	return cachedGeneration(records, len(records)), nil
}

// RefreshStale re-runs the candidate flow for up to limit candidates whose
// matches have outlived the staleness window. Per-candidate failures are
// logged and the sweep continues.
func (s *Service) RefreshStale(ctx context.Context, limit int) (int, error) {
	cutoff := s.refreshNow().UTC().Add(-s.staleness)
	ids, err := s.store.ListStaleCandidates(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.GenerateForCandidate(ctx, id, DefaultJobPool); err != nil {
			slog.Warn("stale refresh failed", "candidateId", id, "err", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// ─── Internals ───────────────────────────────────────────────────────────────

func (s *Service) cachedForCandidate(ctx context.Context, candidateID string) (*Generation, error) {
	records, err := s.store.CachedForCandidate(ctx, candidateID, s.engine.Config().PersistLimit)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountForCandidate(ctx, candidateID)
	if err != nil {
		total = len(records)
	}

	gen := cachedGeneration(records, total)
	gen.Message = "using recent matches"
	return gen, nil
}

func cachedGeneration(records []store.MatchRecord, total int) *Generation {
	matches := make([]Match, 0, len(records))
	var newest time.Time
	for _, r := range records {
		matches = append(matches, Match{
			CandidateID:    r.CandidateID,
			JobID:          r.JobID,
			OverallScore:   r.OverallScore,
			Breakdown:      r.Breakdown,
			MatchingSkills: r.MatchingSkills,
			MissingSkills:  r.MissingSkills,
			Status:         r.Status,
		})
		if r.GeneratedAt.After(newest) {
			newest = r.GeneratedAt
		}
	}
	return &Generation{
		Matches:     matches,
		Total:       total,
		GeneratedAt: newest,
		Cached:      true,
		Persisted:   len(records) > 0,
	}
}

// persist writes the records; an empty batch or a write failure releases the
// claim so the caller's window is not burned. Persistence is best-effort —
// ranked results are returned to the caller either way.
func (s *Service) persist(ctx context.Context, records []store.MatchRecord, candidateID, jobID string) bool {
	if len(records) == 0 {
		s.release(ctx, candidateID, jobID)
		return false
	}
	if err := s.store.UpsertMatches(ctx, records); err != nil {
		slog.Warn("persisting match records failed, returning unsaved results",
			"candidateId", candidateID, "jobId", jobID, "err", err)
		s.release(ctx, candidateID, jobID)
		return false
	}
	return true
}

func (s *Service) release(ctx context.Context, candidateID, jobID string) {
	var err error
	if candidateID != "" {
		err = s.gate.ReleaseCandidate(ctx, candidateID)
	} else if jobID != "" {
		err = s.gate.ReleaseJob(ctx, jobID)
	}
	if err != nil {
		slog.Warn("releasing regeneration claim failed",
			"candidateId", candidateID, "jobId", jobID, "err", err)
	}
}

// publishRefresh notifies the platform's SSE fan-out channel (non-fatal).
func (s *Service) publishRefresh(ctx context.Context, candidateID, jobID string, total int) {
	if s.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]any{
		"type":        "EVENT_MATCHES_REFRESHED",
		"candidateId": candidateID,
		"jobId":       jobID,
		"total":       total,
	})
	if err := s.rdb.Publish(ctx, "EVENT_MATCHES_REFRESHED", event).Err(); err != nil {
		slog.Warn("publish EVENT_MATCHES_REFRESHED failed", "err", err)
	}
}
