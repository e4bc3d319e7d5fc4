package matching

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"jobmate/matching-service/internal/model"
)

// JobMatch pairs a scored job with its result, for candidate-anchored runs.
type JobMatch struct {
	Job model.JobPosting `json:"job"`
	MatchResult
}

// CandidateMatch pairs a scored candidate with its result, for job-anchored
// runs.
type CandidateMatch struct {
	Candidate model.CandidateProfile `json:"candidate"`
	MatchResult
}

// RankJobsForCandidate scores the candidate against every job in the pool,
// drops results below MinScore and sorts the rest by overall score
// descending. Ties keep the pool's input order (stable sort), so output is
// deterministic for a given pool ordering.
//
// Pairs are scored concurrently by a bounded worker group; results land in a
// pre-sized slice by index, so goroutine scheduling never affects order.
// Cancelling ctx aborts the scan; partial results are discarded.
func (e *Engine) RankJobsForCandidate(ctx context.Context, c model.CandidateProfile, jobs []model.JobPosting) ([]JobMatch, error) {
	results, err := e.scoreAll(ctx, len(jobs), func(i int) MatchResult {
		return e.Score(c, jobs[i])
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]JobMatch, 0, len(jobs))
	for i, r := range results {
		if r.OverallScore < e.cfg.MinScore {
			continue
		}
		ranked = append(ranked, JobMatch{Job: jobs[i], MatchResult: r})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].OverallScore > ranked[b].OverallScore
	})
	return ranked, nil
}

// RankCandidatesForJob is the mirror of RankJobsForCandidate: same scoring,
// same filter and ordering rules, anchored on a job.
func (e *Engine) RankCandidatesForJob(ctx context.Context, j model.JobPosting, candidates []model.CandidateProfile) ([]CandidateMatch, error) {
	results, err := e.scoreAll(ctx, len(candidates), func(i int) MatchResult {
		return e.Score(candidates[i], j)
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]CandidateMatch, 0, len(candidates))
	for i, r := range results {
		if r.OverallScore < e.cfg.MinScore {
			continue
		}
		ranked = append(ranked, CandidateMatch{Candidate: candidates[i], MatchResult: r})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].OverallScore > ranked[b].OverallScore
	})
	return ranked, nil
}

// scoreAll fans n scoring calls across cfg.Workers goroutines.
func (e *Engine) scoreAll(ctx context.Context, n int, score func(i int) MatchResult) ([]MatchResult, error) {
	results := make([]MatchResult, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = score(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
