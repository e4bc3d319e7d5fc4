package matching_test

import (
	"context"
	"testing"

	"jobmate/matching-service/internal/matching"
	"jobmate/matching-service/internal/model"
)

func rankCandidate() model.CandidateProfile {
	return model.CandidateProfile{
		ID:                   "cand-1",
		Skills:               []string{"excel", "customer service"},
		ExperienceYears:      3,
		ExpectedSalaryMin:    intp(40000),
		ExpectedSalaryMax:    intp(50000),
		PreferredArrangement: "remote",
		PreferredShift:       "night",
		City:                 "Manila",
	}
}

// Three jobs against rankCandidate: strong (99), middling (77), and one that
// falls under the default threshold of 40 and must be dropped.
func rankPool() []model.JobPosting {
	return []model.JobPosting{
		{
			ID:        "job-weak",
			Title:     "Senior Welder",
			Skills:    []string{"welding", "forklift"},
			SalaryMin: intp(20000), SalaryMax: intp(25000),
			Arrangement: "onsite", Shift: "graveyard", City: "Cebu",
		},
		{
			ID:        "job-mid",
			Title:     "Customer Service Representative",
			Skills:    []string{"excel", "zendesk"},
			SalaryMin: intp(45000), SalaryMax: intp(60000),
			Arrangement: "hybrid", Shift: "flexible", City: "Manila",
		},
		{
			ID:        "job-strong",
			Title:     "Customer Support Specialist",
			Skills:    []string{"excel", "customer service"},
			SalaryMin: intp(40000), SalaryMax: intp(55000),
			Arrangement: "remote", Shift: "night",
		},
	}
}

func TestRankJobsForCandidate_FiltersAndSorts(t *testing.T) {
	e := newEngine(t)

	ranked, err := e.RankJobsForCandidate(context.Background(), rankCandidate(), rankPool())
	if err != nil {
		t.Fatalf("RankJobsForCandidate: %v", err)
	}

	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2 (job-weak scores below threshold)", len(ranked))
	}
	if ranked[0].Job.ID != "job-strong" || ranked[1].Job.ID != "job-mid" {
		t.Errorf("order = [%s %s], want [job-strong job-mid]", ranked[0].Job.ID, ranked[1].Job.ID)
	}
	if ranked[0].OverallScore != 99 {
		t.Errorf("job-strong overall = %d, want 99", ranked[0].OverallScore)
	}
	if ranked[1].OverallScore != 77 {
		t.Errorf("job-mid overall = %d, want 77", ranked[1].OverallScore)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].OverallScore > ranked[i-1].OverallScore {
			t.Errorf("results not sorted descending at index %d", i)
		}
	}
}

func TestRankJobsForCandidate_ThresholdIsConfigurable(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.MinScore = 0
	e, err := matching.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	ranked, err := e.RankJobsForCandidate(context.Background(), rankCandidate(), rankPool())
	if err != nil {
		t.Fatalf("RankJobsForCandidate: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d results, want all 3 with threshold 0", len(ranked))
	}
	if ranked[2].Job.ID != "job-weak" {
		t.Errorf("last result = %s, want job-weak", ranked[2].Job.ID)
	}
}

// Equal scores keep the pool's input order.
func TestRankJobsForCandidate_TiesKeepPoolOrder(t *testing.T) {
	e := newEngine(t)
	c := rankCandidate()
	twin := rankPool()[2] // job-strong
	a, b := twin, twin
	a.ID, b.ID = "job-a", "job-b"

	ranked, err := e.RankJobsForCandidate(context.Background(), c, []model.JobPosting{a, b})
	if err != nil {
		t.Fatalf("RankJobsForCandidate: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Job.ID != "job-a" || ranked[1].Job.ID != "job-b" {
		t.Errorf("tie order = [%s %s], want input order [job-a job-b]", ranked[0].Job.ID, ranked[1].Job.ID)
	}
}

func TestRankJobsForCandidate_EmptyPool(t *testing.T) {
	e := newEngine(t)

	ranked, err := e.RankJobsForCandidate(context.Background(), rankCandidate(), nil)
	if err != nil {
		t.Fatalf("RankJobsForCandidate: %v", err)
	}
	if ranked == nil {
		t.Fatal("want empty slice, got nil")
	}
	if len(ranked) != 0 {
		t.Errorf("got %d results from an empty pool", len(ranked))
	}
}

func TestRankJobsForCandidate_CancelledContext(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.RankJobsForCandidate(ctx, rankCandidate(), rankPool()); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestRankCandidatesForJob_MirrorsCandidatePath(t *testing.T) {
	e := newEngine(t)
	job := model.JobPosting{
		ID:        "job-1",
		Title:     "Customer Support Specialist",
		Skills:    []string{"excel", "customer service"},
		SalaryMin: intp(40000), SalaryMax: intp(55000),
		Arrangement: "remote", Shift: "night",
	}
	strong := rankCandidate()
	weak := model.CandidateProfile{
		ID:                   "cand-weak",
		Skills:               []string{"welding"},
		ExperienceYears:      0,
		ExpectedSalaryMin:    intp(90000),
		PreferredArrangement: "onsite",
		PreferredShift:       "day",
		City:                 "Davao",
	}

	ranked, err := e.RankCandidatesForJob(context.Background(), job, []model.CandidateProfile{weak, strong})
	if err != nil {
		t.Fatalf("RankCandidatesForJob: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("got %d results, want 1", len(ranked))
	}
	if ranked[0].Candidate.ID != "cand-1" {
		t.Errorf("top candidate = %s, want cand-1", ranked[0].Candidate.ID)
	}

	// Anchoring on the job must score the pair identically to anchoring on
	// the candidate.
	if want := e.Score(strong, job); ranked[0].MatchResult.OverallScore != want.OverallScore {
		t.Errorf("job-anchored score %d != candidate-anchored score %d", ranked[0].MatchResult.OverallScore, want.OverallScore)
	}
}
