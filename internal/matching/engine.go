// Package matching implements the candidate↔job compatibility engine.
//
// Scoring is symmetric: Score(candidate, job) yields the same result whether
// the caller anchors on the candidate (candidate portal) or on the job
// (agency portal). The engine is pure — no I/O, no clocks, no randomness —
// so identical inputs always produce identical results. Absent optional
// fields degrade to documented neutral scores; scoring never fails.
package matching

import (
	"fmt"
	"math"
	"strings"

	"jobmate/matching-service/internal/model"
)

// Weights distributes the overall score across the six sub-scores.
// They must sum to 1.0.
type Weights struct {
	Skills      float64
	Salary      float64
	Experience  float64
	Arrangement float64
	Shift       float64
	Location    float64
}

// Sum returns the total of all six weights.
func (w Weights) Sum() float64 {
	return w.Skills + w.Salary + w.Experience + w.Arrangement + w.Shift + w.Location
}

// Validate rejects weight sets that do not sum to 1.0 (within float noise).
func (w Weights) Validate() error {
	if diff := math.Abs(w.Sum() - 1.0); diff > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %v", w.Sum())
	}
	return nil
}

// Config carries every tunable of the matching core in one place so
// operators can retune without touching the algorithm body.
type Config struct {
	Weights      Weights
	MinScore     int // ranked results below this are dropped
	PersistLimit int // top-N records handed to the persistence gateway
	Workers      int // concurrent scoring goroutines per batch
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Skills:      0.40,
			Salary:      0.25,
			Experience:  0.15,
			Arrangement: 0.10,
			Shift:       0.05,
			Location:    0.05,
		},
		MinScore:     40,
		PersistLimit: 20,
		Workers:      8,
	}
}

// Validate checks the full config.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("min score must be in [0,100], got %d", c.MinScore)
	}
	if c.PersistLimit < 1 {
		return fmt.Errorf("persist limit must be positive, got %d", c.PersistLimit)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// ScoreBreakdown holds the six sub-scores, each in [0,100].
type ScoreBreakdown struct {
	Skills      int `json:"skills_score"`
	Salary      int `json:"salary_score"`
	Experience  int `json:"experience_score"`
	Arrangement int `json:"arrangement_score"`
	Shift       int `json:"shift_score"`
	Location    int `json:"location_score"`
}

// MatchResult is the outcome of scoring one candidate against one job.
type MatchResult struct {
	OverallScore   int            `json:"overall_score"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	MatchingSkills []string       `json:"matching_skills"`
	MissingSkills  []string       `json:"missing_skills"`
}

// Engine scores candidate/job pairs under a fixed Config.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns a ready Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("matching config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's tuning.
func (e *Engine) Config() Config { return e.cfg }

// Score computes the multi-factor compatibility between one candidate and
// one job. Inputs must be normalized snapshots (see the model package); the
// engine never handles stringly-typed ambiguity.
func (e *Engine) Score(c model.CandidateProfile, j model.JobPosting) MatchResult {
	breakdown := ScoreBreakdown{
		Skills:      skillsScore(c.Skills, j.Skills),
		Salary:      salaryScore(c.ExpectedSalaryMin, c.ExpectedSalaryMax, j.SalaryMin, j.SalaryMax),
		Experience:  experienceScore(c.ExperienceYears, j.Title),
		Arrangement: arrangementScore(c.PreferredArrangement, j.Arrangement),
		Shift:       shiftScore(c.PreferredShift, j.Shift),
		Location:    locationScore(c.City, j.City, j.Arrangement),
	}

	matching, missing := skillOverlap(c.Skills, j.Skills)

	return MatchResult{
		OverallScore:   e.overall(breakdown),
		Breakdown:      breakdown,
		MatchingSkills: matching,
		MissingSkills:  missing,
	}
}

func (e *Engine) overall(b ScoreBreakdown) int {
	w := e.cfg.Weights
	sum := float64(b.Skills)*w.Skills +
		float64(b.Salary)*w.Salary +
		float64(b.Experience)*w.Experience +
		float64(b.Arrangement)*w.Arrangement +
		float64(b.Shift)*w.Shift +
		float64(b.Location)*w.Location
	return int(math.Round(sum))
}

// ─── Sub-scores ──────────────────────────────────────────────────────────────

// skillsScore is the fraction of required job skills the candidate has.
// A job requiring no skills scores 100 — there is nothing to fail.
func skillsScore(candidate, required []string) int {
	if len(required) == 0 {
		return 100
	}
	have := make(map[string]struct{}, len(candidate))
	for _, s := range candidate {
		have[s] = struct{}{}
	}
	matched := 0
	for _, s := range required {
		if _, ok := have[s]; ok {
			matched++
		}
	}
	return int(math.Round(float64(matched) / float64(len(required)) * 100))
}

// skillOverlap returns the tokens present on both sides (candidate order)
// and the required tokens the candidate lacks (job order). Candidate-only
// tokens are never reported as missing.
func skillOverlap(candidate, required []string) (matching, missing []string) {
	req := make(map[string]struct{}, len(required))
	for _, s := range required {
		req[s] = struct{}{}
	}
	have := make(map[string]struct{}, len(candidate))
	matching = make([]string, 0, len(candidate))
	for _, s := range candidate {
		have[s] = struct{}{}
		if _, ok := req[s]; ok {
			matching = append(matching, s)
		}
	}
	missing = make([]string, 0, len(required))
	for _, s := range required {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return matching, missing
}

// salaryScore compares expectation against offer. When only a minimum is
// known, the maximum defaults to min*1.3 on either side.
func salaryScore(candMin, candMax, jobMin, jobMax *int) int {
	if candMin == nil && candMax == nil {
		return 85 // candidate expressed nothing — neutral, not full marks
	}
	if jobMin == nil && jobMax == nil {
		return 85
	}

	cMin := float64(intOrZero(candMin))
	cMax := float64(intOrZero(candMax))
	if candMax == nil {
		cMax = cMin * 1.3
	}
	jMin := float64(intOrZero(jobMin))
	jMax := float64(intOrZero(jobMax))
	if jobMax == nil {
		jMax = jMin * 1.3
	}

	// Deal breaker: candidate wants more than the job can pay.
	if cMin > jMax && jMax > 0 {
		return 15
	}
	// Candidate undervaluing themselves — still viable.
	if cMax < jMin {
		return 70
	}
	if math.Min(cMax, jMax) >= math.Max(cMin, jMin) {
		return 95
	}
	return 60
}

// experienceScore infers a required-years baseline from the job title and
// decays in bands by distance from it.
func experienceScore(years int, jobTitle string) int {
	title := strings.ToLower(jobTitle)

	required := 3
	switch {
	case strings.Contains(title, "junior") || strings.Contains(title, "entry"):
		required = 1
	case strings.Contains(title, "senior") || strings.Contains(title, "lead") || strings.Contains(title, "principal"):
		required = 5
	case strings.Contains(title, "manager") || strings.Contains(title, "director"):
		required = 7
	}

	diff := years - required
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 1:
		return 100
	case diff <= 2:
		return 85
	case diff <= 3:
		return 70
	case diff <= 5:
		return 50
	default:
		return 35
	}
}

func arrangementScore(candPref, jobArrangement string) int {
	if candPref == "" || jobArrangement == "" {
		return 80
	}
	switch {
	case candPref == jobArrangement:
		return 100
	case candPref == "hybrid" || jobArrangement == "hybrid":
		return 85
	case candPref == "flexible":
		return 95
	case candPref == "remote" && jobArrangement == "onsite":
		return 25 // hard mismatch
	case candPref == "onsite" && jobArrangement == "remote":
		return 70 // candidate concedes more easily
	default:
		return 60
	}
}

func shiftScore(candShift, jobShift string) int {
	if candShift == "" || jobShift == "" {
		return 80
	}
	nocturnal := func(s string) bool { return s == "night" || s == "graveyard" }
	switch {
	case candShift == jobShift:
		return 100
	case candShift == "flexible" || jobShift == "flexible":
		return 95
	case candShift == "day" && nocturnal(jobShift):
		return 25
	case nocturnal(candShift) && jobShift == "day":
		return 45 // asymmetric: switching back to days is the lesser pain
	default:
		return 60
	}
}

// locationScore: a remote job makes cities irrelevant. Unknown cities are
// never penalized beyond neutral.
func locationScore(candCity, jobCity, jobArrangement string) int {
	if jobArrangement == "remote" {
		return 95
	}
	if candCity == "" || jobCity == "" {
		return 70
	}
	if strings.EqualFold(candCity, jobCity) {
		return 100
	}
	if jobArrangement == "hybrid" {
		return 65
	}
	return 35
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
