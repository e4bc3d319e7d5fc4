// Package policy decides when a fresh match generation may run.
//
// Two regimes exist, matching the two call directions:
//
//   - candidate-initiated runs are soft-gated: while the previous run is
//     fresh the caller is simply served the cached records.
//   - job-initiated runs are hard-gated by the agency's subscription tier:
//     inside the tier window the request is rejected outright, with the
//     exact instant a retry becomes permitted.
//
// The freshness check and the decision to run are one atomic operation per
// anchor: the gate takes a redis claim through a server-side script, so two
// concurrent requests for the same anchor can never both proceed. The window
// is always judged against the caller's current interval, not the one in
// force when the claim was taken — a tier upgrade shortens the window and an
// already-elapsed run must be admitted immediately.
package policy

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier is an agency subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierStandard   Tier = "standard"
	TierEnterprise Tier = "enterprise"
)

// ParseTier maps a raw subscription value to a Tier. Unknown or empty values
// fall back to free, the most restrictive window.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierStandard:
		return TierStandard
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}

// Config holds the regeneration windows.
type Config struct {
	// CandidateStaleness is the soft window for candidate-initiated runs.
	CandidateStaleness time.Duration
	// TierIntervals is the minimum spacing between job-initiated runs,
	// per subscription tier.
	TierIntervals map[Tier]time.Duration
}

// DefaultConfig returns the production windows.
func DefaultConfig() Config {
	return Config{
		CandidateStaleness: 24 * time.Hour,
		TierIntervals: map[Tier]time.Duration{
			TierFree:       168 * time.Hour, // one week
			TierStandard:   24 * time.Hour,
			TierEnterprise: time.Hour,
		},
	}
}

// IntervalFor returns the window for a tier, falling back to the free tier
// for anything unconfigured.
func (c Config) IntervalFor(t Tier) time.Duration {
	if d, ok := c.TierIntervals[t]; ok {
		return d
	}
	return c.TierIntervals[TierFree]
}

// NextAllowed returns the instant a new job-initiated run becomes permitted
// after one ran at last.
func (c Config) NextAllowed(t Tier, last time.Time) time.Time {
	return last.Add(c.IntervalFor(t))
}

// Decision is the gate's verdict for one request.
type Decision struct {
	Allowed       bool
	NextAllowedAt time.Time // zero when Allowed
	Tier          Tier      // set on job-initiated decisions
	Interval      time.Duration
}

// Gate serializes regeneration per anchor entity through redis claims.
type Gate struct {
	rdb *redis.Client
	cfg Config
	now func() time.Time
}

// NewGate returns a Gate over rdb.
func NewGate(rdb *redis.Client, cfg Config) *Gate {
	return &Gate{rdb: rdb, cfg: cfg, now: time.Now}
}

func candidateKey(id string) string { return "matchgen:candidate:" + id }
func jobKey(id string) string       { return "matchgen:job:" + id }

// ClaimCandidate attempts to take the soft regeneration claim for a
// candidate. A held claim means the cached records are still fresh.
func (g *Gate) ClaimCandidate(ctx context.Context, candidateID string) (Decision, error) {
	return g.claim(ctx, candidateKey(candidateID), "", g.cfg.CandidateStaleness)
}

// ClaimJob attempts to take the hard regeneration claim for a job under the
// given tier's window. A held claim means the request must be rejected.
func (g *Gate) ClaimJob(ctx context.Context, jobID string, tier Tier) (Decision, error) {
	return g.claim(ctx, jobKey(jobID), tier, g.cfg.IntervalFor(tier))
}

// claimScript is the single check-and-commit step, run server-side so the
// read and the write cannot interleave with a concurrent caller. The claim
// value is the claim instant in unix milliseconds. The claim is taken when
// the key is absent, and taken over when the held claim already predates the
// caller's interval — the window may have shrunk since the claim was made.
// Returns -1 when the claim was taken, otherwise the unix-milli instant the
// held claim's window ends.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local held = tonumber(redis.call('GET', KEYS[1]))
if held and now - held < interval then
	return held + interval
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return -1
`)

// claim runs claimScript for one anchor key.
//
// If redis is unreachable the gate fails open: rate limiting protects shared
// compute, it is not a correctness invariant. The error is returned so the
// caller can log it.
func (g *Gate) claim(ctx context.Context, key string, tier Tier, interval time.Duration) (Decision, error) {
	now := g.now().UTC()

	res, err := claimScript.Run(ctx, g.rdb, []string{key},
		now.UnixMilli(), interval.Milliseconds()).Int64()
	if err != nil {
		return Decision{Allowed: true, Tier: tier, Interval: interval}, err
	}
	if res < 0 {
		return Decision{Allowed: true, Tier: tier, Interval: interval}, nil
	}
	return Decision{
		Allowed:       false,
		NextAllowedAt: time.UnixMilli(res).UTC(),
		Tier:          tier,
		Interval:      interval,
	}, nil
}

// ReleaseCandidate drops a candidate claim. Called when a run produced
// nothing persistable (empty pool, cancellation, persistence failure) so the
// window is not burned.
func (g *Gate) ReleaseCandidate(ctx context.Context, candidateID string) error {
	return g.rdb.Del(ctx, candidateKey(candidateID)).Err()
}

// ReleaseJob drops a job claim.
func (g *Gate) ReleaseJob(ctx context.Context, jobID string) error {
	return g.rdb.Del(ctx, jobKey(jobID)).Err()
}
