package casefile

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
)

// Balancer auto-assigns unassigned cases using live workload snapshots.
//
// The count-then-write sequence is deliberately not serialized: two
// concurrent auto-assigns may both observe the same least-loaded counselor
// and both assign to them. That degrades fairness, never correctness — each
// case still ends up with exactly one counselor, because the assignment
// itself is a single write per case.
type Balancer struct {
	store   Store
	logger  log.Logger
	metrics *Metrics
}

// NewBalancer creates a new assignment balancer.
func NewBalancer(store Store, logger log.Logger, metrics *Metrics) *Balancer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Balancer{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// AutoAssign picks the candidate with the fewest open cases and assigns the
// case to them through the system path (no unassigned guard: this call is
// itself the assigner). Ties go to the earlier candidate, so the result is
// deterministic for a fixed candidate ordering. An empty candidate list
// returns (nil, nil) and mutates nothing.
func (b *Balancer) AutoAssign(ctx context.Context, caseID string, candidates []string) (*Case, error) {
	if len(candidates) == 0 {
		b.logger.Warn(ctx, "no candidates for auto-assignment", "case_id", caseID)
		if b.metrics != nil {
			b.metrics.AutoAssigns.WithLabelValues("no_candidates").Inc()
		}
		return nil, nil
	}

	best := candidates[0]
	bestCount := -1
	for _, id := range candidates {
		n, err := b.store.CountActive(ctx, id)
		if err != nil {
			return nil, err
		}
		if bestCount < 0 || n < bestCount {
			best = id
			bestCount = n
		}
	}

	c, err := b.store.Assign(ctx, caseID, best, nowUTC())
	if err != nil {
		if b.metrics != nil {
			b.metrics.AutoAssigns.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if b.metrics != nil {
		b.metrics.AutoAssigns.WithLabelValues("assigned").Inc()
	}
	b.logger.Info(ctx, "case auto-assigned",
		"case_id", c.ID,
		"case_code", c.Code,
		"counselor_id", best,
		"existing_cases", bestCount,
	)
	return c, nil
}

// Workload returns a counselor's live load snapshot.
func (b *Balancer) Workload(ctx context.Context, counselorID string) (Workload, error) {
	return b.store.Workload(ctx, counselorID)
}

// AllWorkloads returns per-counselor load for every counselor holding open
// cases, for dashboard aggregation.
func (b *Balancer) AllWorkloads(ctx context.Context) (map[string]Workload, error) {
	return b.store.AllWorkloads(ctx)
}
