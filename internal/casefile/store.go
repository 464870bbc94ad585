package casefile

import (
	"context"
	"time"
)

// Store is the persistence interface for cases.
//
// Claim must be a single conditional write at the storage layer: it succeeds
// only when the case currently has no counselor, so at most one of any number
// of concurrent claims wins. Assign is the system-initiated path used by
// auto-assignment and skips that guard.
type Store interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, id string) (*Case, bool, error)
	GetByReportID(ctx context.Context, reportID string) (*Case, bool, error)

	Claim(ctx context.Context, id, counselorID string, now time.Time) (*Case, error)
	Assign(ctx context.Context, id, counselorID string, now time.Time) (*Case, error)
	SetStatus(ctx context.Context, id string, status Status, closedAt *time.Time, now time.Time) (*Case, error)
	SetRisk(ctx context.Context, id string, level RiskLevel, notes *string, now time.Time) (*Case, error)

	ListUnassigned(ctx context.Context) ([]Case, error)
	ListByCounselor(ctx context.Context, counselorID string) ([]Case, error)
	ListAll(ctx context.Context) ([]Case, error)

	CountActive(ctx context.Context, counselorID string) (int, error)
	Workload(ctx context.Context, counselorID string) (Workload, error)
	AllWorkloads(ctx context.Context) (map[string]Workload, error)
}
