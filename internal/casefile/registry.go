package casefile

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// Registry is the business boundary for case lifecycle operations. It owns
// the state machine and ownership checks; the Store owns atomicity.
type Registry struct {
	store   Store
	logger  log.Logger
	metrics *Metrics
}

// NewRegistry creates a new case registry.
func NewRegistry(store Store, logger log.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Create opens a new case for a submitted report. Exactly one case may exist
// per report; a second create for the same report fails with
// ErrDuplicateReport, enforced by the store's uniqueness guarantee.
func (r *Registry) Create(ctx context.Context, reportID, studentID string) (*Case, error) {
	if reportID == "" || studentID == "" {
		return nil, fmt.Errorf("%w: reportId and studentId are required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	c := &Case{
		ID:        ulid.Make().String(),
		Code:      NewCaseCode(),
		ReportID:  reportID,
		StudentID: studentID,
		Status:    StatusNew,
		RiskLevel: RiskLow,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.Create(ctx, c); err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.CasesCreated.Inc()
	}
	r.logger.Info(ctx, "case created", "case_id", c.ID, "case_code", c.Code, "report_id", reportID)
	return c, nil
}

// Claim self-assigns an unassigned case to a counselor. The store performs
// the conditional write, so under concurrent claims exactly one caller wins;
// the rest receive ErrAlreadyAssigned.
func (r *Registry) Claim(ctx context.Context, id, counselorID string) (*Case, error) {
	if counselorID == "" {
		return nil, fmt.Errorf("%w: counselorId is required", ErrInvalidInput)
	}

	c, err := r.store.Claim(ctx, id, counselorID, time.Now().UTC())
	if err != nil {
		if r.metrics != nil {
			r.metrics.Claims.WithLabelValues("lost").Inc()
		}
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.Claims.WithLabelValues("won").Inc()
	}
	r.logger.Info(ctx, "case claimed", "case_id", c.ID, "counselor_id", counselorID)
	return c, nil
}

// UpdateStatus applies a counselor-driven status change. Only the assigned
// counselor may call it; new is only left via claim/assign, and closed is
// terminal. Closing stamps closedAt.
func (r *Registry) UpdateStatus(ctx context.Context, id string, status Status, callerCounselorID string) (*Case, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	c, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if c.CounselorID != callerCounselorID {
		return nil, ErrNotOwner
	}
	if c.Status == StatusClosed {
		return nil, ErrCaseClosed
	}
	if !canTransition(c.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.Status, status)
	}

	now := time.Now().UTC()
	var closedAt *time.Time
	if status == StatusClosed {
		closedAt = &now
	}

	updated, err := r.store.SetStatus(ctx, id, status, closedAt, now)
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.StatusTransitions.WithLabelValues(string(c.Status), string(status)).Inc()
	}
	r.logger.Info(ctx, "case status updated", "case_id", id, "from", c.Status, "to", status)
	return updated, nil
}

// UpdateRiskLevel changes a case's risk classification and optionally its
// notes. It does not touch status. The previous level is returned so callers
// can detect a raise to critical, which system-triggers an escalation.
func (r *Registry) UpdateRiskLevel(ctx context.Context, id string, level RiskLevel, notes *string, callerCounselorID string) (*Case, RiskLevel, error) {
	if !level.Valid() {
		return nil, "", fmt.Errorf("%w: unknown risk level %q", ErrInvalidInput, level)
	}

	c, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrNotFound
	}
	if c.CounselorID != callerCounselorID {
		return nil, "", ErrNotOwner
	}
	if c.Status == StatusClosed {
		return nil, "", ErrCaseClosed
	}

	updated, err := r.store.SetRisk(ctx, id, level, notes, time.Now().UTC())
	if err != nil {
		return nil, "", err
	}

	if r.metrics != nil {
		r.metrics.RiskUpdates.WithLabelValues(string(level)).Inc()
	}
	r.logger.Info(ctx, "case risk updated", "case_id", id, "from", c.RiskLevel, "to", level)
	return updated, c.RiskLevel, nil
}

// Get retrieves a case by ID.
func (r *Registry) Get(ctx context.Context, id string) (*Case, bool, error) {
	return r.store.Get(ctx, id)
}

// GetByReportID retrieves the case opened for a report.
func (r *Registry) GetByReportID(ctx context.Context, reportID string) (*Case, bool, error) {
	return r.store.GetByReportID(ctx, reportID)
}

// ListUnassigned returns the pool of claimable cases, oldest first.
func (r *Registry) ListUnassigned(ctx context.Context) ([]Case, error) {
	return r.store.ListUnassigned(ctx)
}

// ListByCounselor returns a counselor's open cases, most recently updated
// first. Closed cases are excluded.
func (r *Registry) ListByCounselor(ctx context.Context, counselorID string) ([]Case, error) {
	return r.store.ListByCounselor(ctx, counselorID)
}

// ListAll returns every case, newest first.
func (r *Registry) ListAll(ctx context.Context) ([]Case, error) {
	return r.store.ListAll(ctx)
}
