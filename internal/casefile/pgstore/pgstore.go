// Package pgstore provides a PostgreSQL implementation of casefile.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
)

var tracer = otel.Tracer("github.com/Thomson-dev/safeVoice-backend/internal/casefile/pgstore")

//go:embed schema.sql
var schema string

// Store persists cases in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned by the
// caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const caseColumns = `id, code, report_id, student_id, counselor_id, status, risk_level,
	notes, assigned_at, closed_at, created_at, updated_at`

// Create inserts a new case. A second case for the same report violates the
// report_id uniqueness constraint and maps to ErrDuplicateReport.
func (s *Store) Create(ctx context.Context, c *casefile.Case) error {
	ctx, span := tracer.Start(ctx, "pgstore.Create", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	query := `INSERT INTO cases (` + caseColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Code, c.ReportID, c.StudentID, nullable(c.CounselorID),
		string(c.Status), string(c.RiskLevel), c.Notes,
		c.AssignedAt, c.ClosedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return casefile.ErrDuplicateReport
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// Get retrieves a case by ID.
func (s *Store) Get(ctx context.Context, id string) (*casefile.Case, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}

// GetByReportID retrieves the case opened for a report.
func (s *Store) GetByReportID(ctx context.Context, reportID string) (*casefile.Case, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByReportID", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + caseColumns + ` FROM cases WHERE report_id = $1`
	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, reportID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}

// Claim assigns the case to counselorID with a single conditional UPDATE.
// The WHERE clause only matches an unassigned row, so of any number of
// concurrent claims exactly one takes effect. When no row comes back, a
// follow-up read distinguishes a missing case from a lost race.
func (s *Store) Claim(ctx context.Context, id, counselorID string, now time.Time) (*casefile.Case, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Claim", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	query := `UPDATE cases
		SET counselor_id = $2, status = $3, assigned_at = $4, updated_at = $4
		WHERE id = $1 AND counselor_id IS NULL
		RETURNING ` + caseColumns

	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, id, counselorID, string(casefile.StatusActive), now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	_, ok, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, casefile.ErrNotFound
	}
	return nil, casefile.ErrAlreadyAssigned
}

// Assign is the system-initiated assignment path. No unassigned guard.
func (s *Store) Assign(ctx context.Context, id, counselorID string, now time.Time) (*casefile.Case, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Assign", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	query := `UPDATE cases
		SET counselor_id = $2, status = $3, assigned_at = $4, updated_at = $4
		WHERE id = $1
		RETURNING ` + caseColumns

	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, id, counselorID, string(casefile.StatusActive), now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if c == nil {
		return nil, casefile.ErrNotFound
	}
	return c, nil
}

// SetStatus writes a new status. Transition legality is the caller's job.
func (s *Store) SetStatus(ctx context.Context, id string, status casefile.Status, closedAt *time.Time, now time.Time) (*casefile.Case, error) {
	ctx, span := tracer.Start(ctx, "pgstore.SetStatus", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	query := `UPDATE cases
		SET status = $2, closed_at = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + caseColumns

	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, id, string(status), closedAt, now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if c == nil {
		return nil, casefile.ErrNotFound
	}
	return c, nil
}

// SetRisk writes a new risk level and, when notes is non-nil, new notes.
func (s *Store) SetRisk(ctx context.Context, id string, level casefile.RiskLevel, notes *string, now time.Time) (*casefile.Case, error) {
	ctx, span := tracer.Start(ctx, "pgstore.SetRisk", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	query := `UPDATE cases
		SET risk_level = $2, notes = COALESCE($3, notes), updated_at = $4
		WHERE id = $1
		RETURNING ` + caseColumns

	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, id, string(level), notes, now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if c == nil {
		return nil, casefile.ErrNotFound
	}
	return c, nil
}

// ListUnassigned returns claimable cases, oldest first.
func (s *Store) ListUnassigned(ctx context.Context) ([]casefile.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
		WHERE counselor_id IS NULL AND status != 'closed'
		ORDER BY created_at ASC`
	return s.listCases(ctx, query)
}

// ListByCounselor returns a counselor's open cases, most recently updated
// first. Closed cases are excluded.
func (s *Store) ListByCounselor(ctx context.Context, counselorID string) ([]casefile.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
		WHERE counselor_id = $1 AND status != 'closed'
		ORDER BY updated_at DESC`
	return s.listCases(ctx, query, counselorID)
}

// ListAll returns every case, newest first.
func (s *Store) ListAll(ctx context.Context) ([]casefile.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at DESC`
	return s.listCases(ctx, query)
}

// CountActive returns the number of open cases assigned to counselorID.
func (s *Store) CountActive(ctx context.Context, counselorID string) (int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.CountActive", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cases WHERE counselor_id = $1 AND status != 'closed'`,
		counselorID,
	).Scan(&n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("count active: %w", err)
	}
	return n, nil
}

// Workload returns a counselor's live load snapshot.
func (s *Store) Workload(ctx context.Context, counselorID string) (casefile.Workload, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Workload", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	w := casefile.Workload{CounselorID: counselorID}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE risk_level IN ('high', 'critical'))
		 FROM cases WHERE counselor_id = $1 AND status != 'closed'`,
		counselorID,
	).Scan(&w.ActiveCases, &w.HighRiskCases)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return casefile.Workload{}, fmt.Errorf("workload: %w", err)
	}
	w.Overloaded = w.ActiveCases > casefile.OverloadThreshold
	return w, nil
}

// AllWorkloads returns per-counselor load for every counselor holding open cases.
func (s *Store) AllWorkloads(ctx context.Context) (map[string]casefile.Workload, error) {
	ctx, span := tracer.Start(ctx, "pgstore.AllWorkloads", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT counselor_id, COUNT(*), COUNT(*) FILTER (WHERE risk_level IN ('high', 'critical'))
		 FROM cases WHERE counselor_id IS NOT NULL AND status != 'closed'
		 GROUP BY counselor_id`,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query workloads: %w", err)
	}
	defer rows.Close()

	out := make(map[string]casefile.Workload)
	for rows.Next() {
		var w casefile.Workload
		if err := rows.Scan(&w.CounselorID, &w.ActiveCases, &w.HighRiskCases); err != nil {
			return nil, fmt.Errorf("scan workload: %w", err)
		}
		w.Overloaded = w.ActiveCases > casefile.OverloadThreshold
		out[w.CounselorID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workloads: %w", err)
	}
	return out, nil
}

func (s *Store) listCases(ctx context.Context, query string, args ...any) ([]casefile.Case, error) {
	ctx, span := tracer.Start(ctx, "pgstore.listCases", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var out []casefile.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

// scanCaseRow scans a single row into a casefile.Case.
// Returns (nil, nil) when no row is found.
func scanCaseRow(row pgx.Row) (*casefile.Case, error) {
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanCase(row pgx.Row) (*casefile.Case, error) {
	var (
		c           casefile.Case
		counselorID *string
		status      string
		risk        string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.ReportID, &c.StudentID, &counselorID, &status, &risk,
		&c.Notes, &c.AssignedAt, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	if counselorID != nil {
		c.CounselorID = *counselorID
	}
	c.Status = casefile.Status(status)
	c.RiskLevel = casefile.RiskLevel(risk)
	return &c, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
