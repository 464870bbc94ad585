// Package pgstore provides PostgreSQL implementations of emergency.Store and
// the contact/token directories.
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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
)

var tracer = otel.Tracer("github.com/Thomson-dev/safeVoice-backend/internal/emergency/pgstore")

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL. Channel outcomes live in flattened
// per-channel columns so each channel's completion is a column-scoped UPDATE.
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

const alertColumns = `id, case_id, report_id, student_id, counselor_id, trigger_type, risk_level,
	description, location_lat, location_lon, location_accuracy, location_at,
	guardian_phones, guardian_emails,
	push_sent, push_sent_at, push_recipient,
	sms_sent, sms_sent_at, sms_recipients, sms_message_id,
	email_sent, email_sent_at, email_recipients,
	counselor_notified, status, resolution_notes, resolved_at, created_at, updated_at`

// Create inserts a new alert.
func (s *Store) Create(ctx context.Context, a *emergency.Alert) error {
	ctx, span := tracer.Start(ctx, "pgstore.Create", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	var lat, lon, accuracy *float64
	var locAt *time.Time
	if a.Location != nil {
		lat = &a.Location.Lat
		lon = &a.Location.Lon
		accuracy = a.Location.Accuracy
		at := a.Location.Timestamp
		locAt = &at
	}

	query := `INSERT INTO emergency_alerts (
		id, case_id, report_id, student_id, counselor_id, trigger_type, risk_level,
		description, location_lat, location_lon, location_accuracy, location_at,
		guardian_phones, guardian_emails, status, resolution_notes, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, nullable(a.CaseID), nullable(a.ReportID), a.StudentID, nullable(a.CounselorID),
		string(a.TriggerType), string(a.RiskLevel), a.Description,
		lat, lon, accuracy, locAt,
		a.GuardianPhones, a.GuardianEmails,
		string(a.Status), a.ResolutionNotes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Get retrieves an alert by ID.
func (s *Store) Get(ctx context.Context, id string) (*emergency.Alert, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM emergency_alerts WHERE id = $1`
	a, err := scanAlertRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if a == nil {
		return nil, false, nil
	}
	return a, true, nil
}

// MarkPushSent records the push channel's success without touching any other
// channel's columns.
func (s *Store) MarkPushSent(ctx context.Context, id, recipient string, at time.Time) error {
	return s.markChannel(ctx, id,
		`UPDATE emergency_alerts
		 SET push_sent = TRUE, push_sent_at = $2, push_recipient = $3, updated_at = $2
		 WHERE id = $1`,
		at, recipient)
}

// MarkSMSSent records the SMS channel's success.
func (s *Store) MarkSMSSent(ctx context.Context, id string, recipients []string, messageID string, at time.Time) error {
	return s.markChannel(ctx, id,
		`UPDATE emergency_alerts
		 SET sms_sent = TRUE, sms_sent_at = $2, sms_recipients = $3, sms_message_id = $4, updated_at = $2
		 WHERE id = $1`,
		at, recipients, messageID)
}

// MarkEmailSent records the email channel's success.
func (s *Store) MarkEmailSent(ctx context.Context, id string, recipients []string, at time.Time) error {
	return s.markChannel(ctx, id,
		`UPDATE emergency_alerts
		 SET email_sent = TRUE, email_sent_at = $2, email_recipients = $3, updated_at = $2
		 WHERE id = $1`,
		at, recipients)
}

// MarkCounselorNotified flags the alert's counselor as notified.
func (s *Store) MarkCounselorNotified(ctx context.Context, id string, at time.Time) error {
	return s.markChannel(ctx, id,
		`UPDATE emergency_alerts SET counselor_notified = TRUE, updated_at = $2 WHERE id = $1`,
		at)
}

func (s *Store) markChannel(ctx context.Context, id, query string, args ...any) error {
	ctx, span := tracer.Start(ctx, "pgstore.markChannel", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("mark channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return emergency.ErrNotFound
	}
	return nil
}

// Resolve stamps the alert resolved. Ownership and terminal-state guards are
// the dispatcher's job.
func (s *Store) Resolve(ctx context.Context, id, notes string, now time.Time) (*emergency.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Resolve", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	query := `UPDATE emergency_alerts
		SET status = $2, resolution_notes = $3, resolved_at = $4, updated_at = $4
		WHERE id = $1
		RETURNING ` + alertColumns

	a, err := scanAlertRow(s.pool.QueryRow(ctx, query, id, string(emergency.StatusResolved), notes, now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if a == nil {
		return nil, emergency.ErrNotFound
	}
	return a, nil
}

// ListActive returns unresolved alerts, newest first.
func (s *Store) ListActive(ctx context.Context) ([]emergency.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM emergency_alerts
		WHERE status IN ('triggered', 'in_progress')
		ORDER BY created_at DESC`
	return s.listAlerts(ctx, query)
}

// ListByCase returns the alerts raised for one case, newest first.
func (s *Store) ListByCase(ctx context.Context, caseID string) ([]emergency.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM emergency_alerts
		WHERE case_id = $1
		ORDER BY created_at DESC`
	return s.listAlerts(ctx, query, caseID)
}

func (s *Store) listAlerts(ctx context.Context, query string, args ...any) ([]emergency.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.listAlerts", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []emergency.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

// scanAlertRow scans a single row into an emergency.Alert.
// Returns (nil, nil) when no row is found.
func scanAlertRow(row pgx.Row) (*emergency.Alert, error) {
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAlert(row pgx.Row) (*emergency.Alert, error) {
	var (
		a             emergency.Alert
		caseID        *string
		reportID      *string
		counselorID   *string
		trigger       string
		risk          string
		status        string
		lat, lon, acc *float64
		locAt         *time.Time
		pushRecipient *string
		smsMessageID  *string
	)

	err := row.Scan(
		&a.ID, &caseID, &reportID, &a.StudentID, &counselorID, &trigger, &risk,
		&a.Description, &lat, &lon, &acc, &locAt,
		&a.GuardianPhones, &a.GuardianEmails,
		&a.AlertsSent.Push.Sent, &a.AlertsSent.Push.SentAt, &pushRecipient,
		&a.AlertsSent.SMS.Sent, &a.AlertsSent.SMS.SentAt, &a.AlertsSent.SMS.Recipients, &smsMessageID,
		&a.AlertsSent.Email.Sent, &a.AlertsSent.Email.SentAt, &a.AlertsSent.Email.Recipients,
		&a.CounselorNotified, &status, &a.ResolutionNotes, &a.ResolvedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	if caseID != nil {
		a.CaseID = *caseID
	}
	if reportID != nil {
		a.ReportID = *reportID
	}
	if counselorID != nil {
		a.CounselorID = *counselorID
	}
	if pushRecipient != nil {
		a.AlertsSent.Push.Recipient = *pushRecipient
	}
	if smsMessageID != nil {
		a.AlertsSent.SMS.MessageID = *smsMessageID
	}
	a.TriggerType = emergency.TriggerType(trigger)
	a.RiskLevel = casefile.RiskLevel(risk)
	a.Status = emergency.AlertStatus(status)

	if lat != nil && lon != nil {
		a.Location = &emergency.Location{Lat: *lat, Lon: *lon, Accuracy: acc}
		if locAt != nil {
			a.Location.Timestamp = *locAt
		}
	}
	return &a, nil
}

// Contacts reads trusted contacts from PostgreSQL.
type Contacts struct {
	pool *pgxpool.Pool
}

// NewContacts returns a contact directory over the shared pool. The schema
// is applied by Store's New.
func NewContacts(pool *pgxpool.Pool) *Contacts {
	return &Contacts{pool: pool}
}

// ContactsByStudent returns the student's trusted contacts.
func (c *Contacts) ContactsByStudent(ctx context.Context, studentID string) ([]emergency.Contact, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ContactsByStudent", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := c.pool.Query(ctx,
		`SELECT name, COALESCE(phone, ''), COALESCE(email, '')
		 FROM trusted_contacts WHERE student_id = $1 ORDER BY created_at`,
		studentID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []emergency.Contact
	for rows.Next() {
		var ct emergency.Contact
		if err := rows.Scan(&ct.Name, &ct.Phone, &ct.Email); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

// Tokens reads active device tokens from PostgreSQL.
type Tokens struct {
	pool *pgxpool.Pool
}

// NewTokens returns a token directory over the shared pool.
func NewTokens(pool *pgxpool.Pool) *Tokens {
	return &Tokens{pool: pool}
}

// ActiveTokens returns the user's active device tokens.
func (t *Tokens) ActiveTokens(ctx context.Context, userID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ActiveTokens", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := t.pool.Query(ctx,
		`SELECT token FROM device_tokens WHERE user_id = $1 AND active ORDER BY created_at`,
		userID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return out, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
