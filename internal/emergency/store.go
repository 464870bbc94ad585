package emergency

import (
	"context"
	"time"
)

// Store is the persistence interface for alerts.
//
// The Mark* methods are channel-scoped partial updates: each writes only its
// own channel's sub-record, so concurrent channel completions never clobber
// each other.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id string) (*Alert, bool, error)

	MarkPushSent(ctx context.Context, id, recipient string, at time.Time) error
	MarkSMSSent(ctx context.Context, id string, recipients []string, messageID string, at time.Time) error
	MarkEmailSent(ctx context.Context, id string, recipients []string, at time.Time) error
	MarkCounselorNotified(ctx context.Context, id string, at time.Time) error

	Resolve(ctx context.Context, id, notes string, now time.Time) (*Alert, error)

	ListActive(ctx context.Context) ([]Alert, error)
	ListByCase(ctx context.Context, caseID string) ([]Alert, error)
}

// ContactDirectory looks up a student's trusted contacts. CRUD for contacts
// lives elsewhere; the dispatcher only reads.
type ContactDirectory interface {
	ContactsByStudent(ctx context.Context, studentID string) ([]Contact, error)
}

// TokenDirectory looks up a user's active push device tokens.
type TokenDirectory interface {
	ActiveTokens(ctx context.Context, userID string) ([]string, error)
}
