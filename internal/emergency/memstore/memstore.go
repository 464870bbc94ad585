// Package memstore provides in-memory implementations of emergency.Store and
// the contact/token directories. Suitable for dev/testing.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
)

// Store holds alerts in memory.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*emergency.Alert
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{alerts: make(map[string]*emergency.Alert)}
}

// Create stores a copy of the alert.
func (s *Store) Create(_ context.Context, a *emergency.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

// Get retrieves an alert by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*emergency.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

// MarkPushSent records the push channel's success. Only the push sub-record
// is touched.
func (s *Store) MarkPushSent(_ context.Context, id, recipient string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return emergency.ErrNotFound
	}
	sentAt := at
	a.AlertsSent.Push = emergency.PushRecord{Sent: true, SentAt: &sentAt, Recipient: recipient}
	a.UpdatedAt = at
	return nil
}

// MarkSMSSent records the SMS channel's success.
func (s *Store) MarkSMSSent(_ context.Context, id string, recipients []string, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return emergency.ErrNotFound
	}
	sentAt := at
	a.AlertsSent.SMS = emergency.SMSRecord{
		Sent:       true,
		SentAt:     &sentAt,
		Recipients: append([]string(nil), recipients...),
		MessageID:  messageID,
	}
	a.UpdatedAt = at
	return nil
}

// MarkEmailSent records the email channel's success.
func (s *Store) MarkEmailSent(_ context.Context, id string, recipients []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return emergency.ErrNotFound
	}
	sentAt := at
	a.AlertsSent.Email = emergency.EmailRecord{
		Sent:       true,
		SentAt:     &sentAt,
		Recipients: append([]string(nil), recipients...),
	}
	a.UpdatedAt = at
	return nil
}

// MarkCounselorNotified flags the alert's counselor as notified.
func (s *Store) MarkCounselorNotified(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return emergency.ErrNotFound
	}
	a.CounselorNotified = true
	a.UpdatedAt = at
	return nil
}

// Resolve stamps the alert resolved. Ownership and terminal-state guards are
// the dispatcher's job.
func (s *Store) Resolve(_ context.Context, id, notes string, now time.Time) (*emergency.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, emergency.ErrNotFound
	}
	a.Status = emergency.StatusResolved
	a.ResolutionNotes = notes
	at := now
	a.ResolvedAt = &at
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

// ListActive returns unresolved alerts, newest first.
func (s *Store) ListActive(_ context.Context) ([]emergency.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []emergency.Alert
	for _, a := range s.alerts {
		if a.Status == emergency.StatusTriggered || a.Status == emergency.StatusInProgress {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListByCase returns the alerts raised for one case, newest first.
func (s *Store) ListByCase(_ context.Context, caseID string) ([]emergency.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []emergency.Alert
	for _, a := range s.alerts {
		if a.CaseID == caseID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Contacts is an in-memory ContactDirectory.
type Contacts struct {
	mu        sync.RWMutex
	byStudent map[string][]emergency.Contact
}

// NewContacts initializes an empty in-memory contact directory.
func NewContacts() *Contacts {
	return &Contacts{byStudent: make(map[string][]emergency.Contact)}
}

// Put replaces a student's contact list.
func (c *Contacts) Put(studentID string, contacts []emergency.Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byStudent[studentID] = append([]emergency.Contact(nil), contacts...)
}

// ContactsByStudent returns a copy of the student's trusted contacts.
func (c *Contacts) ContactsByStudent(_ context.Context, studentID string) ([]emergency.Contact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]emergency.Contact(nil), c.byStudent[studentID]...), nil
}

// Tokens is an in-memory TokenDirectory.
type Tokens struct {
	mu     sync.RWMutex
	byUser map[string][]string
}

// NewTokens initializes an empty in-memory token directory.
func NewTokens() *Tokens {
	return &Tokens{byUser: make(map[string][]string)}
}

// Put replaces a user's active device tokens.
func (t *Tokens) Put(userID string, tokens []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byUser[userID] = append([]string(nil), tokens...)
}

// ActiveTokens returns a copy of the user's active device tokens.
func (t *Tokens) ActiveTokens(_ context.Context, userID string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.byUser[userID]...), nil
}
