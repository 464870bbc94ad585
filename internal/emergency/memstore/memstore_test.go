package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
)

func newAlert(id, caseID string) *emergency.Alert {
	now := time.Now().UTC()
	return &emergency.Alert{
		ID:          id,
		CaseID:      caseID,
		StudentID:   "stu-1",
		CounselorID: "coun-1",
		TriggerType: emergency.TriggerManualEscalation,
		RiskLevel:   casefile.RiskHigh,
		Description: "test",
		Status:      emergency.StatusTriggered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.Create(ctx, newAlert("a-1", "c-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, ok, err := s.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected alert to be found")
	}
	if got.Status != emergency.StatusTriggered {
		t.Errorf("Status = %q, want triggered", got.Status)
	}
}

func TestStore_MarkChannelsIndependent(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, newAlert("a-1", "c-1"))
	now := time.Now().UTC()

	if err := s.MarkSMSSent(ctx, "a-1", []string{"+234800"}, "msg-1", now); err != nil {
		t.Fatalf("MarkSMSSent: %v", err)
	}
	if err := s.MarkEmailSent(ctx, "a-1", []string{"g@example.test"}, now); err != nil {
		t.Fatalf("MarkEmailSent: %v", err)
	}

	got, _, _ := s.Get(ctx, "a-1")
	if !got.AlertsSent.SMS.Sent || got.AlertsSent.SMS.MessageID != "msg-1" {
		t.Errorf("sms record = %+v", got.AlertsSent.SMS)
	}
	if !got.AlertsSent.Email.Sent {
		t.Errorf("email record = %+v", got.AlertsSent.Email)
	}
	if got.AlertsSent.Push.Sent {
		t.Error("push record should be untouched")
	}
}

func TestStore_ConcurrentMarksNeverClobber(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, newAlert("a-1", "c-1"))
	now := time.Now().UTC()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = s.MarkSMSSent(ctx, "a-1", []string{"+234800"}, "msg-1", now)
	}()
	go func() {
		defer wg.Done()
		_ = s.MarkEmailSent(ctx, "a-1", []string{"g@example.test"}, now)
	}()
	go func() {
		defer wg.Done()
		_ = s.MarkPushSent(ctx, "a-1", "coun-1", now)
	}()
	wg.Wait()

	got, _, _ := s.Get(ctx, "a-1")
	if !got.AlertsSent.SMS.Sent || !got.AlertsSent.Email.Sent || !got.AlertsSent.Push.Sent {
		t.Errorf("alertsSent = %+v, want all sent=true", got.AlertsSent)
	}
}

func TestStore_MarkMissingAlert(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.MarkSMSSent(context.Background(), "missing", nil, "", time.Now().UTC())
	if !errors.Is(err, emergency.ErrNotFound) {
		t.Fatalf("MarkSMSSent = %v, want ErrNotFound", err)
	}
}

func TestStore_Resolve(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, newAlert("a-1", "c-1"))

	got, err := s.Resolve(ctx, "a-1", "handled", time.Now().UTC())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Status != emergency.StatusResolved {
		t.Errorf("Status = %q, want resolved", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Error("expected ResolvedAt to be set")
	}
}

func TestStore_ListActiveNewestFirst(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"a-old", "a-new"} {
		a := newAlert(id, "c-1")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_ = s.Create(ctx, a)
	}
	resolved := newAlert("a-done", "c-1")
	_ = s.Create(ctx, resolved)
	_, _ = s.Resolve(ctx, "a-done", "", base)

	got, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a-new" || got[1].ID != "a-old" {
		t.Errorf("order = [%s %s], want [a-new a-old]", got[0].ID, got[1].ID)
	}
}

func TestStore_ListByCase(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, newAlert("a-1", "c-1"))
	_ = s.Create(ctx, newAlert("a-2", "c-2"))

	got, err := s.ListByCase(ctx, "c-1")
	if err != nil {
		t.Fatalf("ListByCase: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a-1" {
		t.Errorf("got = %+v, want only a-1", got)
	}
}

func TestDirectories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	contacts := NewContacts()
	contacts.Put("stu-1", []emergency.Contact{{Name: "Aunt", Phone: "+234800"}})
	got, err := contacts.ContactsByStudent(ctx, "stu-1")
	if err != nil {
		t.Fatalf("ContactsByStudent: %v", err)
	}
	if len(got) != 1 || got[0].Phone != "+234800" {
		t.Errorf("contacts = %+v", got)
	}
	if empty, _ := contacts.ContactsByStudent(ctx, "stu-other"); len(empty) != 0 {
		t.Errorf("unknown student contacts = %+v, want empty", empty)
	}

	tokens := NewTokens()
	tokens.Put("coun-1", []string{"tok-1", "tok-2"})
	toks, err := tokens.ActiveTokens(ctx, "coun-1")
	if err != nil {
		t.Fatalf("ActiveTokens: %v", err)
	}
	if len(toks) != 2 {
		t.Errorf("tokens = %+v, want 2", toks)
	}
}
