package casefile

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/go-core/log"
)

func TestAutoAssign_PicksLeastLoaded(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedCase(store, "c-1", StatusNew, "")
	store.counts = map[string]int{"coun-a": 2, "coun-b": 5, "coun-c": 2}

	b := NewBalancer(store, log.Nop(), nil)
	c, err := b.AutoAssign(context.Background(), "c-1", []string{"coun-a", "coun-b", "coun-c"})
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if c.CounselorID != "coun-a" {
		t.Errorf("CounselorID = %q, want coun-a", c.CounselorID)
	}
}

func TestAutoAssign_TieGoesToEarlierCandidate(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedCase(store, "c-1", StatusNew, "")
	store.counts = map[string]int{"coun-x": 1, "coun-y": 1}

	b := NewBalancer(store, log.Nop(), nil)
	c, err := b.AutoAssign(context.Background(), "c-1", []string{"coun-y", "coun-x"})
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if c.CounselorID != "coun-y" {
		t.Errorf("CounselorID = %q, want first-listed coun-y", c.CounselorID)
	}
}

func TestAutoAssign_NoCandidates(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedCase(store, "c-1", StatusNew, "")

	b := NewBalancer(store, log.Nop(), nil)
	c, err := b.AutoAssign(context.Background(), "c-1", nil)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if c != nil {
		t.Errorf("case = %+v, want nil", c)
	}
	if len(store.assigned) != 0 {
		t.Errorf("Assign calls = %d, want 0", len(store.assigned))
	}

	got, _, _ := store.Get(context.Background(), "c-1")
	if got.CounselorID != "" {
		t.Errorf("CounselorID = %q, want unchanged empty", got.CounselorID)
	}
}

func TestAutoAssign_CountErrorStopsAssignment(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedCase(store, "c-1", StatusNew, "")
	store.countErr = errors.New("db down")

	b := NewBalancer(store, log.Nop(), nil)
	if _, err := b.AutoAssign(context.Background(), "c-1", []string{"coun-a"}); err == nil {
		t.Fatal("expected error from count failure")
	}
	if len(store.assigned) != 0 {
		t.Errorf("Assign calls = %d, want 0", len(store.assigned))
	}
}

func TestAutoAssign_MissingCase(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	b := NewBalancer(store, log.Nop(), nil)
	if _, err := b.AutoAssign(context.Background(), "missing", []string{"coun-a"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AutoAssign = %v, want ErrNotFound", err)
	}
}
