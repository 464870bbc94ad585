// Package memstore provides an in-memory implementation of casefile.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
)

// Store holds cases in memory. Suitable for dev/testing.
type Store struct {
	mu       sync.RWMutex
	cases    map[string]*casefile.Case // case ID -> case
	byReport map[string]string         // report ID -> case ID (uniqueness)
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		cases:    make(map[string]*casefile.Case),
		byReport: make(map[string]string),
	}
}

// Create stores a copy of the case. Fails if a case already exists for the
// same report.
func (s *Store) Create(_ context.Context, c *casefile.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byReport[c.ReportID]; ok {
		return casefile.ErrDuplicateReport
	}
	cp := *c
	s.cases[c.ID] = &cp
	s.byReport[c.ReportID] = c.ID
	return nil
}

// Get retrieves a case by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*casefile.Case, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

// GetByReportID retrieves the case opened for a report. Returns a copy.
func (s *Store) GetByReportID(_ context.Context, reportID string) (*casefile.Case, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byReport[reportID]
	if !ok {
		return nil, false, nil
	}
	cp := *s.cases[id]
	return &cp, true, nil
}

// Claim assigns the case to counselorID only if it is currently unassigned.
// The check and write happen under one lock, so concurrent claims on the same
// case produce exactly one winner.
func (s *Store) Claim(_ context.Context, id, counselorID string, now time.Time) (*casefile.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, casefile.ErrNotFound
	}
	if c.CounselorID != "" {
		return nil, casefile.ErrAlreadyAssigned
	}
	assign(c, counselorID, now)
	cp := *c
	return &cp, nil
}

// Assign is the system-initiated assignment path. No unassigned guard.
func (s *Store) Assign(_ context.Context, id, counselorID string, now time.Time) (*casefile.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, casefile.ErrNotFound
	}
	assign(c, counselorID, now)
	cp := *c
	return &cp, nil
}

func assign(c *casefile.Case, counselorID string, now time.Time) {
	c.CounselorID = counselorID
	c.Status = casefile.StatusActive
	at := now
	c.AssignedAt = &at
	c.UpdatedAt = now
}

// SetStatus writes a new status. Transition legality is the caller's job.
func (s *Store) SetStatus(_ context.Context, id string, status casefile.Status, closedAt *time.Time, now time.Time) (*casefile.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, casefile.ErrNotFound
	}
	c.Status = status
	c.ClosedAt = closedAt
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

// SetRisk writes a new risk level and, when notes is non-nil, new notes.
func (s *Store) SetRisk(_ context.Context, id string, level casefile.RiskLevel, notes *string, now time.Time) (*casefile.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, casefile.ErrNotFound
	}
	c.RiskLevel = level
	if notes != nil {
		c.Notes = *notes
	}
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

// ListUnassigned returns claimable cases, oldest first.
func (s *Store) ListUnassigned(_ context.Context) ([]casefile.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []casefile.Case
	for _, c := range s.cases {
		if c.CounselorID == "" && c.Status != casefile.StatusClosed {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByCounselor returns a counselor's open cases, most recently updated
// first. Closed cases are excluded.
func (s *Store) ListByCounselor(_ context.Context, counselorID string) ([]casefile.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []casefile.Case
	for _, c := range s.cases {
		if c.CounselorID == counselorID && c.Status != casefile.StatusClosed {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// ListAll returns every case, newest first.
func (s *Store) ListAll(_ context.Context) ([]casefile.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]casefile.Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CountActive returns the number of open cases assigned to counselorID.
func (s *Store) CountActive(_ context.Context, counselorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.cases {
		if c.CounselorID == counselorID && c.Status != casefile.StatusClosed {
			n++
		}
	}
	return n, nil
}

// Workload returns a counselor's live load snapshot.
func (s *Store) Workload(_ context.Context, counselorID string) (casefile.Workload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := casefile.Workload{CounselorID: counselorID}
	for _, c := range s.cases {
		if c.CounselorID != counselorID || c.Status == casefile.StatusClosed {
			continue
		}
		w.ActiveCases++
		if c.RiskLevel.HighRisk() {
			w.HighRiskCases++
		}
	}
	w.Overloaded = w.ActiveCases > casefile.OverloadThreshold
	return w, nil
}

// AllWorkloads returns per-counselor load for every counselor holding open cases.
func (s *Store) AllWorkloads(_ context.Context) (map[string]casefile.Workload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]casefile.Workload)
	for _, c := range s.cases {
		if c.CounselorID == "" || c.Status == casefile.StatusClosed {
			continue
		}
		w := out[c.CounselorID]
		w.CounselorID = c.CounselorID
		w.ActiveCases++
		if c.RiskLevel.HighRisk() {
			w.HighRiskCases++
		}
		w.Overloaded = w.ActiveCases > casefile.OverloadThreshold
		out[c.CounselorID] = w
	}
	return out, nil
}
