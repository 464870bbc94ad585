package casefile

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks where a case is in its lifecycle.
type Status string

const (
	// StatusNew means created from a report, not yet assigned
	StatusNew Status = "new"

	// StatusActive means a counselor is working the case
	StatusActive Status = "active"

	// StatusEscalated means an emergency alert has been raised for the case
	StatusEscalated Status = "escalated"

	// StatusClosed is terminal
	StatusClosed Status = "closed"
)

// Valid reports whether s is a known case status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusActive, StatusEscalated, StatusClosed:
		return true
	}
	return false
}

// RiskLevel classifies the severity of a case.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// HighRisk reports whether r counts toward a counselor's high-risk load.
func (r RiskLevel) HighRisk() bool {
	return r == RiskHigh || r == RiskCritical
}

// Case is the unit of counselor-assigned work tracking one report.
// CounselorID is empty while the case sits in the unassigned pool.
type Case struct {
	ID          string     `json:"id"`
	Code        string     `json:"caseId"`
	ReportID    string     `json:"reportId"`
	StudentID   string     `json:"studentId"`
	CounselorID string     `json:"counselorId,omitempty"`
	Status      Status     `json:"status"`
	RiskLevel   RiskLevel  `json:"riskLevel"`
	Notes       string     `json:"notes,omitempty"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Workload is a live snapshot of a counselor's open case load.
// Derived, never persisted.
type Workload struct {
	CounselorID   string `json:"counselorId"`
	ActiveCases   int    `json:"activeCases"`
	HighRiskCases int    `json:"highRiskCases"`
	Overloaded    bool   `json:"overloaded"`
}

// OverloadThreshold is the active-case count above which a counselor is
// reported as overloaded.
const OverloadThreshold = 10

// canTransition reports whether a counselor-driven status change is legal.
// new is only left via claim/assign, and closed is terminal.
func canTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusEscalated || to == StatusClosed
	case StatusEscalated:
		return to == StatusActive || to == StatusClosed
	}
	return false
}

func nowUTC() time.Time { return time.Now().UTC() }

// NewCaseCode generates a human-readable case code, e.g. CASE-7F3A21BC.
func NewCaseCode() string {
	return "CASE-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
