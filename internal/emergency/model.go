package emergency

import (
	"time"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
)

// TriggerType is the cause of an emergency alert.
type TriggerType string

const (
	// TriggerSOSButton is a student pressing the SOS button
	TriggerSOSButton TriggerType = "sos_button"

	// TriggerRiskEscalation is the system reacting to a risk raise to critical
	TriggerRiskEscalation TriggerType = "risk_escalation"

	// TriggerManualEscalation is a counselor escalating a case by hand
	TriggerManualEscalation TriggerType = "manual_escalation"
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerSOSButton, TriggerRiskEscalation, TriggerManualEscalation:
		return true
	}
	return false
}

// AlertStatus tracks an alert through its lifecycle. in_progress and
// cancelled are declared for forward compatibility; no current flow sets
// them.
type AlertStatus string

const (
	StatusTriggered  AlertStatus = "triggered"
	StatusInProgress AlertStatus = "in_progress"
	StatusResolved   AlertStatus = "resolved"
	StatusCancelled  AlertStatus = "cancelled"
)

// Terminal reports whether s admits no further resolution.
func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// Location is a student-reported position attached to an alert.
type Location struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PushRecord is the push channel's delivery outcome.
type PushRecord struct {
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	Recipient string     `json:"recipient,omitempty"`
}

// SMSRecord is the SMS channel's delivery outcome.
type SMSRecord struct {
	Sent       bool       `json:"sent"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	Recipients []string   `json:"recipients,omitempty"`
	MessageID  string     `json:"messageId,omitempty"`
}

// EmailRecord is the email channel's delivery outcome.
type EmailRecord struct {
	Sent       bool       `json:"sent"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	Recipients []string   `json:"recipients,omitempty"`
}

// AlertsSent holds one independent sub-record per channel. Each channel
// writes only its own sub-record; a slow channel can never erase a fast
// channel's recorded success.
type AlertsSent struct {
	Push  PushRecord  `json:"push"`
	SMS   SMSRecord   `json:"sms"`
	Email EmailRecord `json:"email"`
}

// Alert is one durable emergency alert. CaseID and ReportID are empty for
// direct SOS triggers, which have no case context.
type Alert struct {
	ID                string             `json:"id"`
	CaseID            string             `json:"caseId,omitempty"`
	ReportID          string             `json:"reportId,omitempty"`
	StudentID         string             `json:"studentId"`
	CounselorID       string             `json:"counselorId,omitempty"`
	TriggerType       TriggerType        `json:"triggerType"`
	RiskLevel         casefile.RiskLevel `json:"riskLevel"`
	Description       string             `json:"description"`
	Location          *Location          `json:"studentLocation,omitempty"`
	GuardianPhones    []string           `json:"guardianPhoneNumbers,omitempty"`
	GuardianEmails    []string           `json:"guardianEmailAddresses,omitempty"`
	AlertsSent        AlertsSent         `json:"alertsSent"`
	CounselorNotified bool               `json:"counselorNotified"`
	Status            AlertStatus        `json:"status"`
	ResolutionNotes   string             `json:"resolutionNotes,omitempty"`
	ResolvedAt        *time.Time         `json:"resolvedAt,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Contact is a student's trusted contact as the dispatcher sees it.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}
