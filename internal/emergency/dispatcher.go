package emergency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
	"github.com/Thomson-dev/safeVoice-backend/internal/notify"
)

// Dispatcher is the escalation engine. It persists alerts before any channel
// dispatch, drives the case transition to escalated, and fans out to the
// notification gateway, settling every channel and recording each outcome
// independently.
type Dispatcher struct {
	store    Store
	contacts ContactDirectory
	tokens   TokenDirectory
	registry *casefile.Registry
	gateway  notify.Gateway
	logger   log.Logger
	metrics  *Metrics
}

// NewDispatcher creates a new alert dispatcher.
func NewDispatcher(store Store, contacts ContactDirectory, tokens TokenDirectory, registry *casefile.Registry, gateway notify.Gateway, logger log.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		store:    store,
		contacts: contacts,
		tokens:   tokens,
		registry: registry,
		gateway:  gateway,
		logger:   logger,
		metrics:  metrics,
	}
}

// EscalationRequest carries one case escalation. Trigger distinguishes a
// counselor acting by hand from the system reacting to a critical risk
// raise; both flow through the same path.
type EscalationRequest struct {
	CaseID            string
	CallerCounselorID string
	Reason            string
	Trigger           TriggerType
	GuardianPhones    []string
	GuardianEmails    []string
	Location          *Location
}

// TriggerSOS handles a student's SOS press. The student's trusted contacts
// are resolved first; with no phone-bearing contact the call fails and
// nothing is persisted. Otherwise the alert is written, then one SMS
// broadcast goes to every contact phone. Returns the alert and the number
// of contacts notified.
func (d *Dispatcher) TriggerSOS(ctx context.Context, studentID string, loc *Location) (*Alert, int, error) {
	if studentID == "" {
		return nil, 0, fmt.Errorf("%w: studentId is required", ErrValidation)
	}

	contacts, err := d.contacts.ContactsByStudent(ctx, studentID)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup contacts: %w", err)
	}
	var phones []string
	for _, c := range contacts {
		if c.Phone != "" {
			phones = append(phones, c.Phone)
		}
	}
	if len(phones) == 0 {
		return nil, 0, ErrNoPhoneContacts
	}

	now := time.Now().UTC()
	a := &Alert{
		ID:             ulid.Make().String(),
		StudentID:      studentID,
		TriggerType:    TriggerSOSButton,
		RiskLevel:      casefile.RiskCritical,
		Description:    "Student triggered SOS button - requires immediate assistance",
		Location:       loc,
		GuardianPhones: phones,
		Status:         StatusTriggered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.store.Create(ctx, a); err != nil {
		return nil, 0, fmt.Errorf("persist alert: %w", err)
	}
	if d.metrics != nil {
		d.metrics.AlertsTriggered.WithLabelValues(string(TriggerSOSButton)).Inc()
	}
	d.logger.Info(ctx, "sos alert created", "alert_id", a.ID, "contacts", len(phones))

	msg := sosSMS(pseudonym(studentID), a.ID, a.RiskLevel, loc)
	d.sendSMS(ctx, a.ID, phones, msg)

	final, _, err := d.store.Get(ctx, a.ID)
	if err != nil {
		return a, len(phones), nil
	}
	return final, len(phones), nil
}

// Escalate raises an emergency alert for a case. The alert row is durable
// before the case transition and before any channel dispatch; channels then
// run concurrently and each records its own outcome. A channel failure is
// never surfaced as a request failure.
func (d *Dispatcher) Escalate(ctx context.Context, req EscalationRequest) (*Alert, error) {
	if req.CaseID == "" || req.Reason == "" {
		return nil, fmt.Errorf("%w: caseId and reason are required", ErrValidation)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManualEscalation
	}
	if trigger != TriggerManualEscalation && trigger != TriggerRiskEscalation {
		return nil, fmt.Errorf("%w: unsupported trigger %q", ErrValidation, trigger)
	}

	c, ok, err := d.registry.Get(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, casefile.ErrNotFound
	}
	if c.CounselorID != req.CallerCounselorID {
		return nil, ErrNotOwner
	}

	risk := casefile.RiskHigh
	if trigger == TriggerRiskEscalation {
		risk = casefile.RiskCritical
	}

	now := time.Now().UTC()
	a := &Alert{
		ID:             ulid.Make().String(),
		CaseID:         c.ID,
		ReportID:       c.ReportID,
		StudentID:      c.StudentID,
		CounselorID:    c.CounselorID,
		TriggerType:    trigger,
		RiskLevel:      risk,
		Description:    req.Reason,
		Location:       req.Location,
		GuardianPhones: req.GuardianPhones,
		GuardianEmails: req.GuardianEmails,
		Status:         StatusTriggered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}
	if d.metrics != nil {
		d.metrics.AlertsTriggered.WithLabelValues(string(trigger)).Inc()
	}
	d.logger.Info(ctx, "escalation alert created",
		"alert_id", a.ID,
		"case_id", c.ID,
		"trigger", trigger,
	)

	// Alert durability is the correctness bar; a failed case transition is
	// logged and the dispatch continues.
	if c.Status == casefile.StatusActive {
		if _, err := d.registry.UpdateStatus(ctx, c.ID, casefile.StatusEscalated, req.CallerCounselorID); err != nil {
			d.logger.Error(ctx, err, "case escalation transition failed", "case_id", c.ID)
		}
	}

	name := pseudonym(c.StudentID)

	var wg sync.WaitGroup
	if len(req.GuardianPhones) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := escalationSMS(name, c.Code, req.Reason, req.Location)
			d.sendSMS(ctx, a.ID, req.GuardianPhones, msg)
		}()
	}
	if len(req.GuardianEmails) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.sendEmail(ctx, a, name, c.Code, req.GuardianEmails)
		}()
	}
	if c.CounselorID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.sendPush(ctx, a.ID, c.CounselorID, name, c.Code)
		}()
	}
	wg.Wait()

	final, _, err := d.store.Get(ctx, a.ID)
	if err != nil {
		return a, nil
	}
	return final, nil
}

// Resolve closes out an alert. Only the alert's counselor may resolve, and a
// terminal alert stays terminal.
func (d *Dispatcher) Resolve(ctx context.Context, alertID, callerCounselorID, notes string) (*Alert, error) {
	a, ok, err := d.store.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if a.CounselorID != callerCounselorID {
		return nil, ErrNotOwner
	}
	if a.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	resolved, err := d.store.Resolve(ctx, alertID, notes, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.AlertsResolved.Inc()
	}
	d.logger.Info(ctx, "alert resolved", "alert_id", alertID, "counselor_id", callerCounselorID)
	return resolved, nil
}

// Get retrieves an alert by ID.
func (d *Dispatcher) Get(ctx context.Context, id string) (*Alert, bool, error) {
	return d.store.Get(ctx, id)
}

// ListActive returns alerts still awaiting resolution, newest first.
func (d *Dispatcher) ListActive(ctx context.Context) ([]Alert, error) {
	return d.store.ListActive(ctx)
}

// ListByCase returns the alerts raised for one case, newest first.
func (d *Dispatcher) ListByCase(ctx context.Context, caseID string) ([]Alert, error) {
	return d.store.ListByCase(ctx, caseID)
}

func (d *Dispatcher) sendSMS(ctx context.Context, alertID string, phones []string, message string) {
	result, err := d.gateway.SendSMS(ctx, phones, message)
	if err != nil {
		d.channelOutcome(ctx, alertID, "sms", err)
		return
	}
	var messageID string
	if len(result.MessageIDs) > 0 {
		messageID = result.MessageIDs[0]
	}
	if err := d.store.MarkSMSSent(ctx, alertID, phones, messageID, time.Now().UTC()); err != nil {
		d.logger.Error(ctx, err, "record sms outcome failed", "alert_id", alertID)
		return
	}
	d.channelOutcome(ctx, alertID, "sms", nil)
}

func (d *Dispatcher) sendEmail(ctx context.Context, a *Alert, studentName, reference string, addresses []string) {
	html, err := alertEmailHTML(a.TriggerType, studentName, reference, a.Description, a.RiskLevel, a.Location)
	if err != nil {
		d.channelOutcome(ctx, a.ID, "email", err)
		return
	}
	subject := escalationEmailSubject
	if a.TriggerType == TriggerSOSButton {
		subject = sosEmailSubject
	}
	if err := d.gateway.SendEmail(ctx, addresses, subject, html); err != nil {
		d.channelOutcome(ctx, a.ID, "email", err)
		return
	}
	if err := d.store.MarkEmailSent(ctx, a.ID, addresses, time.Now().UTC()); err != nil {
		d.logger.Error(ctx, err, "record email outcome failed", "alert_id", a.ID)
		return
	}
	d.channelOutcome(ctx, a.ID, "email", nil)
}

func (d *Dispatcher) sendPush(ctx context.Context, alertID, counselorID, studentName, reference string) {
	tokens, err := d.tokens.ActiveTokens(ctx, counselorID)
	if err != nil {
		d.channelOutcome(ctx, alertID, "push", err)
		return
	}
	if len(tokens) == 0 {
		d.logger.Warn(ctx, "no device tokens for counselor", "alert_id", alertID, "counselor_id", counselorID)
		return
	}

	title := "SafeVoice: case escalated"
	body := fmt.Sprintf("%s's case %s has been escalated", studentName, reference)
	data := map[string]string{"alertId": alertID, "caseCode": reference}

	result, err := d.gateway.SendPush(ctx, tokens, title, body, data)
	if err != nil {
		d.channelOutcome(ctx, alertID, "push", err)
		return
	}
	if result.SuccessCount == 0 {
		d.channelOutcome(ctx, alertID, "push", errors.New("no device accepted the push"))
		return
	}
	now := time.Now().UTC()
	if err := d.store.MarkPushSent(ctx, alertID, counselorID, now); err != nil {
		d.logger.Error(ctx, err, "record push outcome failed", "alert_id", alertID)
		return
	}
	if err := d.store.MarkCounselorNotified(ctx, alertID, now); err != nil {
		d.logger.Error(ctx, err, "record counselor notification failed", "alert_id", alertID)
	}
	d.channelOutcome(ctx, alertID, "push", nil)
}

// channelOutcome records a channel result in metrics and the log. Failures
// are terminal operational states on the alert record, never request
// failures.
func (d *Dispatcher) channelOutcome(ctx context.Context, alertID, channel string, err error) {
	if err != nil {
		if d.metrics != nil {
			d.metrics.ChannelSends.WithLabelValues(channel, "error").Inc()
		}
		d.logger.Error(ctx, err, "alert channel send failed", "alert_id", alertID, "channel", channel)
		return
	}
	if d.metrics != nil {
		d.metrics.ChannelSends.WithLabelValues(channel, "sent").Inc()
	}
	d.logger.Info(ctx, "alert channel sent", "alert_id", alertID, "channel", channel)
}
