package emergency

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
)

const (
	sosEmailSubject        = "SafeVoice SOS Alert - Immediate Action Required"
	escalationEmailSubject = "SafeVoice Case Escalation Alert"
)

// pseudonym derives a stable display alias from the student's opaque ID so
// messages never carry real identity.
func pseudonym(studentID string) string {
	id := strings.ReplaceAll(studentID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "Student-" + strings.ToUpper(id)
}

func mapsLink(loc *Location) string {
	lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(loc.Lon, 'f', -1, 64)
	return "https://maps.google.com/?q=" + lat + "," + lon
}

// sosSMS formats the SOS broadcast sent to a student's trusted contacts.
func sosSMS(studentName, reference string, risk casefile.RiskLevel, loc *Location) string {
	var b strings.Builder
	b.WriteString("SAFEVOICE ALERT\n\n")
	fmt.Fprintf(&b, "Student: %s\n", studentName)
	fmt.Fprintf(&b, "Case ID: %s\n", reference)
	fmt.Fprintf(&b, "Risk Level: %s\n", strings.ToUpper(string(risk)))
	if loc != nil {
		fmt.Fprintf(&b, "Location: %s\n", mapsLink(loc))
	}
	b.WriteString("\nPlease respond immediately.")
	return b.String()
}

// escalationSMS formats the guardian broadcast for a case escalation.
func escalationSMS(studentName, reference, reason string, loc *Location) string {
	var b strings.Builder
	b.WriteString("CASE ESCALATION ALERT\n\n")
	fmt.Fprintf(&b, "Student: %s\n", studentName)
	fmt.Fprintf(&b, "Case ID: %s\n", reference)
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	if loc != nil {
		fmt.Fprintf(&b, "Location: %s\n", mapsLink(loc))
	}
	b.WriteString("\nImmediate action may be required.")
	return b.String()
}

type emailData struct {
	Color       template.CSS
	Header      string
	StudentName string
	Reference   string
	AlertType   string
	RiskLevel   string
	Description string
	MapURL      template.URL
}

var alertEmailTmpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; }
  .container { max-width: 600px; margin: 0 auto; }
  .header { background-color: {{.Color}}; color: white; padding: 20px; text-align: center; }
  .content { padding: 20px; border: 1px solid #ddd; }
  .details { background-color: #f5f5f5; padding: 15px; margin: 15px 0; border-left: 4px solid {{.Color}}; }
  .map-link { color: {{.Color}}; text-decoration: underline; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>{{.Header}}</h1></div>
  <div class="content">
    <h2>Emergency Notification from SafeVoice</h2>
    <p>A student has triggered an emergency alert or their case has been escalated.</p>
    <div class="details">
      <p><strong>Student:</strong> {{.StudentName}}</p>
      <p><strong>Case ID:</strong> {{.Reference}}</p>
      <p><strong>Alert Type:</strong> {{.AlertType}}</p>
      {{if .RiskLevel}}<p><strong>Risk Level:</strong> {{.RiskLevel}}</p>{{end}}
      <p><strong>Description:</strong> {{.Description}}</p>
      {{if .MapURL}}<p><strong>Location:</strong> <a href="{{.MapURL}}" class="map-link">View on Map</a></p>{{end}}
    </div>
    <p><strong>Immediate Action Required:</strong></p>
    <ol>
      <li>Log into the SafeVoice dashboard</li>
      <li>Review the case details and contact history</li>
      <li>Reach out to the student or relevant authorities</li>
      <li>Update the case status once action is taken</li>
    </ol>
    <p style="margin-top: 30px; color: #666; font-size: 12px;">
      This is an automated emergency alert from SafeVoice. Do not reply to this email.
    </p>
  </div>
</div>
</body>
</html>`))

// alertEmailHTML renders the alert email body. Urgency (SOS or critical
// risk) switches the accent color from amber to red.
func alertEmailHTML(trigger TriggerType, studentName, reference, description string, risk casefile.RiskLevel, loc *Location) (string, error) {
	urgent := trigger == TriggerSOSButton || risk == casefile.RiskCritical

	data := emailData{
		Color:       template.CSS("#ff9900"),
		Header:      "CASE ESCALATION",
		StudentName: studentName,
		Reference:   reference,
		AlertType:   strings.ToUpper(string(trigger)),
		RiskLevel:   strings.ToUpper(string(risk)),
		Description: description,
	}
	if urgent {
		data.Color = template.CSS("#ff4444")
		data.Header = "URGENT ALERT"
	}
	if loc != nil {
		data.MapURL = template.URL(mapsLink(loc))
	}

	var b strings.Builder
	if err := alertEmailTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return b.String(), nil
}
