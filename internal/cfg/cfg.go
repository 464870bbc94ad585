package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	APIToken              string
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioFromNumber      string
	ResendAPIKey          string
	AlertFromEmail        string
	AlertFromName         string
	FirebaseCredFile      string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory stores)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token the upstream auth gateway presents on every request")
	fs.StringVar(&c.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID for the SMS channel (empty = log-only SMS)")
	fs.StringVar(&c.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token for the SMS channel")
	fs.StringVar(&c.TwilioFromNumber, "twilio-from-number", "", "E.164 sender number for outbound alert SMS")
	fs.StringVar(&c.ResendAPIKey, "resend-api-key", "", "Resend API key for the email channel (empty = log-only email)")
	fs.StringVar(&c.AlertFromEmail, "alert-from-email", "alerts@safevoice.local", "From address for alert emails")
	fs.StringVar(&c.AlertFromName, "alert-from-name", "SafeVoice Alerts", "From display name for alert emails")
	fs.StringVar(&c.FirebaseCredFile, "firebase-credentials-file", "", "path to Firebase service account JSON for the push channel (empty = log-only push)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The API is never exposed without the gateway token
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	// Twilio credentials travel as a set
	if c.TwilioAccountSID != "" && (c.TwilioAuthToken == "" || c.TwilioFromNumber == "") {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required when TWILIO_ACCOUNT_SID is set"))
	}

	if c.ResendAPIKey != "" && c.AlertFromEmail == "" {
		errs = append(errs, errors.New("ALERT_FROM_EMAIL is required when RESEND_API_KEY is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
