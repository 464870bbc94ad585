// Package resendmail sends alert emails through the Resend API.
package resendmail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// Sender delivers HTML email via Resend.
type Sender struct {
	client *resend.Client
	from   string
}

// New creates a Resend email sender. fromName and fromAddr form the
// "Name <addr>" From header.
func New(apiKey, fromName, fromAddr string) *Sender {
	return &Sender{
		client: resend.NewClient(apiKey),
		from:   fmt.Sprintf("%s <%s>", fromName, fromAddr),
	}
}

// SendEmail delivers one HTML email to all addresses in a single API call.
func (s *Sender) SendEmail(ctx context.Context, addresses []string, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      addresses,
		Subject: subject,
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: send email: %w", err)
	}
	return nil
}
