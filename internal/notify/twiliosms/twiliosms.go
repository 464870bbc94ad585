// Package twiliosms sends alert SMS through the Twilio REST API.
package twiliosms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Thomson-dev/safeVoice-backend/internal/notify"
)

// Sender delivers SMS via Twilio.
type Sender struct {
	client *twilio.RestClient
	from   string
}

// New creates a Twilio SMS sender.
func New(accountSID, authToken, fromNumber string) *Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Sender{client: client, from: fromNumber}
}

// SendSMS delivers the message to each number. Twilio has no broadcast call,
// so numbers are sent one by one; the first failure aborts, returning the IDs
// of messages already accepted alongside the error.
func (s *Sender) SendSMS(ctx context.Context, numbers []string, message string) (notify.SMSResult, error) {
	var result notify.SMSResult
	for _, number := range numbers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		params := &api.CreateMessageParams{}
		params.SetTo(number)
		params.SetFrom(s.from)
		params.SetBody(message)

		resp, err := s.client.Api.CreateMessage(params)
		if err != nil {
			return result, fmt.Errorf("twilio: send to %s: %w", number, err)
		}
		if resp.Sid == nil {
			return result, errors.New("twilio: response missing message sid")
		}
		result.MessageIDs = append(result.MessageIDs, *resp.Sid)
	}
	return result, nil
}
