// Package notify defines the outbound notification gateway used by the
// emergency dispatcher. Each delivery channel (push, SMS, email) has its own
// narrow sender interface so providers can be swapped or disabled
// independently; Composite bundles them into the Gateway the dispatcher
// consumes.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrChannelDisabled is returned when a channel has no configured provider.
var ErrChannelDisabled = errors.New("notify: channel disabled")

// PushResult reports the outcome of a multicast push send.
type PushResult struct {
	SuccessCount int
	FailedTokens []string
}

// SMSResult reports provider message IDs for a broadcast SMS send.
type SMSResult struct {
	MessageIDs []string
}

// PushSender delivers a push notification to a set of device tokens.
type PushSender interface {
	SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) (PushResult, error)
}

// SMSSender delivers one message to a set of phone numbers.
type SMSSender interface {
	SendSMS(ctx context.Context, numbers []string, message string) (SMSResult, error)
}

// EmailSender delivers one HTML email to a set of addresses.
type EmailSender interface {
	SendEmail(ctx context.Context, addresses []string, subject, html string) error
}

// Gateway is the full outbound surface the dispatcher depends on.
type Gateway interface {
	PushSender
	SMSSender
	EmailSender
}

// Composite assembles a Gateway from per-channel senders. A nil sender marks
// that channel disabled; sends through it fail with ErrChannelDisabled so the
// dispatcher records the channel as not delivered instead of panicking.
type Composite struct {
	Push  PushSender
	SMS   SMSSender
	Email EmailSender
}

var _ Gateway = (*Composite)(nil)

func (c *Composite) SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) (PushResult, error) {
	if c.Push == nil {
		return PushResult{}, fmt.Errorf("push: %w", ErrChannelDisabled)
	}
	return c.Push.SendPush(ctx, tokens, title, body, data)
}

func (c *Composite) SendSMS(ctx context.Context, numbers []string, message string) (SMSResult, error) {
	if c.SMS == nil {
		return SMSResult{}, fmt.Errorf("sms: %w", ErrChannelDisabled)
	}
	return c.SMS.SendSMS(ctx, numbers, message)
}

func (c *Composite) SendEmail(ctx context.Context, addresses []string, subject, html string) error {
	if c.Email == nil {
		return fmt.Errorf("email: %w", ErrChannelDisabled)
	}
	return c.Email.SendEmail(ctx, addresses, subject, html)
}
