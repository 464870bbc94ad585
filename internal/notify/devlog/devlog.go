// Package devlog is a log-only Gateway for development and tests. Nothing
// leaves the process; every send is recorded in the structured log and
// reported as delivered.
package devlog

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Thomson-dev/safeVoice-backend/internal/notify"
)

// Gateway logs every outbound notification instead of delivering it.
type Gateway struct {
	logger log.Logger
}

var _ notify.Gateway = (*Gateway)(nil)

// New creates a log-only gateway.
func New(logger log.Logger) *Gateway {
	if logger == nil {
		logger = log.Nop()
	}
	return &Gateway{logger: logger}
}

func (g *Gateway) SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) (notify.PushResult, error) {
	g.logger.Info(ctx, "devlog push",
		"tokens", len(tokens),
		"title", title,
		"body", body,
	)
	return notify.PushResult{SuccessCount: len(tokens)}, nil
}

func (g *Gateway) SendSMS(ctx context.Context, numbers []string, message string) (notify.SMSResult, error) {
	g.logger.Info(ctx, "devlog sms",
		"recipients", len(numbers),
		"message", message,
	)
	ids := make([]string, len(numbers))
	for i := range numbers {
		ids[i] = fmt.Sprintf("devlog-%d", i)
	}
	return notify.SMSResult{MessageIDs: ids}, nil
}

func (g *Gateway) SendEmail(ctx context.Context, addresses []string, subject, _ string) error {
	g.logger.Info(ctx, "devlog email",
		"recipients", len(addresses),
		"subject", subject,
	)
	return nil
}
