// Package fcm sends push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/Thomson-dev/safeVoice-backend/internal/notify"
)

// Sender delivers multicast push notifications via FCM.
type Sender struct {
	client *messaging.Client
}

// New initializes the Firebase app from a service account credentials file
// and returns a ready Sender.
func New(ctx context.Context, credentialsFile string) (*Sender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("fcm: init app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: messaging client: %w", err)
	}
	return &Sender{client: client}, nil
}

// SendPush delivers one notification to all tokens in a single multicast
// call. Per-token failures are reported in the result, not as an error.
func (s *Sender) SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) (notify.PushResult, error) {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	resp, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return notify.PushResult{}, fmt.Errorf("fcm: multicast send: %w", err)
	}

	result := notify.PushResult{SuccessCount: resp.SuccessCount}
	for i, r := range resp.Responses {
		if !r.Success && i < len(tokens) {
			result.FailedTokens = append(result.FailedTokens, tokens[i])
		}
	}
	return result, nil
}
