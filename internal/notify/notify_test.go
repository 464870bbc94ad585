package notify

import (
	"context"
	"errors"
	"testing"
)

type stubPush struct{ calls int }

func (s *stubPush) SendPush(_ context.Context, tokens []string, _, _ string, _ map[string]string) (PushResult, error) {
	s.calls++
	return PushResult{SuccessCount: len(tokens)}, nil
}

type stubSMS struct{ calls int }

func (s *stubSMS) SendSMS(_ context.Context, numbers []string, _ string) (SMSResult, error) {
	s.calls++
	ids := make([]string, len(numbers))
	return SMSResult{MessageIDs: ids}, nil
}

type stubEmail struct{ calls int }

func (s *stubEmail) SendEmail(_ context.Context, _ []string, _, _ string) error {
	s.calls++
	return nil
}

func TestComposite_RoutesToSenders(t *testing.T) {
	t.Parallel()

	push := &stubPush{}
	sms := &stubSMS{}
	email := &stubEmail{}
	g := &Composite{Push: push, SMS: sms, Email: email}
	ctx := context.Background()

	pr, err := g.SendPush(ctx, []string{"tok-1", "tok-2"}, "t", "b", nil)
	if err != nil {
		t.Fatalf("SendPush: %v", err)
	}
	if pr.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", pr.SuccessCount)
	}

	sr, err := g.SendSMS(ctx, []string{"+15550001111"}, "hello")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if len(sr.MessageIDs) != 1 {
		t.Errorf("MessageIDs = %d, want 1", len(sr.MessageIDs))
	}

	if err := g.SendEmail(ctx, []string{"a@b.test"}, "s", "<p>x</p>"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}

	if push.calls != 1 || sms.calls != 1 || email.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want 1 each", push.calls, sms.calls, email.calls)
	}
}

func TestComposite_NilSendersDisabled(t *testing.T) {
	t.Parallel()

	g := &Composite{}
	ctx := context.Background()

	if _, err := g.SendPush(ctx, []string{"tok"}, "t", "b", nil); !errors.Is(err, ErrChannelDisabled) {
		t.Errorf("SendPush = %v, want ErrChannelDisabled", err)
	}
	if _, err := g.SendSMS(ctx, []string{"+1555"}, "m"); !errors.Is(err, ErrChannelDisabled) {
		t.Errorf("SendSMS = %v, want ErrChannelDisabled", err)
	}
	if err := g.SendEmail(ctx, []string{"a@b.test"}, "s", "h"); !errors.Is(err, ErrChannelDisabled) {
		t.Errorf("SendEmail = %v, want ErrChannelDisabled", err)
	}
}
