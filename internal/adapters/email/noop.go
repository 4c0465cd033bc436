package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs notifications instead of delivering them and keeps the
// most recent ones in memory. Used when no Resend key is configured.
type NoopSender struct {
	mu   sync.Mutex
	sent []Message
	keep int
}

// NewNoopSender creates a NoopSender remembering up to 50 messages.
func NewNoopSender() *NoopSender {
	return &NoopSender{keep: 50}
}

// Send logs msg without delivering it.
func (s *NoopSender) Send(_ context.Context, msg Message) (SendResult, error) {
	slog.Info("noop_email_send", "to", msg.To, "subject", msg.Subject)
	s.remember(msg)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

// SendBatch logs each message without delivering.
func (s *NoopSender) SendBatch(ctx context.Context, msgs []Message) ([]SendResult, error) {
	results := make([]SendResult, 0, len(msgs))
	for _, m := range msgs {
		r, _ := s.Send(ctx, m)
		results = append(results, r)
	}
	return results, nil
}

// Sent returns the remembered messages, oldest first.
func (s *NoopSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func (s *NoopSender) remember(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if len(s.sent) > s.keep {
		s.sent = s.sent[len(s.sent)-s.keep:]
	}
}
