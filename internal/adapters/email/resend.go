package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// batchLimit is the most messages Resend accepts per batch call.
const batchLimit = 100

// ResendSender sends notifications via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new ResendSender.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) request(msg Message) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Markdown,
		Tags:    []resend.Tag{{Name: "category", Value: "menu_change"}},
	}
}

// Send delivers a single message.
// PRE: msg has at least one recipient and a subject
// POST: returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.request(msg))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", msg.To, "subject", msg.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}
	slog.Info("resend_sent", "message_id", sent.Id, "to", msg.To, "subject", msg.Subject)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// SendBatch delivers msgs through the batch endpoint in chunks of batchLimit.
// POST: results are in request order; on error the results sent so far are returned
func (s *ResendSender) SendBatch(ctx context.Context, msgs []Message) ([]SendResult, error) {
	var results []SendResult
	for i := 0; i < len(msgs); i += batchLimit {
		chunk := msgs[i:min(i+batchLimit, len(msgs))]

		params := make([]*resend.SendEmailRequest, 0, len(chunk))
		for _, m := range chunk {
			params = append(params, s.request(m))
		}

		resp, err := s.client.Batch.SendWithContext(ctx, params)
		if err != nil {
			slog.Error("resend_batch_failed", "error", err, "batch_size", len(chunk))
			return results, fmt.Errorf("resend batch send failed: %w", err)
		}
		for _, item := range resp.Data {
			results = append(results, SendResult{MessageID: item.Id, SentAt: time.Now()})
		}
		slog.Info("resend_batch_sent", "count", len(chunk), "total_sent", len(results))
	}
	return results, nil
}
