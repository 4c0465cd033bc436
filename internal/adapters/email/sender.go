package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Message is one outgoing notification. Markdown is the source of both bodies.
type Message struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Markdown string   `json:"markdown"`
	HTML     string   `json:"html"`
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers menu-change notifications.
type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
	SendBatch(ctx context.Context, msgs []Message) ([]SendResult, error)
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Compose builds a message whose HTML body is rendered from markdown.
// Raw HTML in the markdown is escaped by goldmark's default (unsafe off) renderer.
// PRE: len(to) > 0
func Compose(to []string, subject, markdown string) (Message, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return Message{}, fmt.Errorf("render email body: %w", err)
	}
	return Message{To: to, Subject: subject, Markdown: markdown, HTML: buf.String()}, nil
}

// PerRecipient splits msg into one message per address so recipients do not see each other.
func PerRecipient(msg Message) []Message {
	out := make([]Message, 0, len(msg.To))
	for _, to := range msg.To {
		m := msg
		m.To = []string{to}
		out = append(out, m)
	}
	return out
}
