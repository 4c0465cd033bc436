package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cumeal/internal/adapters/email"
	"cumeal/internal/application/menuview"
	"cumeal/internal/domain/audit"
	"cumeal/internal/domain/menu"
)

// MenuChangeDeps holds dependencies for recording menu changes.
type MenuChangeDeps struct {
	Audit      AuditRecorder
	Sender     email.Sender // nil disables notifications
	Recipients []string
	Outbox     NotificationQueue // nil drops notifications that fail to send
	Now        func() time.Time
}

// MenuChangeNotifier records every accepted menu mutation in the audit trail
// and mails the configured recipients.
type MenuChangeNotifier struct {
	deps MenuChangeDeps
}

var _ menuview.Observer = (*MenuChangeNotifier)(nil)

// NewMenuChangeNotifier creates the observer handed to menu controllers.
func NewMenuChangeNotifier(deps MenuChangeDeps) *MenuChangeNotifier {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &MenuChangeNotifier{deps: deps}
}

// MenuChanged implements menuview.Observer.
func (n *MenuChangeNotifier) MenuChanged(ctx context.Context, ch menuview.Change) {
	if err := ExecuteMenuChange(ctx, ch, n.deps); err != nil {
		slog.Error("menu_change_notify_failed", "id", ch.ID, "kind", string(ch.Kind), "error", err.Error())
	}
}

// ExecuteMenuChange audits ch and sends the notification email.
// POST: the audit event is saved even when sending fails
func ExecuteMenuChange(ctx context.Context, ch menuview.Change, deps MenuChangeDeps) error {
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	actor := audit.ActorFrom(ctx)
	ev := audit.NewEventFor(ctx, audit.CategoryMenu, changeAction(ch.Kind), now).
		WithResource("menu", ch.ID).
		WithDescription(fmt.Sprintf("Menu %s for %s", ch.Kind, dateOrUnknown(ch.Date)))
	if ch.Kind == menuview.ChangeDeleted {
		ev = ev.WithSeverity(audit.SeverityWarning)
	}
	recordAudit(ctx, deps.Audit, ev)

	if deps.Sender == nil || len(deps.Recipients) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Cumeal menu %s: %s", ch.Kind, menu.FormatDisplayDate(ch.Date))
	msg, err := email.Compose(deps.Recipients, subject, ChangeMarkdown(ch, actor.Name))
	if err != nil {
		return err
	}
	msgs := email.PerRecipient(msg)
	if _, err := deps.Sender.SendBatch(ctx, msgs); err != nil {
		if deps.Outbox == nil {
			return fmt.Errorf("send menu change notification: %w", err)
		}
		if qerr := queueNotifications(ctx, deps.Outbox, msgs, now); qerr != nil {
			return fmt.Errorf("send menu change notification: %w (queue: %v)", err, qerr)
		}
		slog.Warn("menu_event", "event", "notification_queued", "id", ch.ID, "recipients", len(msgs), "error", err.Error())
		return nil
	}
	slog.Info("menu_event", "event", "notification_sent", "id", ch.ID, "recipients", len(deps.Recipients))
	return nil
}

// ChangeMarkdown renders the notification body.
func ChangeMarkdown(ch menuview.Change, actorName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Menu %s\n\n", ch.Kind)
	fmt.Fprintf(&b, "**Date:** %s\n", menu.FormatDisplayDate(ch.Date))
	if actorName != "" {
		fmt.Fprintf(&b, "**By:** %s\n", actorName)
	}
	if ch.Kind == menuview.ChangeDeleted {
		b.WriteString("\nThe menu for this day was removed.\n")
		return b.String()
	}
	b.WriteString("\n| Meal | Items |\n|---|---|\n")
	for _, mt := range menu.MealTypes {
		items := payloadItems(ch.Payload, mt)
		if items == "" {
			items = "_No items_"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", mt.Label(), strings.ReplaceAll(items, "|", "/"))
	}
	return b.String()
}

func payloadItems(p menu.Payload, mt menu.MealType) string {
	switch mt {
	case menu.Breakfast:
		return p.Breakfast
	case menu.Lunch:
		return p.Lunch
	case menu.Snacks:
		return p.Snacks
	case menu.Dinner:
		return p.Dinner
	}
	return ""
}

func changeAction(k menuview.ChangeKind) audit.Action {
	switch k {
	case menuview.ChangeCreated:
		return audit.ActionCreate
	case menuview.ChangeDeleted:
		return audit.ActionDelete
	}
	return audit.ActionUpdate
}

func dateOrUnknown(d string) string {
	if d == "" {
		return "unknown date"
	}
	return d
}

// ExportInput describes a completed download.
type ExportInput struct {
	Format string
	Menus  int
}

// ExecuteRecordExport audits a calendar or PDF download.
func ExecuteRecordExport(ctx context.Context, input ExportInput, rec AuditRecorder, now time.Time) {
	recordAudit(ctx, rec, audit.NewEventFor(ctx, audit.CategoryExport, audit.ActionExport, now).
		WithDescription(fmt.Sprintf("Exported %d menus as %s", input.Menus, input.Format)).
		WithMetadata(fmt.Sprintf(`{"format":%q,"menus":%d}`, input.Format, input.Menus)))
	slog.Info("menu_event", "event", "menus_exported", "format", input.Format, "count", input.Menus)
}
