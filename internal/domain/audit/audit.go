package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by the area of the admin panel they touch.
type Category string

const (
	CategoryMenu     Category = "menu"
	CategorySession  Category = "session"
	CategoryFeedback Category = "feedback"
	CategoryExport   Category = "export"
	CategorySystem   Category = "system"
)

// Categories lists every category in filter-dropdown order.
var Categories = []Category{CategoryMenu, CategorySession, CategoryFeedback, CategoryExport, CategorySystem}

// Action represents the action that occurred.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionLogin   Action = "login"
	ActionLogout  Action = "logout"
	ActionRefresh Action = "refresh"
	ActionExport  Action = "export"
	ActionView    Action = "view"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single admin action recorded in the local trail.
// Menus themselves live in the backend; the trail only remembers who did what.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorName    string    `json:"actor_name"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Metadata     string    `json:"metadata"`
}

// NewEvent creates an info-level event stamped now.
// PRE: category and action are non-empty
// POST: ID is a fresh UUID
func NewEvent(actorID, actorName string, category Category, action Action, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		ActorID:   actorID,
		ActorName: actorName,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
// PRE: resourceType is non-empty
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest sets IP address and user agent from the HTTP request.
func (e Event) WithRequest(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// WithMetadata sets optional JSON metadata.
// PRE: metadata is valid JSON or empty
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}

// Actor identifies who performed an action and from where.
type Actor struct {
	ID        string
	Name      string
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor attaches the acting administrator to ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor attached to ctx, or the zero Actor.
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// NewEventFor creates an event for the actor carried by ctx.
func NewEventFor(ctx context.Context, category Category, action Action, now time.Time) Event {
	a := ActorFrom(ctx)
	return NewEvent(a.ID, a.Name, category, action, now).WithRequest(a.IPAddress, a.UserAgent)
}
