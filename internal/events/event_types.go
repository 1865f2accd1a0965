package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/integrity-watch/report-service/internal/domain"
)

// EventType enumerates supported event identifiers. Report events use the
// names clients see on the websocket.
type EventType string

const (
	EventReportCreated       EventType = "report:new"
	EventReportUpdated       EventType = "report:updated"
	EventReportStatusUpdated EventType = "report:status:updated"
	EventReportAssigned      EventType = "report:assigned"
	EventReportMessageAdded  EventType = "report:message:new"
	EventReportEvidenceAdded EventType = "report:evidence:added"
	EventReportDeleted       EventType = "report:deleted"

	EventUserRegistered         EventType = "user:registered"
	EventPasswordResetRequested EventType = "user:password_reset_requested"
)

// ReportEventTypes lists every report lifecycle event.
var ReportEventTypes = []EventType{
	EventReportCreated,
	EventReportUpdated,
	EventReportStatusUpdated,
	EventReportAssigned,
	EventReportMessageAdded,
	EventReportEvidenceAdded,
	EventReportDeleted,
}

// Audience carries routing hints for subscribers. ReporterID stays empty for anonymous reports.
type Audience struct {
	ReporterID string
	AssigneeID string
	State      string
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ReportID  string    `json:"reportId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Audience  Audience  `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ForReport fills report routing data. The reporter is omitted when the report is anonymous.
func (e Event) ForReport(report *domain.Report) Event {
	e.ReportID = report.ID.Hex()
	e.Audience.State = report.Location.State
	if report.Reporter != nil && !report.IsAnonymous {
		e.Audience.ReporterID = report.Reporter.Hex()
	}
	if report.AssignedTo != nil {
		e.Audience.AssigneeID = report.AssignedTo.Hex()
	}
	return e
}

// By records the acting user.
func (e Event) By(actorID string) Event {
	e.ActorID = actorID
	return e
}

// ReportCreatedPayload is broadcast to police and admins when a report arrives.
type ReportCreatedPayload struct {
	ReportID    string                `json:"reportId"`
	Title       string                `json:"title"`
	Category    domain.ReportCategory `json:"category"`
	Priority    domain.ReportPriority `json:"priority"`
	State       string                `json:"state,omitempty"`
	City        string                `json:"city,omitempty"`
	IsAnonymous bool                  `json:"isAnonymous"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// ReportUpdatedPayload lists which fields changed.
type ReportUpdatedPayload struct {
	ReportID string   `json:"reportId"`
	Fields   []string `json:"fields"`
}

// ReportStatusPayload payload.
type ReportStatusPayload struct {
	ReportID   string              `json:"reportId"`
	OldStatus  domain.ReportStatus `json:"oldStatus"`
	NewStatus  domain.ReportStatus `json:"newStatus"`
	Comment    string              `json:"comment,omitempty"`
	Resolution *domain.Resolution  `json:"resolution,omitempty"`
}

// ReportAssignedPayload payload.
type ReportAssignedPayload struct {
	ReportID    string              `json:"reportId"`
	OfficerID   string              `json:"officerId"`
	OfficerName string              `json:"officerName"`
	Status      domain.ReportStatus `json:"status"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	ReportID string         `json:"reportId"`
	Message  domain.Message `json:"message"`
}

// EvidenceAddedPayload payload.
type EvidenceAddedPayload struct {
	ReportID string            `json:"reportId"`
	Evidence []domain.Evidence `json:"evidence"`
}

// ReportDeletedPayload payload.
type ReportDeletedPayload struct {
	ReportID string `json:"reportId"`
}

// UserRegisteredPayload carries the raw verification token for the welcome mail.
type UserRegisteredPayload struct {
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	VerificationToken string    `json:"-"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// PasswordResetRequestedPayload carries the raw reset token for the reset mail.
type PasswordResetRequestedPayload struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}
