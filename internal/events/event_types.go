package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventUserCreated         EventType = "user_created"
	EventUserUpdated         EventType = "user_updated"
	EventUserActiveToggled   EventType = "user_active_toggled"
	EventReferenceReloaded   EventType = "reference_reloaded"
)

// Event represents a domain event emitted by services after a committed mutation.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  int64       `json:"entity_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID int64                 `json:"department_id"`
	CategoryID   int64                 `json:"category_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketUpdatedPayload lists the audited fields that changed.
type TicketUpdatedPayload struct {
	Fields []domain.TicketField `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload. A nil assignee means the ticket was unassigned.
type TicketAssignedPayload struct {
	PreviousAssigneeID *int64 `json:"previous_assignee_id,omitempty"`
	AssigneeID         *int64 `json:"assignee_id,omitempty"`
}

// UserChangedPayload payload.
type UserChangedPayload struct {
	Email string          `json:"email"`
	Role  domain.RoleName `json:"role,omitempty"`
}

// UserActiveToggledPayload payload.
type UserActiveToggledPayload struct {
	IsActive bool `json:"is_active"`
}

// ReferenceReloadedPayload payload.
type ReferenceReloadedPayload struct {
	Roles       int `json:"roles"`
	Departments int `json:"departments"`
}
