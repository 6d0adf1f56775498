package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusClosed,
}

// Valid reports whether the status is part of the enum.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists every priority in display order.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether the priority is part of the enum.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 2000
)

// NamedRef is a lightweight reference to a named entity.
type NamedRef struct {
	ID   int64
	Name string
}

// UserRef is a lightweight reference to a user.
type UserRef struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
}

// Ticket is the aggregate for support requests, loaded with its references.
type Ticket struct {
	ID          int64
	Title       string
	Description *string
	Priority    TicketPriority
	Status      TicketStatus
	Category    NamedRef
	Department  NamedRef
	CreatedBy   UserRef
	AssignedTo  *UserRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AssigneeID returns the assignee id or nil when unassigned.
func (t *Ticket) AssigneeID() *int64 {
	if t.AssignedTo == nil {
		return nil
	}
	id := t.AssignedTo.ID
	return &id
}

// NewTicket is the insert shape for a ticket.
type NewTicket struct {
	Title        string
	Description  *string
	Priority     TicketPriority
	CategoryID   int64
	DepartmentID int64
	CreatedBy    int64
}

// TicketPatch carries the columns to change on a ticket. Nil fields are untouched.
// DepartmentID is derived from CategoryID and never set on its own.
type TicketPatch struct {
	Title        *string
	Description  Nullable[string]
	Priority     *TicketPriority
	Status       *TicketStatus
	CategoryID   *int64
	DepartmentID *int64
	AssignedTo   Nullable[int64]
}

// IsEmpty reports whether the patch changes nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Title == nil && !p.Description.Set && p.Priority == nil && p.Status == nil &&
		p.CategoryID == nil && p.DepartmentID == nil && !p.AssignedTo.Set
}
