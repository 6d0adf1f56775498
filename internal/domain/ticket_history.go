package domain

import "time"

// TicketField is the storage label of an audited ticket column.
type TicketField string

const (
	FieldTitle       TicketField = "title"
	FieldDescription TicketField = "description"
	FieldPriority    TicketField = "priority"
	FieldStatus      TicketField = "status"
	FieldCategoryID  TicketField = "category_id"
	FieldAssignedTo  TicketField = "assigned_to"
)

// TicketHistoryEntry is an immutable audit trail row.
type TicketHistoryEntry struct {
	ID           int64
	TicketID     int64
	ChangedBy    int64
	ChangedByRef UserRef
	FieldChanged TicketField
	OldValue     *string
	NewValue     *string
	CreatedAt    time.Time
}
