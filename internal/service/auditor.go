package service

import (
	"strconv"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// auditedField pairs a storage label with accessors for the prior and proposed values.
// present reports whether the patch touches the field at all.
type auditedField struct {
	label   domain.TicketField
	present func(p domain.TicketPatch) bool
	before  func(t *domain.Ticket) *string
	after   func(p domain.TicketPatch) *string
}

// auditedFields fixes the order history entries are emitted in.
var auditedFields = []auditedField{
	{
		label:   domain.FieldTitle,
		present: func(p domain.TicketPatch) bool { return p.Title != nil },
		before:  func(t *domain.Ticket) *string { return &t.Title },
		after:   func(p domain.TicketPatch) *string { return p.Title },
	},
	{
		label:   domain.FieldDescription,
		present: func(p domain.TicketPatch) bool { return p.Description.Set },
		before:  func(t *domain.Ticket) *string { return t.Description },
		after:   func(p domain.TicketPatch) *string { return p.Description.Value },
	},
	{
		label:   domain.FieldPriority,
		present: func(p domain.TicketPatch) bool { return p.Priority != nil },
		before:  func(t *domain.Ticket) *string { return stringOf(string(t.Priority)) },
		after:   func(p domain.TicketPatch) *string { return stringOf(string(*p.Priority)) },
	},
	{
		label:   domain.FieldStatus,
		present: func(p domain.TicketPatch) bool { return p.Status != nil },
		before:  func(t *domain.Ticket) *string { return stringOf(string(t.Status)) },
		after:   func(p domain.TicketPatch) *string { return stringOf(string(*p.Status)) },
	},
	{
		label:   domain.FieldCategoryID,
		present: func(p domain.TicketPatch) bool { return p.CategoryID != nil },
		before:  func(t *domain.Ticket) *string { return idString(&t.Category.ID) },
		after:   func(p domain.TicketPatch) *string { return idString(p.CategoryID) },
	},
	{
		label:   domain.FieldAssignedTo,
		present: func(p domain.TicketPatch) bool { return p.AssignedTo.Set },
		before:  func(t *domain.Ticket) *string { return idString(t.AssigneeID()) },
		after:   func(p domain.TicketPatch) *string { return idString(p.AssignedTo.Value) },
	},
}

// diffTicket returns one history entry per audited field whose stringified
// value changes. Nothing is persisted here.
func diffTicket(prior *domain.Ticket, patch domain.TicketPatch, actorID int64) []domain.TicketHistoryEntry {
	var entries []domain.TicketHistoryEntry
	for _, field := range auditedFields {
		if !field.present(patch) {
			continue
		}
		oldValue := field.before(prior)
		newValue := field.after(patch)
		if equalNullable(oldValue, newValue) {
			continue
		}
		entries = append(entries, domain.TicketHistoryEntry{
			TicketID:     prior.ID,
			ChangedBy:    actorID,
			FieldChanged: field.label,
			OldValue:     copyString(oldValue),
			NewValue:     copyString(newValue),
		})
	}
	return entries
}

func equalNullable(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringOf(s string) *string {
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func idString(id *int64) *string {
	if id == nil {
		return nil
	}
	return stringOf(strconv.FormatInt(*id, 10))
}
