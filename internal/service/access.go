package service

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ticketScope is the subset of a ticket the access predicates look at.
type ticketScope struct {
	departmentID int64
	creatorID    int64
	assigneeID   *int64
}

func scopeOf(ticket *domain.Ticket) ticketScope {
	return ticketScope{
		departmentID: ticket.Department.ID,
		creatorID:    ticket.CreatedBy.ID,
		assigneeID:   ticket.AssigneeID(),
	}
}

func (s ticketScope) involves(userID int64) bool {
	return s.creatorID == userID || (s.assigneeID != nil && *s.assigneeID == userID)
}

func evaluateScope(scope ticketScope, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleManager:
		return actor.InDepartment(scope.departmentID)
	case domain.RoleWorker:
		return scope.involves(actor.ID)
	default:
		return false
	}
}

// CanReadTicket reports whether the actor may view the ticket and its history.
func CanReadTicket(ticket *domain.Ticket, actor domain.Actor) bool {
	return evaluateScope(scopeOf(ticket), actor)
}

// CanWriteTicket reports whether the actor may mutate the ticket.
// It currently grants exactly what CanReadTicket grants.
func CanWriteTicket(ticket *domain.Ticket, actor domain.Actor) bool {
	return evaluateScope(scopeOf(ticket), actor)
}

// ticketOperation names a mutation subject to extra role restrictions.
type ticketOperation int

const (
	opSetPriority ticketOperation = iota
	opClose
	opAssign
)

// roleRestrictions lists operations a role may never perform, with the message to report.
var roleRestrictions = map[domain.RoleName]map[ticketOperation]string{
	domain.RoleWorker: {
		opSetPriority: "Workers cannot change ticket priority",
		opClose:       "Workers cannot close tickets",
		opAssign:      "Workers cannot assign tickets",
	},
}

// restriction returns the denial message when the role may not perform op.
func restriction(role domain.RoleName, op ticketOperation) (string, bool) {
	msg, denied := roleRestrictions[role][op]
	return msg, denied
}

// listScopeFor compiles the actor's visibility into repository filter fields.
// Unknown roles get an impossible participant id so nothing is returned.
func listScopeFor(actor domain.Actor) (departmentID, participantID *int64) {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil, nil
	case domain.RoleManager:
		if actor.DepartmentID == nil {
			none := int64(0)
			return &none, nil
		}
		dept := *actor.DepartmentID
		return &dept, nil
	case domain.RoleWorker:
		id := actor.ID
		return nil, &id
	default:
		none := int64(0)
		return nil, &none
	}
}
