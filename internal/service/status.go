package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOnHold, domain.TicketStatusClosed},
	domain.TicketStatusOnHold:     {domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from current.
func AllowedTransitions(current domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus(nil), allowedTransitions[current]...)
}

func transitionMessage(current, next domain.TicketStatus) string {
	targets := allowedTransitions[current]
	allowed := "none"
	if len(targets) > 0 {
		names := make([]string, len(targets))
		for i, s := range targets {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Cannot transition from '%s' to '%s'. Allowed: %s", current, next, allowed)
}

func statusEnumMessage() string {
	names := make([]string, len(domain.TicketStatuses))
	for i, s := range domain.TicketStatuses {
		names[i] = string(s)
	}
	return "Status must be one of: " + strings.Join(names, ", ")
}

func priorityEnumMessage() string {
	names := make([]string, len(domain.TicketPriorities))
	for i, p := range domain.TicketPriorities {
		names[i] = string(p)
	}
	return "Priority must be one of: " + strings.Join(names, ", ")
}
