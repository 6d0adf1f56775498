package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TxRunner executes fn inside a transaction carried by ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	tx         TxRunner
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.TicketHistoryRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	Tx           TxRunner
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload. A zero CategoryID means missing.
type TicketCreateInput struct {
	Title       string
	Description *string
	CategoryID  int64
	Priority    domain.TicketPriority
}

// TicketUpdateInput describes the editable ticket fields. Nil or unset means
// untouched. An explicit null priority counts as an attempt to change it.
type TicketUpdateInput struct {
	Title       *string
	Description domain.Nullable[string]
	CategoryID  *int64
	Priority    domain.Nullable[domain.TicketPriority]
}

// TicketListFilter narrows a listing beyond the caller's role scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
	}
}

// ListTickets returns the tickets visible to the actor, most recently updated first.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError(statusEnumMessage(), nil)
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, apperrors.NewValidationError(priorityEnumMessage(), nil)
		}
	}

	departmentID, participantID := listScopeFor(actor)
	return s.tickets.List(ctx, repository.TicketFilter{
		DepartmentID:  departmentID,
		ParticipantID: participantID,
		Statuses:      filter.Statuses,
		Priorities:    filter.Priorities,
	})
}

// GetTicket fetches a ticket the actor may read.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, id int64) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !CanReadTicket(ticket, actor) {
		return nil, apperrors.NewForbidden("You do not have access to this ticket")
	}
	return ticket, nil
}

// CreateTicket opens a ticket in the department of its category. No history is written.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("Title is required", nil)
	}
	if err := validateTitleLength(title); err != nil {
		return nil, err
	}
	description, err := normalizeDescription(input.Description)
	if err != nil {
		return nil, err
	}
	if input.CategoryID == 0 {
		return nil, apperrors.NewValidationError("Category is required", nil)
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError(priorityEnumMessage(), nil)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if category == nil || !category.IsActive {
		return nil, apperrors.NewValidationError("Invalid or inactive category selected", nil)
	}

	id, err := s.tickets.Create(ctx, domain.NewTicket{
		Title:        title,
		Description:  description,
		Priority:     input.Priority,
		CategoryID:   category.ID,
		DepartmentID: category.DepartmentID,
		CreatedBy:    actor.ID,
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			DepartmentID: ticket.Department.ID,
			CategoryID:   ticket.Category.ID,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// UpdateTicket edits title, description, category or priority.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	var changed []domain.TicketField
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ticket, err := s.loadTicket(ctx, id, true)
		if err != nil {
			return err
		}
		if !CanWriteTicket(ticket, actor) {
			return apperrors.NewForbidden("You do not have permission to modify this ticket")
		}
		if input.Priority.Set {
			if msg, denied := restriction(actor.Role, opSetPriority); denied {
				return apperrors.NewForbidden(msg)
			}
		}

		patch, err := s.buildUpdatePatch(ctx, input)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return apperrors.NewValidationError("No fields to update", nil)
		}

		changed, err = s.apply(ctx, ticket, patch, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		EntityID: id,
		ActorID:  actor.ID,
		Payload:  events.TicketUpdatedPayload{Fields: changed},
	})
	return ticket, nil
}

// ChangeStatus moves the ticket along one edge of the transition table.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError(statusEnumMessage(), nil)
	}

	var previous domain.TicketStatus
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ticket, err := s.loadTicket(ctx, id, true)
		if err != nil {
			return err
		}
		if !CanWriteTicket(ticket, actor) {
			return apperrors.NewForbidden("You do not have permission to change this ticket status")
		}
		if status == domain.TicketStatusClosed {
			if msg, denied := restriction(actor.Role, opClose); denied {
				return apperrors.NewForbidden(msg)
			}
		}
		if !isValidTransition(ticket.Status, status) {
			return apperrors.NewValidationError(transitionMessage(ticket.Status, status), nil)
		}

		previous = ticket.Status
		_, err = s.apply(ctx, ticket, domain.TicketPatch{Status: &status}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		EntityID: id,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// AssignTicket sets or clears the assignee. assignedTo must be present; an
// explicit null unassigns.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Actor, id int64, assignedTo domain.Nullable[int64]) (*domain.Ticket, error) {
	var previous *int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ticket, err := s.loadTicket(ctx, id, true)
		if err != nil {
			return err
		}
		if msg, denied := restriction(actor.Role, opAssign); denied {
			return apperrors.NewForbidden(msg)
		}
		if actor.Role == domain.RoleManager && !actor.InDepartment(ticket.Department.ID) {
			return apperrors.NewForbidden("You can only assign tickets within your department")
		}
		if !CanWriteTicket(ticket, actor) {
			return apperrors.NewForbidden("You do not have permission to modify this ticket")
		}
		if !assignedTo.Set {
			return apperrors.NewValidationError("assignedTo is required (use null to unassign)", nil)
		}
		if assignedTo.Value != nil {
			if err := s.ensureAssignable(ctx, *assignedTo.Value); err != nil {
				return err
			}
		}

		previous = ticket.AssigneeID()
		_, err = s.apply(ctx, ticket, domain.TicketPatch{AssignedTo: assignedTo}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		EntityID: id,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			PreviousAssigneeID: previous,
			AssigneeID:         assignedTo.Value,
		},
	})
	return ticket, nil
}

// ListHistory returns the audit trail newest first.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Actor, id int64) ([]domain.TicketHistoryEntry, error) {
	ticket, err := s.loadTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !CanReadTicket(ticket, actor) {
		return nil, apperrors.NewForbidden("You do not have access to this ticket")
	}
	return s.history.ListByTicket(ctx, ticket.ID)
}

// apply persists patch and appends one history row per changed audited field.
// Callers run it inside a transaction after all validation has passed.
func (s *TicketService) apply(ctx context.Context, prior *domain.Ticket, patch domain.TicketPatch, actor domain.Actor) ([]domain.TicketField, error) {
	entries := diffTicket(prior, patch, actor.ID)

	if err := s.tickets.Update(ctx, prior.ID, patch); err != nil {
		return nil, err
	}

	changed := make([]domain.TicketField, 0, len(entries))
	for i := range entries {
		if err := s.history.Create(ctx, &entries[i]); err != nil {
			return nil, err
		}
		changed = append(changed, entries[i].FieldChanged)
	}
	return changed, nil
}

func (s *TicketService) buildUpdatePatch(ctx context.Context, input TicketUpdateInput) (domain.TicketPatch, error) {
	var patch domain.TicketPatch

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return patch, apperrors.NewValidationError("Title cannot be empty", nil)
		}
		if err := validateTitleLength(title); err != nil {
			return patch, err
		}
		patch.Title = &title
	}

	if input.Description.Set {
		description, err := normalizeDescription(input.Description.Value)
		if err != nil {
			return patch, err
		}
		patch.Description = domain.Nullable[string]{Set: true, Value: description}
	}

	if input.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *input.CategoryID)
		if errors.Is(err, pgx.ErrNoRows) {
			return patch, apperrors.NewValidationError("Invalid category selected", nil)
		}
		if err != nil {
			return patch, err
		}
		categoryID := category.ID
		departmentID := category.DepartmentID
		patch.CategoryID = &categoryID
		patch.DepartmentID = &departmentID
	}

	if input.Priority.Set {
		if input.Priority.Value == nil || !input.Priority.Value.Valid() {
			return patch, apperrors.NewValidationError(priorityEnumMessage(), nil)
		}
		priority := *input.Priority.Value
		patch.Priority = &priority
	}

	return patch, nil
}

func (s *TicketService) ensureAssignable(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if user == nil || !user.IsActive {
		return apperrors.NewValidationError("Assignee user not found or is inactive", nil)
	}
	return nil
}

func (s *TicketService) loadTicket(ctx context.Context, id int64, lock bool) (*domain.Ticket, error) {
	var (
		ticket *domain.Ticket
		err    error
	)
	if lock {
		ticket, err = s.tickets.GetByIDForUpdate(ctx, id)
	} else {
		ticket, err = s.tickets.GetByID(ctx, id)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Ticket", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %d: %w", id, err)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateTitleLength(title string) error {
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return apperrors.NewValidationError(fmt.Sprintf("Title must be %d characters or fewer", domain.MaxTitleLength), nil)
	}
	return nil
}

// normalizeDescription trims the description and maps blank to null.
func normalizeDescription(description *string) (*string, error) {
	if description == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxDescriptionLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Description must be %d characters or fewer", domain.MaxDescriptionLength), nil)
	}
	return &trimmed, nil
}
