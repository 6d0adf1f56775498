package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description *string               `json:"description"`
	CategoryID  int64                 `json:"categoryId"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest payload. Absent keys leave the field untouched; a null
// description clears it and a null priority is rejected.
type UpdateTicketRequest struct {
	Title       *string                               `json:"title"`
	Description domain.Nullable[string]               `json:"description"`
	CategoryID  *int64                                `json:"categoryId"`
	Priority    domain.Nullable[domain.TicketPriority] `json:"priority"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload. assignedTo must be present; null unassigns.
type AssignTicketRequest struct {
	AssignedTo domain.Nullable[int64] `json:"assignedTo"`
}

// NamedRefResponse is an id/name pair.
type NamedRefResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserRefResponse identifies a user in ticket payloads.
type UserRefResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Description *string               `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Category    NamedRefResponse      `json:"category"`
	Department  NamedRefResponse      `json:"department"`
	CreatedBy   UserRefResponse       `json:"createdBy"`
	AssignedTo  *UserRefResponse      `json:"assignedTo"`
	// AllowedStatuses lists the statuses the ticket may move to next.
	AllowedStatuses []domain.TicketStatus `json:"allowedStatuses"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// TicketHistoryResponse is one audit trail row.
type TicketHistoryResponse struct {
	ID           int64              `json:"id"`
	FieldChanged domain.TicketField `json:"fieldChanged"`
	OldValue     *string            `json:"oldValue"`
	NewValue     *string            `json:"newValue"`
	ChangedBy    UserRefResponse    `json:"changedBy"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// CategoryResponse is an active category.
type CategoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"departmentId"`
}

// NewTicketResponse maps the domain ticket.
func NewTicketResponse(ticket *domain.Ticket, allowed []domain.TicketStatus) TicketResponse {
	resp := TicketResponse{
		ID:              ticket.ID,
		Title:           ticket.Title,
		Description:     ticket.Description,
		Priority:        ticket.Priority,
		Status:          ticket.Status,
		Category:        NamedRefResponse{ID: ticket.Category.ID, Name: ticket.Category.Name},
		Department:      NamedRefResponse{ID: ticket.Department.ID, Name: ticket.Department.Name},
		CreatedBy:       userRef(ticket.CreatedBy),
		AllowedStatuses: allowed,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
	if resp.AllowedStatuses == nil {
		resp.AllowedStatuses = []domain.TicketStatus{}
	}
	if ticket.AssignedTo != nil {
		ref := userRef(*ticket.AssignedTo)
		resp.AssignedTo = &ref
	}
	return resp
}

// NewTicketHistoryResponses maps audit rows preserving order.
func NewTicketHistoryResponses(entries []domain.TicketHistoryEntry) []TicketHistoryResponse {
	resp := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, TicketHistoryResponse{
			ID:           entry.ID,
			FieldChanged: entry.FieldChanged,
			OldValue:     entry.OldValue,
			NewValue:     entry.NewValue,
			ChangedBy:    userRef(entry.ChangedByRef),
			CreatedAt:    entry.CreatedAt,
		})
	}
	return resp
}

// NewCategoryResponses maps categories.
func NewCategoryResponses(categories []domain.Category) []CategoryResponse {
	resp := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, CategoryResponse{ID: c.ID, Name: c.Name, DepartmentID: c.DepartmentID})
	}
	return resp
}

func userRef(ref domain.UserRef) UserRefResponse {
	return UserRefResponse{ID: ref.ID, FirstName: ref.FirstName, LastName: ref.LastName, Email: ref.Email}
}
