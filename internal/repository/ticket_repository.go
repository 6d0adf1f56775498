package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter scopes a ticket listing. The role scope fields are compiled into
// the WHERE clause so the database never returns rows the caller cannot see.
type TicketFilter struct {
	// DepartmentID restricts to one department (manager scope).
	DepartmentID *int64
	// ParticipantID restricts to tickets created by or assigned to the user (worker scope).
	ParticipantID *int64
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket domain.NewTicket) (int64, error)
	Update(ctx context.Context, id int64, patch domain.TicketPatch) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

func ticketSelect() sq.SelectBuilder {
	return psql.Select(
		"t.id", "t.title", "t.description", "t.priority", "t.status", "t.created_at", "t.updated_at",
		"c.id", "c.name",
		"d.id", "d.name",
		"cu.id", "cu.first_name", "cu.last_name", "cu.email",
		"au.id", "au.first_name", "au.last_name", "au.email",
	).
		From("tickets t").
		Join("categories c ON t.category_id = c.id").
		Join("departments d ON t.department_id = d.id").
		Join("users cu ON t.created_by = cu.id").
		LeftJoin("users au ON t.assigned_to = au.id")
}

func (r *ticketRepository) Create(ctx context.Context, ticket domain.NewTicket) (int64, error) {
	query, args, err := psql.Insert("tickets").
		Columns("title", "description", "category_id", "priority", "status", "department_id", "created_by").
		Values(
			ticket.Title,
			ticket.Description,
			ticket.CategoryID,
			string(ticket.Priority),
			string(domain.TicketStatusOpen),
			ticket.DepartmentID,
			ticket.CreatedBy,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build ticket insert: %w", err)
	}

	var id int64
	if err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert ticket: %w", err)
	}
	return id, nil
}

func (r *ticketRepository) Update(ctx context.Context, id int64, patch domain.TicketPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	update := psql.Update("tickets")
	if patch.Title != nil {
		update = update.Set("title", *patch.Title)
	}
	if patch.Description.Set {
		update = update.Set("description", patch.Description.Value)
	}
	if patch.Priority != nil {
		update = update.Set("priority", string(*patch.Priority))
	}
	if patch.Status != nil {
		update = update.Set("status", string(*patch.Status))
	}
	if patch.CategoryID != nil {
		update = update.Set("category_id", *patch.CategoryID)
	}
	if patch.DepartmentID != nil {
		update = update.Set("department_id", *patch.DepartmentID)
	}
	if patch.AssignedTo.Set {
		update = update.Set("assigned_to", patch.AssignedTo.Value)
	}

	query, args, err := update.
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ticket update: %w", err)
	}

	cmd, err := querierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update ticket %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect().Where(sq.Eq{"t.id": id}))
}

// GetByIDForUpdate locks the ticket row until the surrounding transaction ends.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect().Where(sq.Eq{"t.id": id}).Suffix("FOR UPDATE OF t"))
}

func (r *ticketRepository) fetchSingle(ctx context.Context, builder sq.SelectBuilder) (*domain.Ticket, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket select: %w", err)
	}
	row := querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...)
	ticket, err := scanTicket(row)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args, err := buildTicketListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build ticket list: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func buildTicketListQuery(filter TicketFilter) (string, []any, error) {
	builder := ticketSelect()

	if filter.DepartmentID != nil {
		builder = builder.Where(sq.Eq{"t.department_id": *filter.DepartmentID})
	}
	if filter.ParticipantID != nil {
		builder = builder.Where(sq.Or{
			sq.Eq{"t.created_by": *filter.ParticipantID},
			sq.Eq{"t.assigned_to": *filter.ParticipantID},
		})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		builder = builder.Where(sq.Eq{"t.status": statuses})
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = string(p)
		}
		builder = builder.Where(sq.Eq{"t.priority": priorities})
	}

	return builder.OrderBy("t.updated_at DESC", "t.id DESC").ToSql()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket        domain.Ticket
		assigneeID    *int64
		assigneeFirst *string
		assigneeLast  *string
		assigneeEmail *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.Category.ID,
		&ticket.Category.Name,
		&ticket.Department.ID,
		&ticket.Department.Name,
		&ticket.CreatedBy.ID,
		&ticket.CreatedBy.FirstName,
		&ticket.CreatedBy.LastName,
		&ticket.CreatedBy.Email,
		&assigneeID,
		&assigneeFirst,
		&assigneeLast,
		&assigneeEmail,
	); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		ticket.AssignedTo = &domain.UserRef{
			ID:        *assigneeID,
			FirstName: deref(assigneeFirst),
			LastName:  deref(assigneeLast),
			Email:     deref(assigneeEmail),
		}
	}
	return &ticket, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
