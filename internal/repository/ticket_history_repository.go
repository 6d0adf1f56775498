package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketHistoryRepository stores audit entries. Rows are never updated or deleted.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error)
}

type ticketHistoryRepository struct {
	db DB
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DB) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistoryEntry) error {
	query, args, err := psql.Insert("ticket_history").
		Columns("ticket_id", "changed_by", "field_changed", "old_value", "new_value").
		Values(entry.TicketID, entry.ChangedBy, string(entry.FieldChanged), entry.OldValue, entry.NewValue).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build history insert: %w", err)
	}
	if err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("insert history for ticket %d: %w", entry.TicketID, err)
	}
	return nil
}

// ListByTicket returns entries newest first; entries written in the same
// mutation share created_at and fall back to id order.
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error) {
	query, args, err := psql.Select(
		"h.id", "h.ticket_id", "h.changed_by", "h.field_changed", "h.old_value", "h.new_value", "h.created_at",
		"u.first_name", "u.last_name", "u.email",
	).
		From("ticket_history h").
		Join("users u ON h.changed_by = u.id").
		Where(sq.Eq{"h.ticket_id": ticketID}).
		OrderBy("h.created_at DESC", "h.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history select: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history for ticket %d: %w", ticketID, err)
	}
	defer rows.Close()

	result := []domain.TicketHistoryEntry{}
	for rows.Next() {
		var entry domain.TicketHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedBy,
			&entry.FieldChanged,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
			&entry.ChangedByRef.FirstName,
			&entry.ChangedByRef.LastName,
			&entry.ChangedByRef.Email,
		); err != nil {
			return nil, err
		}
		entry.ChangedByRef.ID = entry.ChangedBy
		result = append(result, entry)
	}
	return result, rows.Err()
}
