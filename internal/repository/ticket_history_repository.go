package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	q *querier
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, actor_user_id, actor_role, action, old_status, new_status, note, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`
	var oldStatus any
	if history.OldStatus != nil {
		oldStatus = string(*history.OldStatus)
	}
	if err := r.q.queryRow(ctx, query,
		history.TicketID,
		int64Arg(history.ActorUserID),
		history.ActorRole,
		history.Action,
		oldStatus,
		string(history.NewStatus),
		history.Note,
		r.q.timeArg(history.CreatedAt),
	).Scan(&history.ID); err != nil {
		return fmt.Errorf("insert ticket history: %w", err)
	}
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, actor_user_id, actor_role, action, old_status, new_status, note, created_at
        FROM ticket_history WHERE ticket_id=? ORDER BY id ASC`
	rows, err := r.q.query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list ticket history: %w", err)
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			history   domain.TicketHistory
			actorID   sql.NullInt64
			oldStatus sql.NullString
			newStatus string
			createdAt nullTime
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&actorID,
			&history.ActorRole,
			&history.Action,
			&oldStatus,
			&newStatus,
			&history.Note,
			&createdAt,
		); err != nil {
			return nil, err
		}
		history.ActorUserID = int64Ptr(actorID)
		if oldStatus.Valid {
			s := domain.TicketStatus(oldStatus.String)
			history.OldStatus = &s
		}
		history.NewStatus = domain.TicketStatus(newStatus)
		history.CreatedAt = createdAt.Time
		result = append(result, history)
	}
	return result, rows.Err()
}
