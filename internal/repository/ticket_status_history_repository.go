package repository

import (
	"context"

	"github.com/spec-kit/returns-service/internal/domain"
)

// TicketStatusHistoryRepository stores the append-only status audit trail.
type TicketStatusHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketStatusHistory) error
	// ListByTicket returns entries in insertion order, oldest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error)
}

type ticketStatusHistoryRepository struct {
	db DBTX
}

// NewTicketStatusHistoryRepository builds repository.
func NewTicketStatusHistoryRepository(db DBTX) TicketStatusHistoryRepository {
	return &ticketStatusHistoryRepository{db: db}
}

func (r *ticketStatusHistoryRepository) Create(ctx context.Context, entry *domain.TicketStatusHistory) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, status_from, status_to, actor_id, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.StatusFrom,
		entry.StatusTo,
		entry.ActorID,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketStatusHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	const query = `
        SELECT h.id, h.ticket_id, h.status_from, h.status_to, h.actor_id, h.reason, h.created_at, COALESCE(u.name, '')
        FROM ticket_status_history h LEFT JOIN users u ON u.id = h.actor_id
        WHERE h.ticket_id=$1 ORDER BY h.seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketStatusHistory
	for rows.Next() {
		var entry domain.TicketStatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.StatusFrom,
			&entry.StatusTo,
			&entry.ActorID,
			&entry.Reason,
			&entry.CreatedAt,
			&entry.ActorName,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
