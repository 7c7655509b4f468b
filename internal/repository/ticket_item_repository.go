package repository

import (
	"context"

	"github.com/spec-kit/returns-service/internal/domain"
)

// TicketItemRepository persists ticket line items. Items are insert-only.
type TicketItemRepository interface {
	Create(ctx context.Context, item *domain.TicketItem) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketItem, error)
}

type ticketItemRepository struct {
	db DBTX
}

// NewTicketItemRepository constructs repository.
func NewTicketItemRepository(db DBTX) TicketItemRepository {
	return &ticketItemRepository{db: db}
}

func (r *ticketItemRepository) Create(ctx context.Context, item *domain.TicketItem) error {
	const query = `
        INSERT INTO ticket_items (ticket_id, product_id, quantity, invoice_number, serial_number)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		item.TicketID,
		item.ProductID,
		item.Quantity,
		item.InvoiceNumber,
		item.SerialNumber,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *ticketItemRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketItem, error) {
	const query = `
        SELECT i.id, i.ticket_id, i.product_id, i.quantity, i.invoice_number, i.serial_number, i.created_at, p.name
        FROM ticket_items i JOIN products p ON p.id = i.product_id
        WHERE i.ticket_id=$1 ORDER BY i.created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketItem
	for rows.Next() {
		var item domain.TicketItem
		if err := rows.Scan(
			&item.ID,
			&item.TicketID,
			&item.ProductID,
			&item.Quantity,
			&item.InvoiceNumber,
			&item.SerialNumber,
			&item.CreatedAt,
			&item.ProductName,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
