package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/repository"
)

type storeTickets struct{ s *Store }

func (r storeTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func(v *view) error { return v.Tickets().Create(ctx, ticket) })
}

func (r storeTickets) GetByID(ctx context.Context, id string) (ticket *domain.Ticket, err error) {
	err = r.s.read(func(v *view) error {
		ticket, err = v.Tickets().GetByID(ctx, id)
		return err
	})
	return ticket, err
}

func (r storeTickets) GetByNumber(ctx context.Context, number string) (ticket *domain.Ticket, err error) {
	err = r.s.read(func(v *view) error {
		ticket, err = v.Tickets().GetByNumber(ctx, number)
		return err
	})
	return ticket, err
}

func (r storeTickets) GetForUpdate(ctx context.Context, id string) (ticket *domain.Ticket, err error) {
	err = r.s.read(func(v *view) error {
		ticket, err = v.Tickets().GetForUpdate(ctx, id)
		return err
	})
	return ticket, err
}

func (r storeTickets) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func(v *view) error { return v.Tickets().UpdateStatus(ctx, ticket) })
}

func (r storeTickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) (tickets []domain.Ticket, err error) {
	err = r.s.read(func(v *view) error {
		tickets, err = v.Tickets().ListWithFilter(ctx, filter)
		return err
	})
	return tickets, err
}

func (r storeTickets) CountByStatus(ctx context.Context, tenantID *string) (counts map[domain.TicketStatus]int64, err error) {
	err = r.s.read(func(v *view) error {
		counts, err = v.Tickets().CountByStatus(ctx, tenantID)
		return err
	})
	return counts, err
}

type storeItems struct{ s *Store }

func (r storeItems) Create(ctx context.Context, item *domain.TicketItem) error {
	return r.s.write(ctx, func(v *view) error { return v.Items().Create(ctx, item) })
}

func (r storeItems) ListByTicket(ctx context.Context, ticketID string) (items []domain.TicketItem, err error) {
	err = r.s.read(func(v *view) error {
		items, err = v.Items().ListByTicket(ctx, ticketID)
		return err
	})
	return items, err
}

type storeHistory struct{ s *Store }

func (r storeHistory) Create(ctx context.Context, entry *domain.TicketStatusHistory) error {
	return r.s.write(ctx, func(v *view) error { return v.History().Create(ctx, entry) })
}

func (r storeHistory) ListByTicket(ctx context.Context, ticketID string) (entries []domain.TicketStatusHistory, err error) {
	err = r.s.read(func(v *view) error {
		entries, err = v.History().ListByTicket(ctx, ticketID)
		return err
	})
	return entries, err
}

type storeUsers struct{ s *Store }

func (r storeUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	if user.TenantID != nil {
		if _, ok := r.s.st.tenants[*user.TenantID]; !ok {
			return repository.ErrNotFound
		}
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.st.users[user.ID] = *user
	return nil
}

func (r storeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r storeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.st.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type storeProducts struct{ s *Store }

func (r storeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &product, nil
}
