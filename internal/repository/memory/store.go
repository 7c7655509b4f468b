// Package memory provides an in-process implementation of the repository
// interfaces. Transactions work on a copy of the data set that replaces the
// committed state only when the unit of work succeeds; one transaction runs
// at a time.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/repository"
)

// Store is an in-memory repository.Store.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

type state struct {
	tenants  map[string]domain.Tenant
	users    map[string]domain.User
	products map[string]domain.Product
	tickets  map[string]domain.Ticket
	numbers  map[string]string
	items    []domain.TicketItem
	history  []domain.TicketStatusHistory
}

func newState() *state {
	return &state{
		tenants:  make(map[string]domain.Tenant),
		users:    make(map[string]domain.User),
		products: make(map[string]domain.Product),
		tickets:  make(map[string]domain.Ticket),
		numbers:  make(map[string]string),
	}
}

func (s *state) clone() *state {
	out := &state{
		tenants:  make(map[string]domain.Tenant, len(s.tenants)),
		users:    make(map[string]domain.User, len(s.users)),
		products: make(map[string]domain.Product, len(s.products)),
		tickets:  make(map[string]domain.Ticket, len(s.tickets)),
		numbers:  make(map[string]string, len(s.numbers)),
		items:    append([]domain.TicketItem(nil), s.items...),
		history:  append([]domain.TicketStatusHistory(nil), s.history...),
	}
	for k, v := range s.tenants {
		out.tenants[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.tickets {
		out.tickets[k] = v
	}
	for k, v := range s.numbers {
		out.numbers[k] = v
	}
	return out
}

// WithTx runs fn against a private copy of the data and commits it when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&view{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) read(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: s.st, now: s.now})
}

func (s *Store) write(ctx context.Context, fn func(v *view) error) error {
	return s.WithTx(ctx, func(tx repository.Tx) error {
		return fn(tx.(*view))
	})
}

// Tickets returns an autocommit ticket repository.
func (s *Store) Tickets() repository.TicketRepository { return storeTickets{s} }

// Items returns an autocommit item repository.
func (s *Store) Items() repository.TicketItemRepository { return storeItems{s} }

// History returns an autocommit history repository.
func (s *Store) History() repository.TicketStatusHistoryRepository { return storeHistory{s} }

// Users returns the user repository.
func (s *Store) Users() repository.UserRepository { return storeUsers{s} }

// Products returns the product catalog.
func (s *Store) Products() repository.ProductRepository { return storeProducts{s} }

// AddTenant seeds a tenant, assigning an id when empty.
func (s *Store) AddTenant(tenant domain.Tenant) domain.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = s.now()
	}
	s.st.tenants[tenant.ID] = tenant
	return tenant
}

// AddProduct seeds a catalog product, assigning an id when empty.
func (s *Store) AddProduct(product domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	s.st.products[product.ID] = product
	return product
}

// Counts reports the number of stored tickets, items and history entries.
func (s *Store) Counts() (tickets, items, history int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.tickets), len(s.st.items), len(s.st.history)
}

// view operates on one state snapshot without locking.
type view struct {
	st  *state
	now func() time.Time
}

func (v *view) Tickets() repository.TicketRepository              { return viewTickets{v} }
func (v *view) Items() repository.TicketItemRepository            { return viewItems{v} }
func (v *view) History() repository.TicketStatusHistoryRepository { return viewHistory{v} }

type viewTickets struct{ v *view }

func (r viewTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	st := r.v.st
	if _, taken := st.numbers[ticket.Number]; taken {
		return repository.ErrDuplicateTicketNumber
	}
	if _, ok := st.tenants[ticket.TenantID]; !ok {
		return fmt.Errorf("tickets.tenant_id %q: foreign key violation", ticket.TenantID)
	}
	if _, ok := st.users[ticket.SubmitterID]; !ok {
		return fmt.Errorf("tickets.submitter_id %q: foreign key violation", ticket.SubmitterID)
	}
	if !ticket.Status.Valid() {
		return fmt.Errorf("tickets.status %q: check violation", ticket.Status)
	}
	now := r.v.now()
	stored := *ticket
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Tenant = nil
	stored.Items = nil
	st.tickets[stored.ID] = stored
	st.numbers[stored.Number] = stored.ID

	ticket.ID = stored.ID
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return nil
}

func (r viewTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.v.st.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withTenant(ticket), nil
}

func (r viewTickets) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	id, ok := r.v.st.numbers[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r viewTickets) GetForUpdate(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.v.st.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ticket, nil
}

func (r viewTickets) UpdateStatus(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := r.v.st.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !ticket.Status.Valid() {
		return fmt.Errorf("tickets.status %q: check violation", ticket.Status)
	}
	stored.Status = ticket.Status
	stored.UpdatedAt = r.v.now()
	r.v.st.tickets[ticket.ID] = stored
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r viewTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	statuses := make(map[domain.TicketStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	var matched []domain.Ticket
	for _, ticket := range r.v.st.tickets {
		if filter.TenantID != nil && ticket.TenantID != *filter.TenantID {
			continue
		}
		if filter.SubmitterID != nil && ticket.SubmitterID != *filter.SubmitterID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[ticket.Status]; !ok {
				continue
			}
		}
		if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if search != "" && !matchesSearch(ticket, search) {
			continue
		}
		matched = append(matched, ticket)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Number > matched[j].Number
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r viewTickets) CountByStatus(_ context.Context, tenantID *string) (map[domain.TicketStatus]int64, error) {
	counts := make(map[domain.TicketStatus]int64)
	for _, ticket := range r.v.st.tickets {
		if tenantID != nil && ticket.TenantID != *tenantID {
			continue
		}
		counts[ticket.Status]++
	}
	return counts, nil
}

func (r viewTickets) withTenant(ticket domain.Ticket) *domain.Ticket {
	if tenant, ok := r.v.st.tenants[ticket.TenantID]; ok {
		ticket.Tenant = &tenant
	}
	return &ticket
}

func matchesSearch(ticket domain.Ticket, search string) bool {
	fields := []string{ticket.Number, ticket.ContractNumber, ticket.InvoiceNumber}
	if ticket.SerialNumber != nil {
		fields = append(fields, *ticket.SerialNumber)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

type viewItems struct{ v *view }

func (r viewItems) Create(_ context.Context, item *domain.TicketItem) error {
	st := r.v.st
	if _, ok := st.tickets[item.TicketID]; !ok {
		return fmt.Errorf("ticket_items.ticket_id %q: foreign key violation", item.TicketID)
	}
	if _, ok := st.products[item.ProductID]; !ok {
		return fmt.Errorf("ticket_items.product_id %q: foreign key violation", item.ProductID)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("ticket_items.quantity %d: check violation", item.Quantity)
	}
	item.ID = uuid.NewString()
	item.CreatedAt = r.v.now()
	stored := *item
	stored.ProductName = ""
	st.items = append(st.items, stored)
	return nil
}

func (r viewItems) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketItem, error) {
	var result []domain.TicketItem
	for _, item := range r.v.st.items {
		if item.TicketID != ticketID {
			continue
		}
		item.ProductName = r.v.st.products[item.ProductID].Name
		result = append(result, item)
	}
	return result, nil
}

type viewHistory struct{ v *view }

func (r viewHistory) Create(_ context.Context, entry *domain.TicketStatusHistory) error {
	st := r.v.st
	if _, ok := st.tickets[entry.TicketID]; !ok {
		return fmt.Errorf("ticket_status_history.ticket_id %q: foreign key violation", entry.TicketID)
	}
	if _, ok := st.users[entry.ActorID]; !ok {
		return fmt.Errorf("ticket_status_history.actor_id %q: foreign key violation", entry.ActorID)
	}
	if !entry.StatusTo.Valid() {
		return fmt.Errorf("ticket_status_history.status_to %q: check violation", entry.StatusTo)
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = r.v.now()
	stored := *entry
	stored.ActorName = ""
	st.history = append(st.history, stored)
	return nil
}

func (r viewHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	var result []domain.TicketStatusHistory
	for _, entry := range r.v.st.history {
		if entry.TicketID != ticketID {
			continue
		}
		entry.ActorName = r.v.st.users[entry.ActorID].Name
		result = append(result, entry)
	}
	return result, nil
}
