package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/mailer"
	"github.com/spec-kit/returns-service/internal/repository"
	"github.com/spec-kit/returns-service/internal/repository/memory"
)

type statusChange struct {
	ticket *domain.Ticket
	entry  *domain.TicketStatusHistory
}

type mockNotifier struct {
	mu                    sync.Mutex
	created               []*domain.Ticket
	submitters            []domain.Actor
	changed               []statusChange
	NotifyCreatedErr      error
	NotifyStatusChangeErr error
}

func (m *mockNotifier) NotifyTicketCreated(_ context.Context, ticket *domain.Ticket, submitter domain.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, ticket)
	m.submitters = append(m.submitters, submitter)
	return m.NotifyCreatedErr
}

func (m *mockNotifier) NotifyStatusChanged(_ context.Context, ticket *domain.Ticket, entry *domain.TicketStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, statusChange{ticket: ticket, entry: entry})
	return m.NotifyStatusChangeErr
}

type mockMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	SendErr error
}

func (m *mockMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

// failingHistoryStore fails every history insert made inside a transaction.
type failingHistoryStore struct {
	*memory.Store
	err error
}

func (s failingHistoryStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(failingHistoryTx{Tx: tx, err: s.err})
	})
}

type failingHistoryTx struct {
	repository.Tx
	err error
}

func (t failingHistoryTx) History() repository.TicketStatusHistoryRepository {
	return failingHistoryRepo{TicketStatusHistoryRepository: t.Tx.History(), err: t.err}
}

type failingHistoryRepo struct {
	repository.TicketStatusHistoryRepository
	err error
}

func (r failingHistoryRepo) Create(context.Context, *domain.TicketStatusHistory) error {
	return r.err
}

type fixture struct {
	store    *memory.Store
	tenant   domain.Tenant
	client   domain.User
	staff    domain.User
	product  domain.Product
	notifier *mockNotifier
	service  *TicketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	tenant := store.AddTenant(domain.Tenant{Name: "Acme Ltda", TaxID: "11222333000181"})
	product := store.AddProduct(domain.Product{SKU: "DRL-1", Name: "Impact drill"})

	client := domain.User{TenantID: &tenant.ID, Name: "Ana", Email: "ana@acme.test", Role: domain.RoleClient}
	require.NoError(t, store.Users().Create(ctx, &client))
	staff := domain.User{Name: "Bruno", Email: "bruno@desk.test", Role: domain.RoleAdmin}
	require.NoError(t, store.Users().Create(ctx, &staff))

	f := &fixture{
		store:    store,
		tenant:   tenant,
		client:   client,
		staff:    staff,
		product:  product,
		notifier: &mockNotifier{},
	}
	f.service = f.newService(store, nil)
	return f
}

func (f *fixture) newService(store repository.Store, numbers func() string) *TicketService {
	return NewTicketService(TicketDependencies{
		Store:           store,
		ProductRepo:     f.store.Products(),
		Notifier:        f.notifier,
		NumberGenerator: numbers,
	})
}

func (f *fixture) validInput() TicketCreateInput {
	return TicketCreateInput{
		ProductID:      f.product.ID,
		Quantity:       5,
		ContractNumber: "CTR-001",
		InvoiceNumber:  "NF123456",
	}
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.NoError(t, err)
	return ticket
}
