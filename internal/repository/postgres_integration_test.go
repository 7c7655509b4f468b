package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/persistence"
)

type pgFixture struct {
	store     Store
	pool      *pgxpool.Pool
	tenantID  string
	userID    string
	productID string
}

// setupTestPostgres connects to POSTGRES_TEST_DSN and applies the migrations.
// Tests are skipped when no database is configured.
func setupTestPostgres(t *testing.T) *pgFixture {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping integration test")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE ticket_status_history, ticket_items, tickets, users, products, tenants CASCADE`)
	require.NoError(t, err)

	f := &pgFixture{store: NewPostgresStore(pool), pool: pool}
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO tenants (name, tax_id) VALUES ('Acme', '11222333000181') RETURNING id`).Scan(&f.tenantID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (sku, name) VALUES ('DRL-1', 'Impact drill') RETURNING id`).Scan(&f.productID))

	user := domain.User{TenantID: &f.tenantID, Name: "Ana", Email: "ana@acme.test", Role: domain.RoleClient}
	require.NoError(t, NewUserRepository(pool).Create(ctx, &user))
	f.userID = user.ID
	return f
}

func (f *pgFixture) createTicket(t *testing.T, number string) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket := &domain.Ticket{
		Number:         number,
		TenantID:       f.tenantID,
		SubmitterID:    f.userID,
		ContractNumber: "CTR-001",
		InvoiceNumber:  "NF123456",
		Status:         domain.TicketStatusOpen,
	}
	err := f.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		if err := tx.Items().Create(ctx, &domain.TicketItem{TicketID: ticket.ID, ProductID: f.productID, Quantity: 5}); err != nil {
			return err
		}
		return tx.History().Create(ctx, &domain.TicketStatusHistory{TicketID: ticket.ID, StatusTo: domain.TicketStatusOpen, ActorID: f.userID})
	})
	require.NoError(t, err)
	return ticket
}

func TestPostgresStore_CreateAndRead(t *testing.T) {
	f := setupTestPostgres(t)
	ctx := context.Background()
	created := f.createTicket(t, "TCK-000000000001")

	ticket, err := f.store.Tickets().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "TCK-000000000001", ticket.Number)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.Tenant)
	assert.Equal(t, "Acme", ticket.Tenant.Name)

	items, err := f.store.Items().ListByTicket(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Impact drill", items[0].ProductName)

	history, err := f.store.History().ListByTicket(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].StatusFrom)
	assert.Equal(t, "Ana", history[0].ActorName)
}

func TestPostgresStore_DuplicateNumberRollsBack(t *testing.T) {
	f := setupTestPostgres(t)
	ctx := context.Background()
	f.createTicket(t, "TCK-000000000002")

	err := f.store.WithTx(ctx, func(tx Tx) error {
		return tx.Tickets().Create(ctx, &domain.Ticket{
			Number:         "TCK-000000000002",
			TenantID:       f.tenantID,
			SubmitterID:    f.userID,
			ContractNumber: "CTR-002",
			InvoiceNumber:  "NF2",
			Status:         domain.TicketStatusOpen,
		})
	})
	assert.ErrorIs(t, err, ErrDuplicateTicketNumber)

	counts, err := f.store.Tickets().CountByStatus(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.TicketStatusOpen])
}

func TestPostgresStore_WithTxRollsBackOnError(t *testing.T) {
	f := setupTestPostgres(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.WithTx(ctx, func(tx Tx) error {
		ticket := &domain.Ticket{
			Number:         "TCK-000000000003",
			TenantID:       f.tenantID,
			SubmitterID:    f.userID,
			ContractNumber: "CTR-003",
			InvoiceNumber:  "NF3",
			Status:         domain.TicketStatusOpen,
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.store.Tickets().GetByNumber(ctx, "TCK-000000000003")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_UpdateStatusAndCounts(t *testing.T) {
	f := setupTestPostgres(t)
	ctx := context.Background()
	ticket := f.createTicket(t, "TCK-000000000004")
	f.createTicket(t, "TCK-000000000005")

	err := f.store.WithTx(ctx, func(tx Tx) error {
		locked, err := tx.Tickets().GetForUpdate(ctx, ticket.ID)
		if err != nil {
			return err
		}
		locked.Status = domain.TicketStatusApproved
		return tx.Tickets().UpdateStatus(ctx, locked)
	})
	require.NoError(t, err)

	counts, err := f.store.Tickets().CountByStatus(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.TicketStatusApproved])
	assert.Equal(t, int64(1), counts[domain.TicketStatusOpen])

	approved, err := f.store.Tickets().ListWithFilter(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusApproved}})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, ticket.ID, approved[0].ID)
}

func TestPostgresStore_MalformedIDIsNotFound(t *testing.T) {
	f := setupTestPostgres(t)

	_, err := f.store.Tickets().GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	f := setupTestPostgres(t)

	err := NewUserRepository(f.pool).Create(context.Background(), &domain.User{Name: "Other", Email: "ana@acme.test", Role: domain.RoleStaff})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	f := setupTestPostgres(t)
	users := NewUserRepository(f.pool)

	user, err := users.GetByEmail(context.Background(), "Ana@Acme.test")
	require.NoError(t, err)
	assert.Equal(t, f.userID, user.ID)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, f.tenantID, *user.TenantID)

	_, err = users.GetByEmail(context.Background(), "nobody@acme.test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepository_GetByID(t *testing.T) {
	f := setupTestPostgres(t)
	products := NewProductRepository(f.pool)

	product, err := products.GetByID(context.Background(), f.productID)
	require.NoError(t, err)
	assert.Equal(t, "Impact drill", product.Name)

	_, err = products.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}
