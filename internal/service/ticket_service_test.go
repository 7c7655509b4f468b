package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/repository"
	apperrors "github.com/spec-kit/returns-service/pkg/util/errorutil"
)

func TestCreateAndTransitionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket := f.createTicket(t)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Regexp(t, `^TCK-[0-9A-F]{12}$`, ticket.Number)
	assert.Equal(t, f.tenant.ID, ticket.TenantID)
	assert.Equal(t, f.client.ID, ticket.SubmitterID)
	require.Len(t, ticket.Items, 1)
	assert.Equal(t, "Impact drill", ticket.Items[0].ProductName)

	stored, err := f.service.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, f.product.ID, stored.Items[0].ProductID)
	assert.Equal(t, 5, stored.Items[0].Quantity)
	assert.Equal(t, "Impact drill", stored.Items[0].ProductName)
	require.NotNil(t, stored.Tenant)
	assert.Equal(t, "Acme Ltda", stored.Tenant.Name)

	history, err := f.service.GetStatusHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].StatusFrom)
	assert.Equal(t, domain.TicketStatusOpen, history[0].StatusTo)
	require.NotNil(t, history[0].Reason)
	assert.Equal(t, TicketCreatedReason, *history[0].Reason)
	require.Len(t, f.notifier.created, 1)

	staff := f.staff.Actor()
	updated, err := f.service.TransitionStatus(ctx, ticket.ID, domain.TicketStatusInAnalysis, staff, "Checking")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInAnalysis, updated.Status)

	history, err = f.service.GetStatusHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	second := history[1]
	require.NotNil(t, second.StatusFrom)
	assert.Equal(t, domain.TicketStatusOpen, *second.StatusFrom)
	assert.Equal(t, domain.TicketStatusInAnalysis, second.StatusTo)
	assert.Equal(t, f.staff.ID, second.ActorID)
	assert.Equal(t, "Bruno", second.ActorName)
	require.NotNil(t, second.Reason)
	assert.Equal(t, "Checking", *second.Reason)

	require.Len(t, f.notifier.changed, 1)
	change := f.notifier.changed[0]
	assert.Equal(t, ticket.ID, change.ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, *change.entry.StatusFrom)
	assert.Equal(t, domain.TicketStatusInAnalysis, change.entry.StatusTo)
}

func TestCreateTicketPassesSubmitterToNotifier(t *testing.T) {
	f := newFixture(t)
	reviewer := domain.User{TenantID: &f.tenant.ID, Name: "Carla", Email: "carla@acme.test", Role: domain.RoleStaff}
	require.NoError(t, f.store.Users().Create(context.Background(), &reviewer))

	_, err := f.service.CreateTicket(context.Background(), reviewer.Actor(), f.validInput())
	require.NoError(t, err)

	require.Len(t, f.notifier.submitters, 1)
	assert.Equal(t, reviewer.ID, f.notifier.submitters[0].ID)
	assert.Equal(t, domain.RoleStaff, f.notifier.submitters[0].Role)
}

func TestCreateTicketRequiresTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateTicket(context.Background(), f.staff.Actor(), f.validInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))

	tickets, items, history := f.store.Counts()
	assert.Zero(t, tickets)
	assert.Zero(t, items)
	assert.Zero(t, history)
	assert.Empty(t, f.notifier.created)
}

func TestCreateTicketRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TicketCreateInput)
		field  string
	}{
		{"zero quantity", func(in *TicketCreateInput) { in.Quantity = 0 }, "quantity"},
		{"negative quantity", func(in *TicketCreateInput) { in.Quantity = -2 }, "quantity"},
		{"blank contract", func(in *TicketCreateInput) { in.ContractNumber = "   " }, "contract_number"},
		{"missing invoice", func(in *TicketCreateInput) { in.InvoiceNumber = "" }, "invoice_number"},
		{"missing product", func(in *TicketCreateInput) { in.ProductID = "" }, "product_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			input := f.validInput()
			tt.mutate(&input)

			_, err := f.service.CreateTicket(context.Background(), f.client.Actor(), input)
			require.Error(t, err)
			assert.True(t, apperrors.IsPrecondition(err))

			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Contains(t, domainErr.Details, tt.field)

			tickets, _, _ := f.store.Counts()
			assert.Zero(t, tickets)
		})
	}
}

func TestCreateTicketRejectsUnknownProduct(t *testing.T) {
	f := newFixture(t)
	input := f.validInput()
	input.ProductID = "00000000-0000-0000-0000-000000000000"

	_, err := f.service.CreateTicket(context.Background(), f.client.Actor(), input)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))

	tickets, _, _ := f.store.Counts()
	assert.Zero(t, tickets)
}

func TestCreateTicketRetriesOnceOnNumberCollision(t *testing.T) {
	f := newFixture(t)
	numbers := []string{"TCK-AAAAAAAAAAAA", "TCK-AAAAAAAAAAAA", "TCK-BBBBBBBBBBBB"}
	svc := f.newService(f.store, func() string {
		next := numbers[0]
		numbers = numbers[1:]
		return next
	})

	first, err := svc.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.NoError(t, err)
	assert.Equal(t, "TCK-AAAAAAAAAAAA", first.Number)

	second, err := svc.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.NoError(t, err)
	assert.Equal(t, "TCK-BBBBBBBBBBBB", second.Number)

	tickets, items, history := f.store.Counts()
	assert.Equal(t, 2, tickets)
	assert.Equal(t, 2, items)
	assert.Equal(t, 2, history)
}

func TestCreateTicketFailsAfterSecondCollision(t *testing.T) {
	f := newFixture(t)
	calls := 0
	svc := f.newService(f.store, func() string {
		calls++
		return "TCK-AAAAAAAAAAAA"
	})

	_, err := svc.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.NoError(t, err)
	calls = 0

	_, err = svc.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
	assert.ErrorIs(t, err, repository.ErrDuplicateTicketNumber)
	assert.Equal(t, 2, calls)

	tickets, items, history := f.store.Counts()
	assert.Equal(t, 1, tickets)
	assert.Equal(t, 1, items)
	assert.Equal(t, 1, history)
	assert.Len(t, f.notifier.created, 1)
}

func TestCreateTicketIsAtomic(t *testing.T) {
	f := newFixture(t)
	svc := f.newService(failingHistoryStore{Store: f.store, err: errors.New("disk full")}, nil)

	_, err := svc.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))

	tickets, items, history := f.store.Counts()
	assert.Zero(t, tickets)
	assert.Zero(t, items)
	assert.Zero(t, history)
	assert.Empty(t, f.notifier.created)
}

func TestCreateTicketSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.NotifyCreatedErr = errors.New("smtp down")

	ticket, err := f.service.CreateTicket(context.Background(), f.client.Actor(), f.validInput())
	require.NoError(t, err)
	require.NotNil(t, ticket)

	tickets, items, history := f.store.Counts()
	assert.Equal(t, 1, tickets)
	assert.Equal(t, 1, items)
	assert.Equal(t, 1, history)
}

func TestTransitionStatusSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.notifier.NotifyStatusChangeErr = errors.New("smtp down")

	updated, err := f.service.TransitionStatus(context.Background(), ticket.ID, domain.TicketStatusApproved, f.staff.Actor(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusApproved, updated.Status)

	stored, err := f.service.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusApproved, stored.Status)
	assert.Len(t, f.notifier.changed, 1)
}

func TestTransitionStatusToSameStatusIsRecordedSilently(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.TransitionStatus(context.Background(), ticket.ID, domain.TicketStatusOpen, f.staff.Actor(), "Still waiting")
	require.NoError(t, err)

	history, err := f.service.GetStatusHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].IsNoop())
	assert.Empty(t, f.notifier.changed)
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.TransitionStatus(context.Background(), ticket.ID, domain.TicketStatus("lost"), f.staff.Actor(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))

	stored, err := f.service.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	_, _, history := f.store.Counts()
	assert.Equal(t, 1, history)
}

func TestTransitionStatusRequiresActor(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.TransitionStatus(context.Background(), ticket.ID, domain.TicketStatusApproved, domain.Actor{}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestTransitionStatusUnknownTicket(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.TransitionStatus(context.Background(), "missing", domain.TicketStatusApproved, f.staff.Actor(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, f.notifier.changed)
}

func TestTransitionStatusIsAtomic(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	svc := f.newService(failingHistoryStore{Store: f.store, err: errors.New("disk full")}, nil)

	_, err := svc.TransitionStatus(context.Background(), ticket.ID, domain.TicketStatusRejected, f.staff.Actor(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))

	stored, err := f.service.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	_, _, history := f.store.Counts()
	assert.Equal(t, 1, history)
	assert.Empty(t, f.notifier.changed)
}

func TestTransitionStatusAllowsAnyStatusOrder(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	staff := f.staff.Actor()
	path := []domain.TicketStatus{
		domain.TicketStatusCompleted,
		domain.TicketStatusOpen,
		domain.TicketStatusCancelled,
		domain.TicketStatusInTransit,
		domain.TicketStatusReceived,
	}

	for _, status := range path {
		_, err := f.service.TransitionStatus(context.Background(), ticket.ID, status, staff, "")
		require.NoError(t, err)

		stored, err := f.service.GetTicket(context.Background(), ticket.ID)
		require.NoError(t, err)
		history, err := f.service.GetStatusHistory(context.Background(), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, history[len(history)-1].StatusTo, stored.Status)
	}

	history, err := f.service.GetStatusHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, len(path)+1)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].StatusTo, *history[i].StatusFrom)
		assert.False(t, history[i].CreatedAt.Before(history[i-1].CreatedAt))
	}
	assert.Len(t, f.notifier.changed, len(path))
}

func TestTransitionStatusConcurrentUpdatesChainHistory(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	staff := f.staff.Actor()
	statuses := domain.AllTicketStatuses()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := statuses[i%len(statuses)]
			_, err := f.service.TransitionStatus(context.Background(), ticket.ID, status, staff, fmt.Sprintf("update %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := f.service.GetStatusHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 21)
	for i := 1; i < len(history); i++ {
		require.NotNil(t, history[i].StatusFrom)
		assert.Equal(t, history[i-1].StatusTo, *history[i].StatusFrom)
	}

	stored, err := f.service.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, history[len(history)-1].StatusTo, stored.Status)
}

func TestGetStatusHistoryUnknownTicket(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetStatusHistory(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetTicketUnknownTicket(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetTicket(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats, err := f.service.GetStats(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Len(t, stats.ByStatus, len(domain.AllTicketStatuses()))

	first := f.createTicket(t)
	second := f.createTicket(t)
	third := f.createTicket(t)
	f.createTicket(t)

	staff := f.staff.Actor()
	_, err = f.service.TransitionStatus(ctx, first.ID, domain.TicketStatusInAnalysis, staff, "")
	require.NoError(t, err)
	_, err = f.service.TransitionStatus(ctx, second.ID, domain.TicketStatusApproved, staff, "")
	require.NoError(t, err)
	_, err = f.service.TransitionStatus(ctx, third.ID, domain.TicketStatusRejected, staff, "")
	require.NoError(t, err)

	stats, err = f.service.GetStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Open)
	assert.Equal(t, int64(1), stats.InAnalysis)
	assert.Equal(t, int64(1), stats.Approved)
	assert.Equal(t, int64(1), stats.ByStatus[domain.TicketStatusRejected])

	other := "other-tenant"
	stats, err = f.service.GetStats(ctx, &other)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestListTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createTicket(t)
	f.createTicket(t)

	_, err := f.service.TransitionStatus(ctx, first.ID, domain.TicketStatusApproved, f.staff.Actor(), "")
	require.NoError(t, err)

	all, err := f.service.ListTickets(ctx, TicketListFilter{TenantID: &f.tenant.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := f.service.ListTickets(ctx, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusApproved}})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)

	other := "other-tenant"
	none, err := f.service.ListTickets(ctx, TicketListFilter{TenantID: &other})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.service.ListTickets(ctx, TicketListFilter{Statuses: []domain.TicketStatus{"lost"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestCanView(t *testing.T) {
	tenant := "tenant-a"
	other := "tenant-b"
	ticket := &domain.Ticket{TenantID: tenant}

	assert.True(t, CanView(domain.Actor{ID: "s", Role: domain.RoleStaff}, ticket))
	assert.True(t, CanView(domain.Actor{ID: "a", Role: domain.RoleAdmin}, ticket))
	assert.True(t, CanView(domain.Actor{ID: "c", TenantID: &tenant, Role: domain.RoleClient}, ticket))
	assert.False(t, CanView(domain.Actor{ID: "c", TenantID: &other, Role: domain.RoleClient}, ticket))
	assert.False(t, CanView(domain.Actor{ID: "c", Role: domain.RoleClient}, ticket))
}
