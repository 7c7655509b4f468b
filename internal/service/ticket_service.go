package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/repository"
	apperrors "github.com/spec-kit/returns-service/pkg/util/errorutil"
)

// TicketCreatedReason is recorded on the first history entry of every ticket.
const TicketCreatedReason = "Ticket created"

// Notifier is told about committed ticket changes. Returned errors are logged
// by the caller and never undo the change.
type Notifier interface {
	NotifyTicketCreated(ctx context.Context, ticket *domain.Ticket, submitter domain.Actor) error
	NotifyStatusChanged(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketStatusHistory) error
}

// TicketService coordinates the ticket lifecycle and its read model.
type TicketService struct {
	store    repository.Store
	products repository.ProductRepository
	notifier Notifier
	logger   *zap.Logger
	numbers  func() string
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Store       repository.Store
	ProductRepo repository.ProductRepository
	Notifier    Notifier
	Logger      *zap.Logger
	// NumberGenerator overrides ticket number generation.
	NumberGenerator func() string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ProductID      string
	Quantity       int
	ContractNumber string
	InvoiceNumber  string
	SerialNumber   string
	Description    string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	TenantID    *string
	Statuses    []domain.TicketStatus
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	numbers := deps.NumberGenerator
	if numbers == nil {
		numbers = generateTicketNumber
	}
	return &TicketService{
		store:    deps.Store,
		products: deps.ProductRepo,
		notifier: deps.Notifier,
		logger:   logger,
		numbers:  numbers,
	}
}

// CreateTicket opens a ticket with its first item and creation history entry
// in one transaction, then notifies the submitter.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.HasTenant() {
		return nil, apperrors.NewPreconditionError("actor has no tenant association", map[string]any{"actor_id": actor.ID})
	}
	input = normalizeCreateInput(input)
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, input.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewPreconditionError("product not found", map[string]any{"product_id": input.ProductID})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("look up product", err)
	}

	var ticket *domain.Ticket
	// One retry covers a number collision; a second collision is surfaced.
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err = s.createOnce(ctx, actor, input, product)
		if !errors.Is(err, repository.ErrDuplicateTicketNumber) {
			break
		}
		s.logger.Warn("ticket number collision", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("create ticket", err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("number", ticket.Number),
		zap.String("tenant_id", ticket.TenantID),
		zap.String("actor_id", actor.ID))

	if s.notifier != nil {
		if err := s.notifier.NotifyTicketCreated(ctx, ticket, actor); err != nil {
			s.logger.Warn("ticket created notification failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
	return ticket, nil
}

func (s *TicketService) createOnce(ctx context.Context, actor domain.Actor, input TicketCreateInput, product *domain.Product) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Number:         s.numbers(),
		TenantID:       *actor.TenantID,
		SubmitterID:    actor.ID,
		ContractNumber: input.ContractNumber,
		InvoiceNumber:  input.InvoiceNumber,
		SerialNumber:   optionalString(input.SerialNumber),
		Description:    optionalString(input.Description),
		Status:         domain.TicketStatusOpen,
	}
	item := domain.TicketItem{
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
	}
	reason := TicketCreatedReason
	entry := domain.TicketStatusHistory{
		StatusTo: domain.TicketStatusOpen,
		ActorID:  actor.ID,
		Reason:   &reason,
	}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		item.TicketID = ticket.ID
		if err := tx.Items().Create(ctx, &item); err != nil {
			return err
		}
		entry.TicketID = ticket.ID
		return tx.History().Create(ctx, &entry)
	})
	if err != nil {
		return nil, err
	}
	item.ProductName = product.Name
	ticket.Items = []domain.TicketItem{item}
	return ticket, nil
}

// TransitionStatus moves a ticket to newStatus and appends a history entry in
// one transaction. The ticket row is locked for the duration so concurrent
// transitions on the same ticket are applied one after another. Any status
// may follow any other. The submitter is notified only when the status
// actually changed; a same-status transition is still recorded.
func (s *TicketService) TransitionStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actor domain.Actor, reason string) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewPreconditionError("unknown ticket status", map[string]any{"status": string(newStatus)})
	}
	if strings.TrimSpace(actor.ID) == "" {
		return nil, apperrors.NewPreconditionError("actor required", nil)
	}

	var (
		ticket *domain.Ticket
		entry  *domain.TicketStatusHistory
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		current, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		oldStatus := current.Status
		current.Status = newStatus
		if err := tx.Tickets().UpdateStatus(ctx, current); err != nil {
			return err
		}
		record := &domain.TicketStatusHistory{
			TicketID:   current.ID,
			StatusFrom: &oldStatus,
			StatusTo:   newStatus,
			ActorID:    actor.ID,
			Reason:     optionalString(reason),
		}
		if err := tx.History().Create(ctx, record); err != nil {
			return err
		}
		ticket, entry = current, record
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.NewPersistenceError("transition ticket status", err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("old_status", string(*entry.StatusFrom)),
		zap.String("new_status", string(entry.StatusTo)),
		zap.String("actor_id", actor.ID))

	if !entry.IsNoop() && s.notifier != nil {
		if err := s.notifier.NotifyStatusChanged(ctx, ticket, entry); err != nil {
			s.logger.Warn("status changed notification failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
	return ticket, nil
}

// GetTicket returns the ticket with its tenant and items.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, s.readError(err, id)
	}
	items, err := s.store.Items().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.Items = items
	return ticket, nil
}

// GetStatusHistory returns the ticket's status history, oldest first.
func (s *TicketService) GetStatusHistory(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	if _, err := s.store.Tickets().GetByID(ctx, ticketID); err != nil {
		return nil, s.readError(err, ticketID)
	}
	history, err := s.store.History().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if history == nil {
		history = []domain.TicketStatusHistory{}
	}
	return history, nil
}

// GetStats counts tickets per status. A nil tenantID counts every tenant.
func (s *TicketService) GetStats(ctx context.Context, tenantID *string) (domain.TicketStats, error) {
	counts, err := s.store.Tickets().CountByStatus(ctx, tenantID)
	if err != nil {
		return domain.TicketStats{}, apperrors.NewInternalError(err)
	}
	return domain.NewTicketStats(counts), nil
}

// ListTickets returns a page of tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewPreconditionError("unknown ticket status", map[string]any{"status": string(status)})
		}
	}
	tickets, err := s.store.Tickets().ListWithFilter(ctx, repository.TicketFilter{
		TenantID:    filter.TenantID,
		Statuses:    filter.Statuses,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// CanView reports whether actor may read ticket. Staff see every ticket,
// other actors only those of their own tenant.
func CanView(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.Role.IsStaff() {
		return true
	}
	return actor.HasTenant() && *actor.TenantID == ticket.TenantID
}

func (s *TicketService) readError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

func normalizeCreateInput(input TicketCreateInput) TicketCreateInput {
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.ContractNumber = strings.TrimSpace(input.ContractNumber)
	input.InvoiceNumber = strings.TrimSpace(input.InvoiceNumber)
	input.SerialNumber = strings.TrimSpace(input.SerialNumber)
	input.Description = strings.TrimSpace(input.Description)
	return input
}

func validateCreateInput(input TicketCreateInput) error {
	details := map[string]any{}
	if input.ProductID == "" {
		details["product_id"] = "required"
	}
	if input.Quantity < 1 {
		details["quantity"] = "must be at least 1"
	}
	if input.ContractNumber == "" {
		details["contract_number"] = "required"
	}
	if input.InvoiceNumber == "" {
		details["invoice_number"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewPreconditionError("invalid ticket data", details)
	}
	return nil
}

func generateTicketNumber() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
