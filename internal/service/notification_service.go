package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/events"
	"github.com/spec-kit/returns-service/internal/mailer"
	"github.com/spec-kit/returns-service/internal/observability"
	"github.com/spec-kit/returns-service/internal/repository"
)

// NotificationService turns ticket changes into events and delivers the
// resulting e-mails to the ticket submitter.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	mailer     mailer.Mailer
	metrics    *observability.Metrics
	logger     *zap.Logger
}

var _ Notifier = (*NotificationService)(nil)

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, m mailer.Mailer, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		mailer:     m,
		metrics:    metrics,
		logger:     logger,
	}
}

// NotifyTicketCreated publishes a ticket_created event on behalf of submitter.
func (n *NotificationService) NotifyTicketCreated(ctx context.Context, ticket *domain.Ticket, submitter domain.Actor) error {
	event, err := events.NewEvent(events.EventTicketCreated, ticket.ID, submitter,
		events.TicketCreatedPayload{
			Number:         ticket.Number,
			TenantID:       ticket.TenantID,
			SubmitterID:    ticket.SubmitterID,
			ContractNumber: ticket.ContractNumber,
			InvoiceNumber:  ticket.InvoiceNumber,
		})
	if err != nil {
		return err
	}
	return n.dispatcher.Publish(ctx, event)
}

// NotifyStatusChanged publishes a ticket_status_changed event.
func (n *NotificationService) NotifyStatusChanged(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketStatusHistory) error {
	payload := events.TicketStatusChangedPayload{
		Number:      ticket.Number,
		SubmitterID: ticket.SubmitterID,
		HistoryID:   entry.ID,
		NewStatus:   entry.StatusTo,
	}
	if entry.StatusFrom != nil {
		payload.OldStatus = *entry.StatusFrom
	}
	if entry.Reason != nil {
		payload.Reason = *entry.Reason
	}
	event, err := events.NewEvent(events.EventTicketStatusChanged, ticket.ID, domain.Actor{ID: entry.ActorID}, payload)
	if err != nil {
		return err
	}
	return n.dispatcher.Publish(ctx, event)
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.measured(n.handleTicketCreated))
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.measured(n.handleTicketStatusChanged))
}

func (n *NotificationService) measured(handler events.EventHandler) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		err := handler(ctx, event)
		n.metrics.RecordNotification(string(event.Type), err == nil)
		if err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
		return err
	}
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	var payload events.TicketCreatedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("number", payload.Number))

	recipient, err := n.recipient(ctx, payload.SubmitterID)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, mailer.TicketCreated(recipient.Email, recipient.Name, payload.Number, payload.ContractNumber, payload.InvoiceNumber))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	var payload events.TicketStatusChangedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))

	recipient, err := n.recipient(ctx, payload.SubmitterID)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, mailer.StatusChanged(recipient.Email, recipient.Name, payload.Number, payload.OldStatus, payload.NewStatus, payload.Reason))
}

func (n *NotificationService) recipient(ctx context.Context, userID string) (*domain.User, error) {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notification recipient %s: %w", userID, err)
	}
	return user, nil
}
