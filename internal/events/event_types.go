package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/returns-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services. Payload holds the
// JSON encoding of one of the *Payload types so events survive a trip
// through an external queue unchanged.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Attempts  int       `json:"attempts"`
	// Pending lists the subscriber positions still owed a delivery after a
	// partial failure. Empty means every subscriber.
	Pending []int           `json:"pending,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType EventType, ticketID string, actor domain.Actor, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// DecodePayload unmarshals the event payload into dst.
func (e Event) DecodePayload(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number         string `json:"number"`
	TenantID       string `json:"tenant_id"`
	SubmitterID    string `json:"submitter_id"`
	ContractNumber string `json:"contract_number"`
	InvoiceNumber  string `json:"invoice_number"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Number      string              `json:"number"`
	SubmitterID string              `json:"submitter_id"`
	HistoryID   string              `json:"history_id"`
	OldStatus   domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus `json:"new_status"`
	Reason      string              `json:"reason,omitempty"`
}
