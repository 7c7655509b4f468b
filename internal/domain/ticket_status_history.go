package domain

import "time"

// TicketStatusHistory is an immutable audit trail entry for one status transition.
// StatusFrom is nil only for the record written when the ticket is created.
type TicketStatusHistory struct {
	ID         string
	TicketID   string
	StatusFrom *TicketStatus
	StatusTo   TicketStatus
	ActorID    string
	Reason     *string
	CreatedAt  time.Time

	ActorName string
}

// IsNoop reports whether the entry recorded a transition to the same status.
func (h TicketStatusHistory) IsNoop() bool {
	return h.StatusFrom != nil && *h.StatusFrom == h.StatusTo
}
