package domain

import "time"

// TicketStatus enumerates lifecycle states for return requests.
type TicketStatus string

const (
	TicketStatusOpen             TicketStatus = "open"
	TicketStatusInAnalysis       TicketStatus = "in_analysis"
	TicketStatusApproved         TicketStatus = "approved"
	TicketStatusRejected         TicketStatus = "rejected"
	TicketStatusAwaitingShipment TicketStatus = "awaiting_shipment"
	TicketStatusInTransit        TicketStatus = "in_transit"
	TicketStatusReceived         TicketStatus = "received"
	TicketStatusCompleted        TicketStatus = "completed"
	TicketStatusCancelled        TicketStatus = "cancelled"
)

var ticketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInAnalysis,
	TicketStatusApproved,
	TicketStatusRejected,
	TicketStatusAwaitingShipment,
	TicketStatusInTransit,
	TicketStatusReceived,
	TicketStatusCompleted,
	TicketStatusCancelled,
}

// AllTicketStatuses returns every status in typical progression order.
func AllTicketStatuses() []TicketStatus {
	out := make([]TicketStatus, len(ticketStatuses))
	copy(out, ticketStatuses)
	return out
}

// ParseTicketStatus converts raw input into a known status.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(raw)
	return status, status.Valid()
}

// Valid reports whether s is one of the defined statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen,
		TicketStatusInAnalysis,
		TicketStatusApproved,
		TicketStatusRejected,
		TicketStatusAwaitingShipment,
		TicketStatusInTransit,
		TicketStatusReceived,
		TicketStatusCompleted,
		TicketStatusCancelled:
		return true
	}
	return false
}

// Label returns the display name used in notifications.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusOpen:
		return "Open"
	case TicketStatusInAnalysis:
		return "In analysis"
	case TicketStatusApproved:
		return "Approved"
	case TicketStatusRejected:
		return "Rejected"
	case TicketStatusAwaitingShipment:
		return "Awaiting shipment"
	case TicketStatusInTransit:
		return "In transit"
	case TicketStatusReceived:
		return "Received"
	case TicketStatusCompleted:
		return "Completed"
	case TicketStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Ticket is the aggregate for return/warranty requests.
type Ticket struct {
	ID             string
	Number         string
	TenantID       string
	SubmitterID    string
	ContractNumber string
	InvoiceNumber  string
	SerialNumber   *string
	Description    *string
	Status         TicketStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Populated by read paths only.
	Tenant *Tenant
	Items  []TicketItem
}

// TicketItem is one product line of a ticket.
type TicketItem struct {
	ID            string
	TicketID      string
	ProductID     string
	Quantity      int
	InvoiceNumber *string
	SerialNumber  *string
	CreatedAt     time.Time

	ProductName string
}

// TicketStats aggregates ticket counts for dashboards.
type TicketStats struct {
	Total      int64
	Open       int64
	InAnalysis int64
	Approved   int64
	ByStatus   map[TicketStatus]int64
}

// NewTicketStats builds stats from per-status counts, filling absent statuses with zero.
func NewTicketStats(counts map[TicketStatus]int64) TicketStats {
	stats := TicketStats{ByStatus: make(map[TicketStatus]int64, len(ticketStatuses))}
	for _, status := range ticketStatuses {
		n := counts[status]
		stats.ByStatus[status] = n
		stats.Total += n
	}
	stats.Open = stats.ByStatus[TicketStatusOpen]
	stats.InAnalysis = stats.ByStatus[TicketStatusInAnalysis]
	stats.Approved = stats.ByStatus[TicketStatusApproved]
	return stats
}
