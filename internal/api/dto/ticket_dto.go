package dto

import (
	"time"

	"github.com/spec-kit/returns-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProductID      string  `json:"product_id"`
	Quantity       int     `json:"quantity"`
	ContractNumber string  `json:"contract_number"`
	InvoiceNumber  string  `json:"invoice_number"`
	SerialNumber   *string `json:"serial_number"`
	Description    *string `json:"description"`
}

// TransitionStatusRequest payload.
type TransitionStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Reason string              `json:"reason"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string              `json:"id"`
	Number         string              `json:"number"`
	TenantID       string              `json:"tenant_id"`
	SubmitterID    string              `json:"submitter_id"`
	ContractNumber string              `json:"contract_number"`
	InvoiceNumber  string              `json:"invoice_number"`
	Status         domain.TicketStatus `json:"status"`
	StatusLabel    string              `json:"status_label"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	SerialNumber *string                 `json:"serial_number"`
	Description  *string                 `json:"description"`
	Tenant       *TenantResponse         `json:"tenant,omitempty"`
	Items        []TicketItemResponse    `json:"items"`
	History      []StatusHistoryResponse `json:"history"`
}

// TenantResponse identifies the requesting company.
type TenantResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
}

// TicketItemResponse describes a returned product line.
type TicketItemResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	InvoiceNumber *string   `json:"invoice_number"`
	SerialNumber  *string   `json:"serial_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusHistoryResponse is one audit entry.
type StatusHistoryResponse struct {
	ID         string               `json:"id"`
	StatusFrom *domain.TicketStatus `json:"status_from"`
	StatusTo   domain.TicketStatus  `json:"status_to"`
	ActorID    string               `json:"actor_id"`
	ActorName  string               `json:"actor_name"`
	Reason     *string              `json:"reason"`
	CreatedAt  time.Time            `json:"created_at"`
}

// StatsResponse summarises ticket counts.
type StatsResponse struct {
	Total      int64            `json:"total"`
	Open       int64            `json:"open"`
	InAnalysis int64            `json:"in_analysis"`
	Approved   int64            `json:"approved"`
	ByStatus   map[string]int64 `json:"by_status"`
}
