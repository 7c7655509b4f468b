package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/returns-service/internal/api/dto"
	"github.com/spec-kit/returns-service/internal/auth"
	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/repository"
	"github.com/spec-kit/returns-service/internal/service"
	apperrors "github.com/spec-kit/returns-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints shared by clients and staff.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		ContractNumber: req.ContractNumber,
		InvoiceNumber:  req.InvoiceNumber,
		SerialNumber:   derefString(req.SerialNumber),
		Description:    derefString(req.Description),
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets. Clients only see their own tenant's tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	if !actor.Role.IsStaff() {
		if !actor.HasTenant() {
			return apperrors.NewForbidden("tenant association required")
		}
		filter.TenantID = actor.TenantID
	}

	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.visibleTicket(c, actor)
	if err != nil {
		return err
	}
	history, err := h.service.GetStatusHistory(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.visibleTicket(c, actor)
	if err != nil {
		return err
	}
	history, err := h.service.GetStatusHistory(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

func (h *TicketsHandler) visibleTicket(c *fiber.Ctx, actor domain.Actor) (*domain.Ticket, error) {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if !service.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket belongs to another tenant")
	}
	return ticket, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	tenantID, err := parseTenantID(c)
	if err != nil {
		return filter, err
	}
	filter.TenantID = tenantID
	if filter.CreatedFrom, err = parseTime("created_from", c.Query("created_from")); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTime("created_to", c.Query("created_to")); err != nil {
		return filter, err
	}

	page := parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize, _ := repository.NormalizePage(parseInt(c.Query("page_size"), 20), 0)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseTenantID(c *fiber.Ctx) (*string, error) {
	raw := strings.TrimSpace(c.Query("tenant_id"))
	if raw == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return nil, apperrors.NewValidationError("invalid tenant_id", map[string]any{"tenant_id": raw})
	}
	return &raw, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(field, val string) (*time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, val); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid "+field, map[string]any{field: val})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func derefString(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID,
		Number:         ticket.Number,
		TenantID:       ticket.TenantID,
		SubmitterID:    ticket.SubmitterID,
		ContractNumber: ticket.ContractNumber,
		InvoiceNumber:  ticket.InvoiceNumber,
		Status:         ticket.Status,
		StatusLabel:    ticket.Status.Label(),
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketStatusHistory) dto.TicketDetailResponse {
	items := make([]dto.TicketItemResponse, 0, len(ticket.Items))
	for _, item := range ticket.Items {
		items = append(items, dto.TicketItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			InvoiceNumber: item.InvoiceNumber,
			SerialNumber:  item.SerialNumber,
			CreatedAt:     item.CreatedAt,
		})
	}
	resp := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		SerialNumber:  ticket.SerialNumber,
		Description:   ticket.Description,
		Items:         items,
		History:       historyResponses(history),
	}
	if ticket.Tenant != nil {
		resp.Tenant = &dto.TenantResponse{
			ID:    ticket.Tenant.ID,
			Name:  ticket.Tenant.Name,
			TaxID: ticket.Tenant.TaxID,
		}
	}
	return resp
}

func historyResponses(entries []domain.TicketStatusHistory) []dto.StatusHistoryResponse {
	resp := make([]dto.StatusHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.StatusHistoryResponse{
			ID:         entry.ID,
			StatusFrom: entry.StatusFrom,
			StatusTo:   entry.StatusTo,
			ActorID:    entry.ActorID,
			ActorName:  entry.ActorName,
			Reason:     entry.Reason,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
