package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/returns-service/internal/api/dto"
	"github.com/spec-kit/returns-service/internal/auth"
	"github.com/spec-kit/returns-service/internal/service"
	apperrors "github.com/spec-kit/returns-service/pkg/util/errorutil"
)

// StaffTicketsHandler handles staff-only ticket endpoints.
type StaffTicketsHandler struct {
	tickets *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService}
}

// Stats GET /staff/tickets/stats.
func (h *StaffTicketsHandler) Stats(c *fiber.Ctx) error {
	tenantID, err := parseTenantID(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.GetStats(c.UserContext(), tenantID)
	if err != nil {
		return err
	}
	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Total:      stats.Total,
		Open:       stats.Open,
		InAnalysis: stats.InAnalysis,
		Approved:   stats.Approved,
		ByStatus:   byStatus,
	}})
}

// TransitionStatus PATCH /staff/tickets/:id/status.
func (h *StaffTicketsHandler) TransitionStatus(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransitionStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	ticket, err := h.tickets.TransitionStatus(c.UserContext(), c.Params("id"), req.Status, actor, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}
