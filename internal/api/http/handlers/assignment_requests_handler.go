package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servcore/helpdesk/internal/api/dto"
	"github.com/servcore/helpdesk/internal/service"
)

// AssignmentRequestsHandler serves the admin review queue.
type AssignmentRequestsHandler struct {
	arbitration *service.ArbitrationService
}

func NewAssignmentRequestsHandler(arbitration *service.ArbitrationService) *AssignmentRequestsHandler {
	return &AssignmentRequestsHandler{arbitration: arbitration}
}

// ListPending returns PENDING requests oldest first.
func (h *AssignmentRequestsHandler) ListPending(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	requests, err := h.arbitration.ListPendingRequests(c.UserContext(), actor,
		queryInt(c, "limit", defaultPageSize), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}

	resp := dto.AssignmentRequestListResponse{
		Requests: make([]dto.AssignmentRequestResponse, 0, len(requests)),
		Count:    len(requests),
	}
	for i := range requests {
		resp.Requests = append(resp.Requests, dto.NewAssignmentRequestResponse(&requests[i]))
	}
	return c.JSON(resp)
}

// Approve grants the requesting agent the ticket.
func (h *AssignmentRequestsHandler) Approve(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	if err := h.arbitration.Approve(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "approved"})
}

// Reject declines the request.
func (h *AssignmentRequestsHandler) Reject(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	if err := h.arbitration.Reject(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "rejected"})
}
