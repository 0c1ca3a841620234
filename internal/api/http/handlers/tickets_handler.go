package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/servcore/helpdesk/internal/api/dto"
	"github.com/servcore/helpdesk/internal/auth"
	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/observability"
	"github.com/servcore/helpdesk/internal/service"
	"github.com/servcore/helpdesk/internal/sla"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

const defaultPageSize = 50

// TicketsHandler serves ticket CRUD, lifecycle and assignment endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	lifecycle   *service.LifecycleService
	arbitration *service.ArbitrationService
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewTicketsHandler(
	tickets *service.TicketService,
	lifecycle *service.LifecycleService,
	arbitration *service.ArbitrationService,
	metrics *observability.Metrics,
) *TicketsHandler {
	return &TicketsHandler{
		tickets:     tickets,
		lifecycle:   lifecycle,
		arbitration: arbitration,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Create files a new ticket for the caller.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.TicketCategory(req.Category),
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.IncTicketCreated()
	}
	return c.Status(fiber.StatusCreated).JSON(h.ticketResponse(actor, ticket))
}

// List returns tickets scoped to the caller's role, with optional status,
// priority and category filters.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor := mustPrincipal(c)

	filter := service.TicketListFilter{
		Limit:  queryInt(c, "limit", defaultPageSize),
		Offset: queryInt(c, "offset", 0),
	}
	filter.Statuses = parseStatusList(c.Query("status"))
	if raw := c.Query("priority"); raw != "" {
		p := domain.TicketPriority(raw)
		filter.Priority = &p
	}
	if raw := c.Query("category"); raw != "" {
		cat := domain.TicketCategory(raw)
		filter.Category = &cat
	}

	tickets, err := h.tickets.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(h.listResponse(actor, tickets))
}

// ListUnassigned returns the admin view of unassigned tickets.
func (h *TicketsHandler) ListUnassigned(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	tickets, err := h.tickets.ListUnassigned(c.UserContext(), actor,
		queryInt(c, "limit", defaultPageSize), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(h.listResponse(actor, tickets))
}

// Get returns one ticket with its comment thread.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	ticket, comments, err := h.tickets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	resp := dto.TicketDetailResponse{
		TicketResponse: h.ticketResponse(actor, ticket),
		Comments:       make([]dto.CommentResponse, 0, len(comments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(resp)
}

// Update edits mutable ticket fields.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	input := service.TicketEditInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Category != nil {
		cat := domain.TicketCategory(*req.Category)
		input.Category = &cat
	}
	if req.Priority != nil {
		p := domain.TicketPriority(*req.Priority)
		input.Priority = &p
	}

	ticket, err := h.tickets.Edit(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(h.ticketResponse(actor, ticket))
}

// Delete soft-removes a ticket.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	if err := h.tickets.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddComment appends a comment to the thread.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCommentResponse(comment))
}

// Transition moves a ticket to the requested status.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.lifecycle.TransitionStatus(c.UserContext(), actor, c.Params("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(h.ticketResponse(actor, ticket))
}

// Close closes a RESOLVED ticket.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	ticket, err := h.lifecycle.Close(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(h.ticketResponse(actor, ticket))
}

// Reopen reopens a RESOLVED ticket.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	ticket, err := h.lifecycle.Reopen(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(h.ticketResponse(actor, ticket))
}

// Assign directly assigns or unassigns a ticket, admin only.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.arbitration.DirectAssign(c.UserContext(), actor, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(h.ticketResponse(actor, ticket))
}

// ListAssignableAgents returns the agents available for direct assignment,
// feeding the admin assign view.
func (h *TicketsHandler) ListAssignableAgents(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	agents, err := h.arbitration.ListAssignableAgents(c.UserContext(), actor)
	if err != nil {
		return err
	}
	resp := make([]dto.UserResponse, 0, len(agents))
	for i := range agents {
		resp = append(resp, dto.NewUserResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"agents": resp, "count": len(resp)})
}

// RequestAssignment files an assignment request from the calling agent.
func (h *TicketsHandler) RequestAssignment(c *fiber.Ctx) error {
	actor := mustPrincipal(c)
	request, err := h.arbitration.SubmitRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAssignmentRequestResponse(request))
}

func (h *TicketsHandler) ticketResponse(actor *domain.User, ticket *domain.Ticket) dto.TicketResponse {
	now := h.now()
	canRequest := actor.IsAgent() && h.arbitration.CanRequest(ticket, now)
	return dto.NewTicketResponse(ticket, sla.Compute(ticket, now), canRequest)
}

func (h *TicketsHandler) listResponse(actor *domain.User, tickets []domain.Ticket) dto.TicketListResponse {
	resp := dto.TicketListResponse{
		Tickets: make([]dto.TicketResponse, 0, len(tickets)),
		Count:   len(tickets),
	}
	for i := range tickets {
		resp.Tickets = append(resp.Tickets, h.ticketResponse(actor, &tickets[i]))
	}
	return resp
}

func mustPrincipal(c *fiber.Ctx) *domain.User {
	principal, _ := auth.PrincipalFromContext(c)
	return principal
}

// parseStatusList splits a comma-separated status query value, e.g.
// ?status=OPEN,IN_PROGRESS. Empty segments are dropped.
func parseStatusList(raw string) []domain.TicketStatus {
	if raw == "" {
		return nil
	}
	var statuses []domain.TicketStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			statuses = append(statuses, domain.TicketStatus(part))
		}
	}
	return statuses
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
