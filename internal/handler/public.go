package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/triage/internal/domain"
	"github.com/sumire/triage/internal/service"
)

// PublicInboxHandler serves the deploy-board inbox endpoints. Every operation
// is gated on the project's public board exposing an inbox, and actors hold
// creator-only authority regardless of any project role they may have.
type PublicInboxHandler struct {
	inbox *service.InboxService
	gate  *service.AuthorizationGate
}

// NewPublicInboxHandler creates a new PublicInboxHandler.
func NewPublicInboxHandler(inbox *service.InboxService, gate *service.AuthorizationGate) *PublicInboxHandler {
	return &PublicInboxHandler{inbox: inbox, gate: gate}
}

// Register mounts the public board routes on the given group.
func (h *PublicInboxHandler) Register(g *echo.Group) {
	g.GET("/inboxes/:inbox_id/inbox-issues", h.ListInboxIssues)
	g.POST("/inboxes/:inbox_id/inbox-issues", h.CreateInboxIssue)
	g.GET("/inboxes/:inbox_id/inbox-issues/:id", h.GetInboxIssue)
	g.PATCH("/inboxes/:inbox_id/inbox-issues/:id", h.UpdateInboxIssue)
	g.DELETE("/inboxes/:inbox_id/inbox-issues/:id", h.DeleteInboxIssue)
}

// resolveActor runs the deploy-board precheck and yields a public actor.
func (h *PublicInboxHandler) resolveActor(c echo.Context, sc service.ProjectScope) (service.Actor, error) {
	userID, ok := GetUserID(c)
	if !ok {
		return service.Actor{}, domain.ErrUnauthorized
	}
	actor, _, err := h.gate.ResolvePublic(c.Request().Context(), sc.WorkspaceSlug, sc.ProjectID, userID)
	return actor, err
}

// ListInboxIssues returns the board's active triage entries.
func (h *PublicInboxHandler) ListInboxIssues(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	if _, err := h.resolveActor(c, sc); err != nil {
		return err
	}
	inboxID, err := pathUUID(c, "inbox_id")
	if err != nil {
		return err
	}
	status, err := statusFilter(c)
	if err != nil {
		return err
	}
	details, err := h.inbox.ListInboxIssues(c.Request().Context(), sc, inboxID, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, details)
}

// CreateInboxIssue submits an issue through the public board.
func (h *PublicInboxHandler) CreateInboxIssue(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	actor, err := h.resolveActor(c, sc)
	if err != nil {
		return err
	}
	inboxID, err := pathUUID(c, "inbox_id")
	if err != nil {
		return err
	}
	var req service.IntakeRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	detail, err := h.inbox.Intake(c.Request().Context(), sc, inboxID, actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// GetInboxIssue returns the combined view of one entry.
func (h *PublicInboxHandler) GetInboxIssue(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	if _, err := h.resolveActor(c, sc); err != nil {
		return err
	}
	inboxID, err := pathUUID(c, "inbox_id")
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.inbox.GetInboxIssue(c.Request().Context(), sc, inboxID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateInboxIssue lets the submitter amend the issue content. Triage fields
// are never writable on this path.
func (h *PublicInboxHandler) UpdateInboxIssue(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	actor, err := h.resolveActor(c, sc)
	if err != nil {
		return err
	}
	inboxID, err := pathUUID(c, "inbox_id")
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	detail, err := h.inbox.Update(c.Request().Context(), sc, inboxID, id, actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteInboxIssue lets the submitter retract their entry.
func (h *PublicInboxHandler) DeleteInboxIssue(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	actor, err := h.resolveActor(c, sc)
	if err != nil {
		return err
	}
	inboxID, err := pathUUID(c, "inbox_id")
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.inbox.Delete(c.Request().Context(), sc, inboxID, id, actor); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
