package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sumire/triage/internal/domain"
	"github.com/sumire/triage/internal/service"
)

// InboxHandler serves the authenticated project-scoped inbox endpoints.
type InboxHandler struct {
	inbox *service.InboxService
	gate  *service.AuthorizationGate
}

// NewInboxHandler creates a new InboxHandler.
func NewInboxHandler(inbox *service.InboxService, gate *service.AuthorizationGate) *InboxHandler {
	return &InboxHandler{inbox: inbox, gate: gate}
}

// Register mounts the workspace-scoped routes on the given group.
func (h *InboxHandler) Register(g *echo.Group) {
	g.GET("/states", h.ListStates)
	g.GET("/inboxes", h.ListInboxes)
	g.POST("/inboxes", h.CreateInbox)
	g.GET("/inboxes/:inbox_id", h.GetInbox)
	g.PATCH("/inboxes/:inbox_id", h.UpdateInbox)
	g.DELETE("/inboxes/:inbox_id", h.DeleteInbox)
	g.GET("/inboxes/:inbox_id/inbox-issues", h.ListInboxIssues)
	g.POST("/inboxes/:inbox_id/inbox-issues", h.CreateInboxIssue)
	g.GET("/inboxes/:inbox_id/inbox-issues/:id", h.GetInboxIssue)
	g.PATCH("/inboxes/:inbox_id/inbox-issues/:id", h.UpdateInboxIssue)
	g.DELETE("/inboxes/:inbox_id/inbox-issues/:id", h.DeleteInboxIssue)
	g.GET("/issues/:issue_id/activities", h.ListIssueActivities)
}

// scope reads the workspace slug and project id path params. A malformed
// project id cannot match any route target, so it reads as not found.
func scope(c echo.Context) (service.ProjectScope, error) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		return service.ProjectScope{}, domain.ErrNotFound
	}
	return service.ProjectScope{
		WorkspaceSlug: c.Param("slug"),
		ProjectID:     projectID,
	}, nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}

// resolveActor authenticates project membership for the request user.
func (h *InboxHandler) resolveActor(c echo.Context, sc service.ProjectScope) (service.Actor, error) {
	userID, ok := GetUserID(c)
	if !ok {
		return service.Actor{}, domain.ErrUnauthorized
	}
	return h.gate.ResolveMember(c.Request().Context(), sc.WorkspaceSlug, sc.ProjectID, userID)
}

// statusFilter reads the optional ?status= query parameter.
func statusFilter(c echo.Context) (*domain.InboxIssueStatus, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 16)
	if err != nil {
		return nil, &domain.ValidationError{Field: "status", Message: "Invalid status"}
	}
	status := domain.InboxIssueStatus(v)
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "Invalid status"}
	}
	return &status, nil
}

// ListStates returns the project's lifecycle states.
func (h *InboxHandler) ListStates(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	if _, err := h.resolveActor(c, sc); err != nil {
		return err
	}
	states, err := h.inbox.ListStates(c.Request().Context(), sc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, states)
}

// ListInboxes returns the project's inboxes with pending counts.
func (h *InboxHandler) ListInboxes(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	if _, err := h.resolveActor(c, sc); err != nil {
		return err
	}
	inboxes, err := h.inbox.ListInboxes(c.Request().Context(), sc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inboxes)
}

type createInboxRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CreateInbox creates an inbox for the project.
func (h *InboxHandler) CreateInbox(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	if _, err := h.resolveActor(c, sc); err != nil {
		return err
	}
	var req createInboxRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	inbox, err := h.inbox.CreateInbox(c.Request().Context(), sc, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inbox)
}

// GetInbox returns one inbox.
func (h *InboxHandler) GetInbox(c echo.Context) error {
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
	inbox, err := h.inbox.GetInbox(c.Request().Context(), sc, inboxID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inbox)
}

type updateInboxRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateInbox updates an inbox's name and description.
func (h *InboxHandler) UpdateInbox(c echo.Context) error {
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
	var req updateInboxRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	inbox, err := h.inbox.UpdateInbox(c.Request().Context(), sc, inboxID, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inbox)
}

// DeleteInbox deletes a non-default inbox.
func (h *InboxHandler) DeleteInbox(c echo.Context) error {
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
	if err := h.inbox.DeleteInbox(c.Request().Context(), sc, inboxID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListInboxIssues returns the active triage entries of an inbox.
func (h *InboxHandler) ListInboxIssues(c echo.Context) error {
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

// CreateInboxIssue submits a new issue into the inbox.
func (h *InboxHandler) CreateInboxIssue(c echo.Context) error {
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

// GetInboxIssue returns the combined issue + triage view of one entry.
func (h *InboxHandler) GetInboxIssue(c echo.Context) error {
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

// UpdateInboxIssue applies a partial triage update.
func (h *InboxHandler) UpdateInboxIssue(c echo.Context) error {
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

// DeleteInboxIssue removes one triage entry.
func (h *InboxHandler) DeleteInboxIssue(c echo.Context) error {
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

// ListIssueActivities returns the persisted mutation log of one issue.
func (h *InboxHandler) ListIssueActivities(c echo.Context) error {
	sc, err := scope(c)
	if err != nil {
		return err
	}
	if _, err := h.resolveActor(c, sc); err != nil {
		return err
	}
	issueID, err := pathUUID(c, "issue_id")
	if err != nil {
		return err
	}
	activities, err := h.inbox.ListIssueActivities(c.Request().Context(), sc, issueID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activities)
}
