package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/triage/internal/domain"
)

// InboxStore defines the inbox and inbox-issue data access consumed by
// InboxService.
type InboxStore interface {
	ListInboxes(ctx context.Context, slug string, projectID uuid.UUID) ([]domain.Inbox, error)
	FindInbox(ctx context.Context, slug string, projectID, id uuid.UUID) (*domain.Inbox, error)
	CreateInbox(ctx context.Context, inbox domain.Inbox) (*domain.Inbox, error)
	UpdateInbox(ctx context.Context, inbox domain.Inbox) (*domain.Inbox, error)
	DeleteInbox(ctx context.Context, id uuid.UUID) error

	CreateInboxIssue(ctx context.Context, ii domain.InboxIssue) (*domain.InboxIssue, error)
	FindInboxIssue(ctx context.Context, slug string, projectID, inboxID, id uuid.UUID) (*domain.InboxIssue, error)
	UpdateInboxIssue(ctx context.Context, ii domain.InboxIssue) (*domain.InboxIssue, error)
	DeleteInboxIssue(ctx context.Context, id uuid.UUID) error

	ListIssueDetails(ctx context.Context, slug string, projectID, inboxID uuid.UUID, status *domain.InboxIssueStatus, now time.Time) ([]domain.IssueDetail, error)
	GetIssueDetail(ctx context.Context, slug string, projectID, inboxID, issueID uuid.UUID) (*domain.IssueDetail, error)
}

// IssueStore defines the issue data access consumed by InboxService.
type IssueStore interface {
	Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error)
	FindByID(ctx context.Context, slug string, projectID, id uuid.UUID) (*domain.Issue, error)
	Update(ctx context.Context, issue domain.Issue) (*domain.Issue, error)
	SetState(ctx context.Context, issueID, stateID uuid.UUID) error
	Delete(ctx context.Context, projectID, id uuid.UUID) error
}

// StateStore defines the lifecycle state access consumed by InboxService.
type StateStore interface {
	ListByProject(ctx context.Context, slug string, projectID uuid.UUID) ([]domain.State, error)
	GetOrCreateTriage(ctx context.Context, projectID uuid.UUID) (*domain.State, error)
	FirstByGroup(ctx context.Context, projectID uuid.UUID, group domain.StateGroup) (*domain.State, error)
	FindDefault(ctx context.Context, projectID uuid.UUID) (*domain.State, error)
	FindByID(ctx context.Context, projectID, id uuid.UUID) (*domain.State, error)
}

// ActivityNotifier records issue mutations asynchronously. Implementations
// must never block the caller; failures are tolerated.
type ActivityNotifier interface {
	Notify(event domain.ActivityEvent)
}

// ActivityLogStore reads back the persisted activity log.
type ActivityLogStore interface {
	ListByIssue(ctx context.Context, slug string, projectID, issueID uuid.UUID) ([]domain.IssueActivity, error)
}

// ProjectScope identifies the workspace + project every inbox operation runs in.
type ProjectScope struct {
	WorkspaceSlug string
	ProjectID     uuid.UUID
}

// IssueInput is the nested issue-content payload of intake and update
// requests. Pointer fields distinguish absent from zero.
type IssueInput struct {
	Name            *string         `json:"name"`
	Description     json.RawMessage `json:"description"`
	DescriptionHTML *string         `json:"description_html"`
	Priority        *string         `json:"priority"`
}

// IntakeRequest is the payload for submitting a new issue into an inbox.
type IntakeRequest struct {
	Issue  *IssueInput `json:"issue"`
	Source string      `json:"source"`
}

// UpdateRequest is the partial-update payload for one inbox issue.
type UpdateRequest struct {
	Issue       *IssueInput              `json:"issue"`
	Status      *domain.InboxIssueStatus `json:"status"`
	SnoozedTill *time.Time               `json:"snoozed_till"`
	DuplicateTo *uuid.UUID               `json:"duplicate_to"`
	Source      *string                  `json:"source"`
}

func (r UpdateRequest) hasTriageFields() bool {
	return r.Status != nil || r.SnoozedTill != nil || r.DuplicateTo != nil || r.Source != nil
}

// InboxService is the triage state machine: issue intake, status transitions
// and linked-issue lifecycle synchronization.
type InboxService struct {
	inboxes  InboxStore
	issues   IssueStore
	states   StateStore
	log      ActivityLogStore
	notifier ActivityNotifier
	now      func() time.Time
}

// NewInboxService creates a new InboxService.
func NewInboxService(inboxes InboxStore, issues IssueStore, states StateStore, log ActivityLogStore, notifier ActivityNotifier) *InboxService {
	return &InboxService{
		inboxes:  inboxes,
		issues:   issues,
		states:   states,
		log:      log,
		notifier: notifier,
		now:      time.Now,
	}
}

// ListInboxes returns the project's inboxes with pending counts.
func (s *InboxService) ListInboxes(ctx context.Context, scope ProjectScope) ([]domain.Inbox, error) {
	return s.inboxes.ListInboxes(ctx, scope.WorkspaceSlug, scope.ProjectID)
}

// GetInbox returns one inbox with its pending count.
func (s *InboxService) GetInbox(ctx context.Context, scope ProjectScope, inboxID uuid.UUID) (*domain.Inbox, error) {
	return s.inboxes.FindInbox(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID)
}

// CreateInbox creates an inbox for the project.
func (s *InboxService) CreateInbox(ctx context.Context, scope ProjectScope, name, description string) (*domain.Inbox, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "Name is required"}
	}
	return s.inboxes.CreateInbox(ctx, domain.Inbox{
		ProjectID:   scope.ProjectID,
		Name:        name,
		Description: description,
	})
}

// UpdateInbox updates an inbox's name and description.
func (s *InboxService) UpdateInbox(ctx context.Context, scope ProjectScope, inboxID uuid.UUID, name, description *string) (*domain.Inbox, error) {
	inbox, err := s.inboxes.FindInbox(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, &domain.ValidationError{Field: "name", Message: "Name is required"}
		}
		inbox.Name = *name
	}
	if description != nil {
		inbox.Description = *description
	}
	return s.inboxes.UpdateInbox(ctx, *inbox)
}

// DeleteInbox deletes a non-default inbox. The default inbox can never be
// deleted, regardless of actor role.
func (s *InboxService) DeleteInbox(ctx context.Context, scope ProjectScope, inboxID uuid.UUID) error {
	inbox, err := s.inboxes.FindInbox(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID)
	if err != nil {
		return err
	}
	if inbox.IsDefault {
		return &domain.PreconditionError{Message: "You cannot delete the default inbox"}
	}
	return s.inboxes.DeleteInbox(ctx, inbox.ID)
}

// ListInboxIssues returns the annotated view of active triage entries:
// snoozed records whose window has elapsed are excluded, ordering is
// (snoozed_till, status) ascending.
func (s *InboxService) ListInboxIssues(ctx context.Context, scope ProjectScope, inboxID uuid.UUID, status *domain.InboxIssueStatus) ([]domain.IssueDetail, error) {
	return s.inboxes.ListIssueDetails(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, status, s.now())
}

// GetInboxIssue returns the combined issue + triage view for one entry.
func (s *InboxService) GetInboxIssue(ctx context.Context, scope ProjectScope, inboxID, id uuid.UUID) (*domain.IssueDetail, error) {
	ii, err := s.inboxes.FindInboxIssue(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, id)
	if err != nil {
		return nil, err
	}
	return s.inboxes.GetIssueDetail(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, ii.IssueID)
}

// Intake submits a new issue into the inbox. The issue starts in the
// project's Triage state, created lazily and race-safe, and the bridging
// inbox issue starts pending.
func (s *InboxService) Intake(ctx context.Context, scope ProjectScope, inboxID uuid.UUID, actor Actor, req IntakeRequest) (*domain.IssueDetail, error) {
	if req.Issue == nil || req.Issue.Name == nil || strings.TrimSpace(*req.Issue.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "Name is required"}
	}
	// An absent priority reads as "none" for validation, but persists as
	// "low". The asymmetry is inherited behavior kept for compatibility.
	if req.Issue.Priority != nil && !domain.Priority(*req.Issue.Priority).Valid() {
		return nil, &domain.ValidationError{Field: "priority", Message: "Invalid priority"}
	}
	priority := domain.PriorityLow
	if req.Issue.Priority != nil {
		priority = domain.Priority(*req.Issue.Priority)
	}

	if _, err := s.inboxes.FindInbox(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID); err != nil {
		return nil, err
	}

	triage, err := s.states.GetOrCreateTriage(ctx, scope.ProjectID)
	if err != nil {
		return nil, err
	}

	descriptionHTML := "<p></p>"
	if req.Issue.DescriptionHTML != nil {
		descriptionHTML = *req.Issue.DescriptionHTML
	}
	actorID := actor.UserID
	issue, err := s.issues.Create(ctx, domain.Issue{
		ProjectID:       scope.ProjectID,
		StateID:         &triage.ID,
		Name:            *req.Issue.Name,
		Description:     req.Issue.Description,
		DescriptionHTML: descriptionHTML,
		Priority:        priority,
		CreatedByID:     &actorID,
	})
	if err != nil {
		return nil, err
	}

	requested, _ := json.Marshal(req)
	s.notifier.Notify(domain.ActivityEvent{
		Type:          domain.ActivityIssueCreated,
		ActorID:       actor.UserID,
		IssueID:       issue.ID,
		ProjectID:     scope.ProjectID,
		RequestedData: requested,
		Epoch:         s.now().Unix(),
	})

	source := req.Source
	if source == "" {
		source = "in-app"
	}
	if _, err := s.inboxes.CreateInboxIssue(ctx, domain.InboxIssue{
		InboxID:     inboxID,
		IssueID:     issue.ID,
		ProjectID:   scope.ProjectID,
		Source:      source,
		CreatedByID: &actorID,
	}); err != nil {
		return nil, err
	}

	return s.inboxes.GetIssueDetail(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, issue.ID)
}

// Update applies a partial update to one inbox issue: optional issue-content
// changes first (field-restricted for sub-Member actors), then triage field
// changes for moderators, then lifecycle synchronization of the linked issue.
func (s *InboxService) Update(ctx context.Context, scope ProjectScope, inboxID, id uuid.UUID, actor Actor, req UpdateRequest) (*domain.IssueDetail, error) {
	ii, err := s.inboxes.FindInboxIssue(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(ii) {
		return nil, &domain.AuthzError{Message: "You cannot edit inbox issues"}
	}

	if req.Issue != nil {
		if err := s.applyIssueContent(ctx, scope, actor, ii.IssueID, req.Issue); err != nil {
			return nil, err
		}
	}

	if actor.CanModerate() && req.hasTriageFields() {
		if err := s.applyTriageFields(ctx, scope, ii, req); err != nil {
			return nil, err
		}
	} else if !actor.CanModerate() && req.Issue == nil && req.hasTriageFields() {
		// A creator without moderation rights may only touch the issue
		// content; a triage-only payload from them is a denial.
		return nil, &domain.AuthzError{Message: "You cannot edit inbox issues"}
	}

	return s.inboxes.GetIssueDetail(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, ii.IssueID)
}

// applyIssueContent validates and persists the nested issue payload and emits
// the "updated" activity event with a snapshot of the issue before mutation.
func (s *InboxService) applyIssueContent(ctx context.Context, scope ProjectScope, actor Actor, issueID uuid.UUID, input *IssueInput) error {
	issue, err := s.issues.FindByID(ctx, scope.WorkspaceSlug, scope.ProjectID, issueID)
	if err != nil {
		return err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return &domain.ValidationError{Field: "name", Message: "Name is required"}
	}
	if input.Priority != nil && !domain.Priority(*input.Priority).Valid() {
		return &domain.ValidationError{Field: "priority", Message: "Invalid priority"}
	}

	prior, _ := json.Marshal(issue)

	updated := *issue
	if input.Name != nil {
		updated.Name = *input.Name
	}
	if input.Description != nil {
		updated.Description = input.Description
	}
	if input.DescriptionHTML != nil {
		updated.DescriptionHTML = *input.DescriptionHTML
	}
	// Sub-Member editors are limited to name, description and
	// description_html; everything else in the payload is discarded.
	if actor.CanModerate() && input.Priority != nil {
		updated.Priority = domain.Priority(*input.Priority)
	}

	if _, err := s.issues.Update(ctx, updated); err != nil {
		return err
	}

	requested, _ := json.Marshal(input)
	s.notifier.Notify(domain.ActivityEvent{
		Type:          domain.ActivityIssueUpdated,
		ActorID:       actor.UserID,
		IssueID:       issue.ID,
		ProjectID:     scope.ProjectID,
		RequestedData: requested,
		PriorSnapshot: prior,
		Epoch:         s.now().Unix(),
	})
	return nil
}

// applyTriageFields persists status/snooze/duplicate/source changes and runs
// the post-transition lifecycle synchronization on the linked issue.
func (s *InboxService) applyTriageFields(ctx context.Context, scope ProjectScope, ii *domain.InboxIssue, req UpdateRequest) error {
	updated := *ii
	if req.Status != nil {
		if !ii.Status.CanTransition(*req.Status) {
			return &domain.ValidationError{Field: "status", Message: "Invalid status transition"}
		}
		updated.Status = *req.Status
	}
	if req.SnoozedTill != nil {
		updated.SnoozedTill = req.SnoozedTill
	}
	if req.DuplicateTo != nil {
		updated.DuplicateTo = req.DuplicateTo
	}
	if req.Source != nil {
		updated.Source = *req.Source
	}

	stored, err := s.inboxes.UpdateInboxIssue(ctx, updated)
	if err != nil {
		return err
	}
	*ii = *stored

	if req.Status == nil {
		return nil
	}
	return s.syncIssueState(ctx, scope, ii.IssueID, stored.Status)
}

// syncIssueState moves the linked issue after a status transition: rejection
// and duplicate push it to the project's cancelled-group state when one
// exists; acceptance moves it to the project's default state, but only while
// it still sits in Triage. Missing target states are not an error.
func (s *InboxService) syncIssueState(ctx context.Context, scope ProjectScope, issueID uuid.UUID, status domain.InboxIssueStatus) error {
	switch status {
	case domain.InboxIssueRejected, domain.InboxIssueDuplicate:
		cancelled, err := s.states.FirstByGroup(ctx, scope.ProjectID, domain.StateGroupCancelled)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.issues.SetState(ctx, issueID, cancelled.ID)

	case domain.InboxIssueAccepted:
		issue, err := s.issues.FindByID(ctx, scope.WorkspaceSlug, scope.ProjectID, issueID)
		if err != nil {
			return err
		}
		if issue.StateID == nil {
			return nil
		}
		current, err := s.states.FindByID(ctx, scope.ProjectID, *issue.StateID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		// Accepting an issue that already moved past triage is a no-op.
		if current.Name != domain.TriageStateName {
			return nil
		}
		def, err := s.states.FindDefault(ctx, scope.ProjectID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.issues.SetState(ctx, issueID, def.ID)
	}
	return nil
}

// Delete removes one inbox issue. Unless the entry was accepted, the linked
// issue is deleted with it.
func (s *InboxService) Delete(ctx context.Context, scope ProjectScope, inboxID, id uuid.UUID, actor Actor) error {
	ii, err := s.inboxes.FindInboxIssue(ctx, scope.WorkspaceSlug, scope.ProjectID, inboxID, id)
	if err != nil {
		return err
	}
	if !actor.CanDelete(ii) {
		return &domain.AuthzError{Message: "You cannot delete inbox issue"}
	}
	if ii.Status.Terminal() {
		if err := s.issues.Delete(ctx, scope.ProjectID, ii.IssueID); err != nil {
			return fmt.Errorf("cascade issue delete: %w", err)
		}
	}
	return s.inboxes.DeleteInboxIssue(ctx, ii.ID)
}

// ListStates returns the project's lifecycle states.
func (s *InboxService) ListStates(ctx context.Context, scope ProjectScope) ([]domain.State, error) {
	return s.states.ListByProject(ctx, scope.WorkspaceSlug, scope.ProjectID)
}

// ListIssueActivities returns the persisted mutation log of one issue.
func (s *InboxService) ListIssueActivities(ctx context.Context, scope ProjectScope, issueID uuid.UUID) ([]domain.IssueActivity, error) {
	if _, err := s.issues.FindByID(ctx, scope.WorkspaceSlug, scope.ProjectID, issueID); err != nil {
		return nil, err
	}
	return s.log.ListByIssue(ctx, scope.WorkspaceSlug, scope.ProjectID, issueID)
}
