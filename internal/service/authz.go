package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sumire/triage/internal/domain"
)

// MemberStore resolves project membership for authorization decisions.
type MemberStore interface {
	FindProjectMember(ctx context.Context, slug string, projectID, userID uuid.UUID) (*domain.ProjectMember, error)
}

// DeployBoardStore resolves a project's public deploy board.
type DeployBoardStore interface {
	Lookup(ctx context.Context, slug string, projectID uuid.UUID) (*domain.DeployBoard, error)
}

// Actor is the resolved acting user for an inbox operation. Public actors
// came in through a project's deploy board: they hold creator-only authority
// and never gain moderation rights from a project role.
type Actor struct {
	UserID uuid.UUID
	Role   domain.Role
	Public bool
}

// CanModerate reports whether the actor may change triage attributes
// (status, snoozed_till, duplicate_to, source) and edit all issue fields.
func (a Actor) CanModerate() bool {
	return !a.Public && a.Role.AtLeast(domain.RoleMember)
}

// CanEdit reports whether the actor may touch the given inbox issue at all.
func (a Actor) CanEdit(ii *domain.InboxIssue) bool {
	return a.CanModerate() || a.isCreator(ii)
}

// CanDelete reports whether the actor may delete the given inbox issue.
func (a Actor) CanDelete(ii *domain.InboxIssue) bool {
	return a.CanModerate() || a.isCreator(ii)
}

func (a Actor) isCreator(ii *domain.InboxIssue) bool {
	return ii.CreatedByID != nil && *ii.CreatedByID == a.UserID
}

// AuthorizationGate centralizes the role and ownership checks guarding inbox
// operations, so threshold literals live in exactly one place.
type AuthorizationGate struct {
	members MemberStore
	boards  DeployBoardStore
}

// NewAuthorizationGate creates a new AuthorizationGate.
func NewAuthorizationGate(members MemberStore, boards DeployBoardStore) *AuthorizationGate {
	return &AuthorizationGate{members: members, boards: boards}
}

// ResolveMember resolves the actor for the in-app path. Any project member
// may proceed; non-members are rejected outright.
func (g *AuthorizationGate) ResolveMember(ctx context.Context, slug string, projectID, userID uuid.UUID) (Actor, error) {
	member, err := g.members.FindProjectMember(ctx, slug, projectID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Actor{}, domain.ErrForbidden
		}
		return Actor{}, fmt.Errorf("resolve project member: %w", err)
	}
	return Actor{UserID: userID, Role: member.Role}, nil
}

// ResolvePublic resolves the actor for the deploy-board path. The board must
// exist (distinct not-found) and must have an inbox attached (distinct
// precondition failure); role is never elevated on this path.
func (g *AuthorizationGate) ResolvePublic(ctx context.Context, slug string, projectID, userID uuid.UUID) (Actor, *domain.DeployBoard, error) {
	board, err := g.boards.Lookup(ctx, slug, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Actor{}, nil, domain.ErrNotFound
		}
		return Actor{}, nil, fmt.Errorf("lookup deploy board: %w", err)
	}
	if board.InboxID == nil {
		return Actor{}, nil, &domain.PreconditionError{
			Message: "Inbox is not enabled for this Project Board",
		}
	}
	return Actor{UserID: userID, Public: true}, board, nil
}
