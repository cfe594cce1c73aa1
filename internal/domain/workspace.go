package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the top-level tenant. All API routes are scoped by its slug.
type Workspace struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Project is a container for issues, states and inboxes within a workspace.
type Project struct {
	ID          uuid.UUID `json:"id" db:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Identifier  string    `json:"identifier" db:"identifier"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectMember binds a user to a project with a role.
type ProjectMember struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	MemberID  uuid.UUID `json:"member_id" db:"member_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeployBoard is a project's public deploy board. InboxID is set when the
// board exposes its inbox for external intake.
type DeployBoard struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	ProjectID   uuid.UUID  `json:"project_id" db:"project_id"`
	InboxID     *uuid.UUID `json:"inbox" db:"inbox_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
