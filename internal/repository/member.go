package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/triage/internal/domain"
)

// MemberRepository resolves project membership. Every lookup is scoped by
// workspace slug so a stale project id from another workspace cannot match.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindProjectMember retrieves the membership row for a user within a project.
func (r *MemberRepository) FindProjectMember(ctx context.Context, slug string, projectID, userID uuid.UUID) (*domain.ProjectMember, error) {
	var member domain.ProjectMember
	err := r.db.GetContext(ctx, &member,
		`SELECT pm.id, pm.project_id, pm.member_id, pm.role, pm.created_at
		 FROM project_members pm
		 JOIN projects p ON p.id = pm.project_id
		 JOIN workspaces w ON w.id = p.workspace_id
		 WHERE w.slug = $1 AND pm.project_id = $2 AND pm.member_id = $3`,
		slug, projectID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find project member %s/%s: %w", projectID, userID, err)
	}
	return &member, nil
}
