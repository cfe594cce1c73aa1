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

// DeployBoardRepository resolves a project's public deploy board.
type DeployBoardRepository struct {
	db *sqlx.DB
}

// NewDeployBoardRepository creates a new DeployBoardRepository.
func NewDeployBoardRepository(db *sqlx.DB) *DeployBoardRepository {
	return &DeployBoardRepository{db: db}
}

// Lookup returns the deploy board for (workspace, project), or ErrNotFound
// when the project has no public board at all. A board with a nil InboxID
// exists but does not expose its inbox.
func (r *DeployBoardRepository) Lookup(ctx context.Context, slug string, projectID uuid.UUID) (*domain.DeployBoard, error) {
	var board domain.DeployBoard
	err := r.db.GetContext(ctx, &board,
		`SELECT b.id, b.workspace_id, b.project_id, b.inbox_id, b.created_at
		 FROM project_deploy_boards b
		 JOIN workspaces w ON w.id = b.workspace_id
		 WHERE w.slug = $1 AND b.project_id = $2`,
		slug, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup deploy board for project %s: %w", projectID, err)
	}
	return &board, nil
}
