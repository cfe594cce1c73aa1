package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/triage/internal/domain"
)

const issueColumns = `id, project_id, state_id, parent_id, name, description,
	description_html, description_stripped, priority, created_by, created_at, updated_at`

// IssueRepository handles issue data access.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts a new issue and returns the stored row.
func (r *IssueRepository) Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error) {
	description := issue.Description
	if len(description) == 0 {
		description = json.RawMessage(`{}`)
	}
	var result domain.Issue
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO issues (project_id, state_id, name, description, description_html,
		                     description_stripped, priority, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+issueColumns,
		issue.ProjectID, issue.StateID, issue.Name, []byte(description),
		issue.DescriptionHTML, issue.DescriptionStripped, issue.Priority, issue.CreatedByID,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return &result, nil
}

// FindByID retrieves an issue within a project scope.
func (r *IssueRepository) FindByID(ctx context.Context, slug string, projectID, id uuid.UUID) (*domain.Issue, error) {
	var issue domain.Issue
	err := r.db.GetContext(ctx, &issue,
		`SELECT i.id, i.project_id, i.state_id, i.parent_id, i.name, i.description,
		        i.description_html, i.description_stripped, i.priority, i.created_by,
		        i.created_at, i.updated_at
		 FROM issues i
		 JOIN projects p ON p.id = i.project_id
		 JOIN workspaces w ON w.id = p.workspace_id
		 WHERE w.slug = $1 AND i.project_id = $2 AND i.id = $3`,
		slug, projectID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find issue %s: %w", id, err)
	}
	return &issue, nil
}

// Update persists the mutable issue fields and returns the stored row.
func (r *IssueRepository) Update(ctx context.Context, issue domain.Issue) (*domain.Issue, error) {
	description := issue.Description
	if len(description) == 0 {
		description = json.RawMessage(`{}`)
	}
	var result domain.Issue
	err := r.db.QueryRowxContext(ctx,
		`UPDATE issues
		 SET name = $1, description = $2, description_html = $3,
		     description_stripped = $4, priority = $5, state_id = $6, updated_at = NOW()
		 WHERE id = $7
		 RETURNING `+issueColumns,
		issue.Name, []byte(description), issue.DescriptionHTML,
		issue.DescriptionStripped, issue.Priority, issue.StateID, issue.ID,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update issue %s: %w", issue.ID, err)
	}
	return &result, nil
}

// SetState moves an issue to the given lifecycle state.
func (r *IssueRepository) SetState(ctx context.Context, issueID, stateID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE issues SET state_id = $1, updated_at = NOW() WHERE id = $2`,
		stateID, issueID)
	if err != nil {
		return fmt.Errorf("set state of issue %s: %w", issueID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an issue within a project scope.
func (r *IssueRepository) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM issues WHERE project_id = $1 AND id = $2`, projectID, id)
	if err != nil {
		return fmt.Errorf("delete issue %s: %w", id, err)
	}
	return nil
}
