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

const stateColumns = `id, project_id, name, "group", color, description, is_default, created_at, updated_at`

// StateRepository handles lifecycle state data access.
type StateRepository struct {
	db *sqlx.DB
}

// NewStateRepository creates a new StateRepository.
func NewStateRepository(db *sqlx.DB) *StateRepository {
	return &StateRepository{db: db}
}

// ListByProject returns all states of a project within a workspace, grouped
// ordering left to the caller.
func (r *StateRepository) ListByProject(ctx context.Context, slug string, projectID uuid.UUID) ([]domain.State, error) {
	var states []domain.State
	err := r.db.SelectContext(ctx, &states,
		`SELECT s.id, s.project_id, s.name, s."group", s.color, s.description,
		        s.is_default, s.created_at, s.updated_at
		 FROM states s
		 JOIN projects p ON p.id = s.project_id
		 JOIN workspaces w ON w.id = p.workspace_id
		 WHERE w.slug = $1 AND s.project_id = $2
		 ORDER BY s."group", s.name`,
		slug, projectID)
	if err != nil {
		return nil, fmt.Errorf("list states for project %s: %w", projectID, err)
	}
	return states, nil
}

// GetOrCreateTriage returns the project's Triage backlog state, creating it
// atomically if it does not exist. Concurrent callers resolve through the
// (project_id, name, "group") unique constraint, so both see the same row.
func (r *StateRepository) GetOrCreateTriage(ctx context.Context, projectID uuid.UUID) (*domain.State, error) {
	var state domain.State
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO states (project_id, name, "group", color, description)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (project_id, name, "group")
		 DO UPDATE SET updated_at = states.updated_at
		 RETURNING `+stateColumns,
		projectID, domain.TriageStateName, domain.StateGroupBacklog,
		domain.TriageStateColor, domain.TriageStateDescription,
	).StructScan(&state)
	if err != nil {
		return nil, fmt.Errorf("get or create triage state for project %s: %w", projectID, err)
	}
	return &state, nil
}

// FirstByGroup returns the first state of a project in the given group, or
// ErrNotFound when the project has none.
func (r *StateRepository) FirstByGroup(ctx context.Context, projectID uuid.UUID, group domain.StateGroup) (*domain.State, error) {
	var state domain.State
	err := r.db.GetContext(ctx, &state,
		`SELECT `+stateColumns+` FROM states
		 WHERE project_id = $1 AND "group" = $2
		 ORDER BY created_at LIMIT 1`,
		projectID, group)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find %s state for project %s: %w", group, projectID, err)
	}
	return &state, nil
}

// FindDefault returns the project's state flagged default, or ErrNotFound.
func (r *StateRepository) FindDefault(ctx context.Context, projectID uuid.UUID) (*domain.State, error) {
	var state domain.State
	err := r.db.GetContext(ctx, &state,
		`SELECT `+stateColumns+` FROM states
		 WHERE project_id = $1 AND is_default
		 ORDER BY created_at LIMIT 1`,
		projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find default state for project %s: %w", projectID, err)
	}
	return &state, nil
}

// FindByID returns one state by id within a project.
func (r *StateRepository) FindByID(ctx context.Context, projectID, id uuid.UUID) (*domain.State, error) {
	var state domain.State
	err := r.db.GetContext(ctx, &state,
		`SELECT `+stateColumns+` FROM states WHERE project_id = $1 AND id = $2`,
		projectID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find state %s: %w", id, err)
	}
	return &state, nil
}
