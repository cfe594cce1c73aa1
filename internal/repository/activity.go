package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/triage/internal/domain"
)

// ActivityRepository persists issue activity records.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Record inserts one activity row for an issue mutation.
func (r *ActivityRepository) Record(ctx context.Context, event domain.ActivityEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO issue_activities (issue_id, project_id, actor_id, type,
		                               requested_data, prior_snapshot, epoch)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.IssueID, event.ProjectID, event.ActorID, event.Type,
		nullableJSON(event.RequestedData), nullableJSON(event.PriorSnapshot), event.Epoch)
	if err != nil {
		return fmt.Errorf("record issue activity: %w", err)
	}
	return nil
}

// ListByIssue returns the persisted activity log for one issue, oldest first.
func (r *ActivityRepository) ListByIssue(ctx context.Context, slug string, projectID, issueID uuid.UUID) ([]domain.IssueActivity, error) {
	var activities []domain.IssueActivity
	err := r.db.SelectContext(ctx, &activities,
		`SELECT a.id, a.issue_id, a.project_id, a.actor_id, a.type,
		        a.requested_data, a.prior_snapshot, a.epoch, a.created_at
		 FROM issue_activities a
		 JOIN projects p ON p.id = a.project_id
		 JOIN workspaces w ON w.id = p.workspace_id
		 WHERE w.slug = $1 AND a.project_id = $2 AND a.issue_id = $3
		 ORDER BY a.created_at`,
		slug, projectID, issueID)
	if err != nil {
		return nil, fmt.Errorf("list activities for issue %s: %w", issueID, err)
	}
	return activities, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
