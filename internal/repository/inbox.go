package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/triage/internal/domain"
)

// InboxRepository handles inbox and inbox-issue data access.
type InboxRepository struct {
	db *sqlx.DB
}

// NewInboxRepository creates a new InboxRepository.
func NewInboxRepository(db *sqlx.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

const inboxColumns = `id, project_id, name, description, is_default, created_at, updated_at`

// pendingCount annotates each inbox with the number of children still pending.
const inboxSelect = `
	SELECT i.id, i.project_id, i.name, i.description, i.is_default,
	       i.created_at, i.updated_at,
	       (SELECT COUNT(*) FROM inbox_issues ii
	        WHERE ii.inbox_id = i.id AND ii.status = -2) AS pending_issue_count
	FROM inboxes i
	JOIN projects p ON p.id = i.project_id
	JOIN workspaces w ON w.id = p.workspace_id`

// ListInboxes returns a project's inboxes annotated with pending_issue_count.
func (r *InboxRepository) ListInboxes(ctx context.Context, slug string, projectID uuid.UUID) ([]domain.Inbox, error) {
	var inboxes []domain.Inbox
	err := r.db.SelectContext(ctx, &inboxes,
		inboxSelect+` WHERE w.slug = $1 AND i.project_id = $2 ORDER BY i.created_at`,
		slug, projectID)
	if err != nil {
		return nil, fmt.Errorf("list inboxes for project %s: %w", projectID, err)
	}
	return inboxes, nil
}

// FindInbox retrieves one inbox with its pending_issue_count annotation.
func (r *InboxRepository) FindInbox(ctx context.Context, slug string, projectID, id uuid.UUID) (*domain.Inbox, error) {
	var inbox domain.Inbox
	err := r.db.GetContext(ctx, &inbox,
		inboxSelect+` WHERE w.slug = $1 AND i.project_id = $2 AND i.id = $3`,
		slug, projectID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find inbox %s: %w", id, err)
	}
	return &inbox, nil
}

// CreateInbox inserts a new inbox for a project.
func (r *InboxRepository) CreateInbox(ctx context.Context, inbox domain.Inbox) (*domain.Inbox, error) {
	var result domain.Inbox
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO inboxes (project_id, name, description, is_default)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+inboxColumns,
		inbox.ProjectID, inbox.Name, inbox.Description, inbox.IsDefault,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create inbox: %w", err)
	}
	return &result, nil
}

// UpdateInbox persists name and description changes.
func (r *InboxRepository) UpdateInbox(ctx context.Context, inbox domain.Inbox) (*domain.Inbox, error) {
	var result domain.Inbox
	err := r.db.QueryRowxContext(ctx,
		`UPDATE inboxes SET name = $1, description = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING `+inboxColumns,
		inbox.Name, inbox.Description, inbox.ID,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update inbox %s: %w", inbox.ID, err)
	}
	return &result, nil
}

// DeleteInbox removes an inbox; its inbox issues cascade at the store level.
func (r *InboxRepository) DeleteInbox(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM inboxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inbox %s: %w", id, err)
	}
	return nil
}

const inboxIssueColumns = `id, inbox_id, issue_id, project_id, status, snoozed_till,
	duplicate_to, source, created_by, created_at, updated_at`

// CreateInboxIssue links an issue to an inbox with the default pending status.
func (r *InboxRepository) CreateInboxIssue(ctx context.Context, ii domain.InboxIssue) (*domain.InboxIssue, error) {
	var result domain.InboxIssue
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO inbox_issues (inbox_id, issue_id, project_id, source, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+inboxIssueColumns,
		ii.InboxID, ii.IssueID, ii.ProjectID, ii.Source, ii.CreatedByID,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create inbox issue: %w", err)
	}
	return &result, nil
}

// FindInboxIssue retrieves one inbox issue scoped by workspace, project and inbox.
func (r *InboxRepository) FindInboxIssue(ctx context.Context, slug string, projectID, inboxID, id uuid.UUID) (*domain.InboxIssue, error) {
	var ii domain.InboxIssue
	err := r.db.GetContext(ctx, &ii,
		`SELECT ii.id, ii.inbox_id, ii.issue_id, ii.project_id, ii.status,
		        ii.snoozed_till, ii.duplicate_to, ii.source, ii.created_by,
		        ii.created_at, ii.updated_at
		 FROM inbox_issues ii
		 JOIN projects p ON p.id = ii.project_id
		 JOIN workspaces w ON w.id = p.workspace_id
		 WHERE w.slug = $1 AND ii.project_id = $2 AND ii.inbox_id = $3 AND ii.id = $4`,
		slug, projectID, inboxID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find inbox issue %s: %w", id, err)
	}
	return &ii, nil
}

// UpdateInboxIssue persists the triage fields and returns the stored row.
func (r *InboxRepository) UpdateInboxIssue(ctx context.Context, ii domain.InboxIssue) (*domain.InboxIssue, error) {
	var result domain.InboxIssue
	err := r.db.QueryRowxContext(ctx,
		`UPDATE inbox_issues
		 SET status = $1, snoozed_till = $2, duplicate_to = $3, source = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING `+inboxIssueColumns,
		ii.Status, ii.SnoozedTill, ii.DuplicateTo, ii.Source, ii.ID,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update inbox issue %s: %w", ii.ID, err)
	}
	return &result, nil
}

// DeleteInboxIssue removes one inbox issue.
func (r *InboxRepository) DeleteInboxIssue(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM inbox_issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inbox issue %s: %w", id, err)
	}
	return nil
}

// issueDetailRow is the flat scan target for the annotated issue view.
type issueDetailRow struct {
	domain.Issue
	SubIssuesCount  int                     `db:"sub_issues_count"`
	LinkCount       int                     `db:"link_count"`
	AttachmentCount int                     `db:"attachment_count"`
	BridgeID        uuid.UUID               `db:"bridge_id"`
	BridgeStatus    domain.InboxIssueStatus `db:"bridge_status"`
	BridgeDupTo     *uuid.UUID              `db:"bridge_duplicate_to"`
	BridgeSnoozed   *time.Time              `db:"bridge_snoozed_till"`
	BridgeSource    string                  `db:"bridge_source"`
	StID            *uuid.UUID              `db:"st_id"`
	StName          *string                 `db:"st_name"`
	StGroup         *string                 `db:"st_group"`
	StColor         *string                 `db:"st_color"`
	StDescription   *string                 `db:"st_description"`
	StDefault       *bool                   `db:"st_default"`
}

func (row issueDetailRow) toDetail() domain.IssueDetail {
	detail := domain.IssueDetail{
		Issue:           row.Issue,
		SubIssuesCount:  row.SubIssuesCount,
		LinkCount:       row.LinkCount,
		AttachmentCount: row.AttachmentCount,
		BridgeID:        row.BridgeID,
		IssueInbox: []domain.InboxIssueLite{{
			ID:          row.BridgeID,
			Status:      row.BridgeStatus,
			DuplicateTo: row.BridgeDupTo,
			SnoozedTill: row.BridgeSnoozed,
			Source:      row.BridgeSource,
		}},
	}
	if row.StID != nil {
		detail.StateDetail = &domain.State{
			ID:          *row.StID,
			ProjectID:   row.ProjectID,
			Name:        *row.StName,
			Group:       domain.StateGroup(*row.StGroup),
			Color:       *row.StColor,
			Description: *row.StDescription,
			Default:     *row.StDefault,
		}
	}
	return detail
}

const issueDetailSelect = `
	SELECT i.id, i.project_id, i.state_id, i.parent_id, i.name, i.description,
	       i.description_html, i.description_stripped, i.priority, i.created_by,
	       i.created_at, i.updated_at,
	       (SELECT COUNT(*) FROM issues c WHERE c.parent_id = i.id) AS sub_issues_count,
	       (SELECT COUNT(*) FROM issue_links l WHERE l.issue_id = i.id) AS link_count,
	       (SELECT COUNT(*) FROM issue_attachments a WHERE a.issue_id = i.id) AS attachment_count,
	       ii.id AS bridge_id,
	       ii.status AS bridge_status,
	       ii.duplicate_to AS bridge_duplicate_to,
	       ii.snoozed_till AS bridge_snoozed_till,
	       ii.source AS bridge_source,
	       s.id AS st_id, s.name AS st_name, s."group" AS st_group,
	       s.color AS st_color, s.description AS st_description, s.is_default AS st_default
	FROM issues i
	JOIN inbox_issues ii ON ii.issue_id = i.id
	JOIN projects p ON p.id = i.project_id
	JOIN workspaces w ON w.id = p.workspace_id
	LEFT JOIN states s ON s.id = i.state_id`

// ListIssueDetails returns the annotated issue view for an inbox: active
// entries only (snooze window not elapsed), ordered by (snoozed_till, status),
// optionally filtered on a single triage status.
func (r *InboxRepository) ListIssueDetails(ctx context.Context, slug string, projectID, inboxID uuid.UUID, status *domain.InboxIssueStatus, now time.Time) ([]domain.IssueDetail, error) {
	query := issueDetailSelect + `
	 WHERE w.slug = $1 AND i.project_id = $2 AND ii.inbox_id = $3
	   AND (ii.snoozed_till IS NULL OR ii.snoozed_till >= $4)`
	args := []any{slug, projectID, inboxID, now}
	if status != nil {
		query += ` AND ii.status = $5`
		args = append(args, *status)
	}
	query += ` ORDER BY ii.snoozed_till, ii.status`

	var rows []issueDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list inbox issues for inbox %s: %w", inboxID, err)
	}
	details := make([]domain.IssueDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDetail())
	}
	return details, nil
}

// GetIssueDetail returns the annotated issue view for one inbox issue.
func (r *InboxRepository) GetIssueDetail(ctx context.Context, slug string, projectID, inboxID, issueID uuid.UUID) (*domain.IssueDetail, error) {
	var row issueDetailRow
	err := r.db.GetContext(ctx, &row,
		issueDetailSelect+`
		 WHERE w.slug = $1 AND i.project_id = $2 AND ii.inbox_id = $3 AND i.id = $4`,
		slug, projectID, inboxID, issueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get inbox issue detail for issue %s: %w", issueID, err)
	}
	detail := row.toDetail()
	return &detail, nil
}
