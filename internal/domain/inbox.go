package domain

import (
	"time"

	"github.com/google/uuid"
)

// InboxIssueStatus is the triage status of an inbox issue. The wire encoding
// is the signed small integer; the named constants are the only valid values.
type InboxIssueStatus int16

const (
	InboxIssuePending   InboxIssueStatus = -2
	InboxIssueRejected  InboxIssueStatus = -1
	InboxIssueSnoozed   InboxIssueStatus = 0
	InboxIssueAccepted  InboxIssueStatus = 1
	InboxIssueDuplicate InboxIssueStatus = 2
)

// Valid reports whether s is a defined triage status.
func (s InboxIssueStatus) Valid() bool {
	switch s {
	case InboxIssuePending, InboxIssueRejected, InboxIssueSnoozed,
		InboxIssueAccepted, InboxIssueDuplicate:
		return true
	}
	return false
}

// String returns the status name.
func (s InboxIssueStatus) String() string {
	switch s {
	case InboxIssuePending:
		return "pending"
	case InboxIssueRejected:
		return "rejected"
	case InboxIssueSnoozed:
		return "snoozed"
	case InboxIssueAccepted:
		return "accepted"
	case InboxIssueDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the triage state machine permits moving from
// s to next. Pending may move to any status; snoozed is a holding state that
// may move on to accepted, rejected or duplicate; accepted, rejected and
// duplicate do not transition further. Re-asserting the current status is
// always a permitted no-op, and nothing ever returns to pending.
func (s InboxIssueStatus) CanTransition(next InboxIssueStatus) bool {
	if !next.Valid() {
		return false
	}
	if next == s {
		return true
	}
	if next == InboxIssuePending {
		return false
	}
	switch s {
	case InboxIssuePending:
		return true
	case InboxIssueSnoozed:
		return next != InboxIssueSnoozed
	default:
		return false
	}
}

// Terminal reports whether deleting the inbox issue in this status also
// deletes the underlying issue. Accepted is the only status that keeps it.
func (s InboxIssueStatus) Terminal() bool {
	return s != InboxIssueAccepted
}

// Inbox is a per-project container for triaged issue submissions. A project
// has at most one default inbox, which cannot be deleted.
type Inbox struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsDefault   bool      `json:"is_default" db:"is_default"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// PendingIssueCount is a listing annotation: the number of child inbox
	// issues still in pending status. Not a stored column.
	PendingIssueCount int `json:"pending_issue_count" db:"pending_issue_count"`
}

// InboxIssue binds one issue to one inbox with its triage status. Exactly one
// InboxIssue exists per issue per inbox.
type InboxIssue struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	InboxID     uuid.UUID        `json:"inbox" db:"inbox_id"`
	IssueID     uuid.UUID        `json:"issue" db:"issue_id"`
	ProjectID   uuid.UUID        `json:"project_id" db:"project_id"`
	Status      InboxIssueStatus `json:"status" db:"status"`
	SnoozedTill *time.Time       `json:"snoozed_till" db:"snoozed_till"`
	DuplicateTo *uuid.UUID       `json:"duplicate_to" db:"duplicate_to"`
	Source      string           `json:"source" db:"source"`
	CreatedByID *uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// Lite returns the compact triage projection embedded in issue listings.
func (ii InboxIssue) Lite() InboxIssueLite {
	return InboxIssueLite{
		ID:          ii.ID,
		Status:      ii.Status,
		DuplicateTo: ii.DuplicateTo,
		SnoozedTill: ii.SnoozedTill,
		Source:      ii.Source,
	}
}

// InboxIssueLite is the triage envelope carried alongside a flattened issue.
type InboxIssueLite struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Status      InboxIssueStatus `json:"status" db:"status"`
	DuplicateTo *uuid.UUID       `json:"duplicate_to" db:"duplicate_to"`
	SnoozedTill *time.Time       `json:"snoozed_till" db:"snoozed_till"`
	Source      string           `json:"source" db:"source"`
}
