package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Priority is the fixed issue priority scale.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the five fixed priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Issue is a work item within a project. Description carries the rich-text
// document; DescriptionHTML and DescriptionStripped are its rendered and
// plain-text projections.
type Issue struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	ProjectID           uuid.UUID       `json:"project_id" db:"project_id"`
	StateID             *uuid.UUID      `json:"state" db:"state_id"`
	ParentID            *uuid.UUID      `json:"parent" db:"parent_id"`
	Name                string          `json:"name" db:"name"`
	Description         json.RawMessage `json:"description" db:"description"`
	DescriptionHTML     string          `json:"description_html" db:"description_html"`
	DescriptionStripped *string         `json:"description_stripped" db:"description_stripped"`
	Priority            Priority        `json:"priority" db:"priority"`
	CreatedByID         *uuid.UUID      `json:"created_by" db:"created_by"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// IssueDetail is the combined issue + triage-context projection returned by
// inbox-issue reads and listings. BridgeID is the InboxIssue identity, so a
// caller can correlate the flattened issue with its triage envelope without a
// second round trip.
type IssueDetail struct {
	Issue
	StateDetail     *State           `json:"state_detail"`
	SubIssuesCount  int              `json:"sub_issues_count" db:"sub_issues_count"`
	LinkCount       int              `json:"link_count" db:"link_count"`
	AttachmentCount int              `json:"attachment_count" db:"attachment_count"`
	BridgeID        uuid.UUID        `json:"bridge_id" db:"bridge_id"`
	IssueInbox      []InboxIssueLite `json:"issue_inbox"`
}
