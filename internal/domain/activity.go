package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityType discriminates issue activity events.
type ActivityType string

const (
	ActivityIssueCreated ActivityType = "issue.activity.created"
	ActivityIssueUpdated ActivityType = "issue.activity.updated"
)

// ActivityEvent is the asynchronous record of an issue mutation. PriorSnapshot
// is nil for creation events; Epoch is the unix timestamp at mutation time.
type ActivityEvent struct {
	Type          ActivityType    `json:"type"`
	ActorID       uuid.UUID       `json:"actor_id"`
	IssueID       uuid.UUID       `json:"issue_id"`
	ProjectID     uuid.UUID       `json:"project_id"`
	RequestedData json.RawMessage `json:"requested_data"`
	PriorSnapshot json.RawMessage `json:"current_instance"`
	Epoch         int64           `json:"epoch"`
}

// IssueActivity is the persisted form of an ActivityEvent.
type IssueActivity struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	IssueID       uuid.UUID       `json:"issue_id" db:"issue_id"`
	ProjectID     uuid.UUID       `json:"project_id" db:"project_id"`
	ActorID       uuid.UUID       `json:"actor_id" db:"actor_id"`
	Type          ActivityType    `json:"type" db:"type"`
	RequestedData json.RawMessage `json:"requested_data" db:"requested_data"`
	PriorSnapshot json.RawMessage `json:"prior_snapshot" db:"prior_snapshot"`
	Epoch         int64           `json:"epoch" db:"epoch"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
