package domain

import (
	"time"

	"github.com/google/uuid"
)

// StateGroup buckets lifecycle states into the five fixed groups.
type StateGroup string

const (
	StateGroupBacklog   StateGroup = "backlog"
	StateGroupUnstarted StateGroup = "unstarted"
	StateGroupStarted   StateGroup = "started"
	StateGroupCompleted StateGroup = "completed"
	StateGroupCancelled StateGroup = "cancelled"
)

// Valid reports whether g is one of the fixed state groups.
func (g StateGroup) Valid() bool {
	switch g {
	case StateGroupBacklog, StateGroupUnstarted, StateGroupStarted,
		StateGroupCompleted, StateGroupCancelled:
		return true
	}
	return false
}

// Triage state constants. Every newly submitted inbox issue starts in this
// state; it is created lazily per project, idempotent on (project, name, group).
const (
	TriageStateName        = "Triage"
	TriageStateDescription = "Default state for managing all Inbox Issues"
	TriageStateColor       = "#ff7700"
)

// State is a named lifecycle stage an issue can be in.
type State struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ProjectID   uuid.UUID  `json:"project_id" db:"project_id"`
	Name        string     `json:"name" db:"name"`
	Group       StateGroup `json:"group" db:"group"`
	Color       string     `json:"color" db:"color"`
	Description string     `json:"description" db:"description"`
	Default     bool       `json:"default" db:"is_default"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
