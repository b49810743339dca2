package models

import "time"

// Priority is the urgency tier of an improvement or quality issue.
type Priority string

const (
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Rank orders priorities: P1 < P2 < P3.
func (p Priority) Rank() int {
	switch p {
	case P1:
		return 1
	case P2:
		return 2
	case P3:
		return 3
	}
	return 4
}

// Action identifiers attached to improvements.
const (
	ActionCommitChanges    = "commit-changes"
	ActionCreateInvariants = "create-invariants"
	ActionLinkOrphan       = "link-orphan"
	ActionFillSection      = "fill-section"
	ActionAddSection       = "add-section"
)

// Improvement is a proposed fix produced by an analysis run.
type Improvement struct {
	ID       string   `json:"id"`
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
	Path     string   `json:"path,omitempty"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail,omitempty"`
}

// Run is the outcome of one analysis pass over the vault.
type Run struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	NoteCount    int           `json:"note_count"`
	Improvements []Improvement `json:"improvements"`
}
