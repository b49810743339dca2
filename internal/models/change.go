package models

import "time"

// ChangeType is the kind of vault file event.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// VaultChange records one create/modify/delete event on a vault file.
type VaultChange struct {
	Type      ChangeType `json:"type"`
	Filename  string     `json:"filename"`
	Path      string     `json:"path"`
	Timestamp time.Time  `json:"timestamp"`
}
