// Package models defines the domain types shared across curator packages.
package models

import "time"

// Note represents a parsed Markdown file in the vault.
type Note struct {
	Path        string                 `json:"path"`
	Title       string                 `json:"title,omitempty"`
	Body        string                 `json:"-"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Links       []string               `json:"links,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Checksum    string                 `json:"checksum"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Stem returns the file name without directory and .md extension.
func (n Note) Stem() string {
	return Stem(n.Path)
}

// DisplayName returns the title, or the stem when the note has no title.
func (n Note) DisplayName() string {
	if n.Title != "" {
		return n.Title
	}
	return n.Stem()
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a directed edge between two notes. Resolved is empty when
// the target does not match any note in the vault.
type Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Resolved string `json:"resolved,omitempty"`
}
