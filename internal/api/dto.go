package api

import (
	"github.com/starford/curator/internal/activity"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/vaultservice"
)

// OrphansResponse lists isolated notes.
type OrphansResponse struct {
	Orphans []vaultservice.NoteRef `json:"orphans" validate:"required"`
	Count   int                    `json:"count" example:"3" validate:"required"`
}

// BrokenLinksResponse is the broken-link scan (aliased from the domain layer).
type BrokenLinksResponse = vaultservice.BrokenReport

// BacklinksResponse lists notes linking to a path.
type BacklinksResponse struct {
	Path      string   `json:"path" example:"notes/hello.md" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// RelatedResponse lists related-note suggestions.
type RelatedResponse struct {
	Path        string              `json:"path" example:"notes/hello.md" validate:"required"`
	Suggestions []models.Suggestion `json:"suggestions" validate:"required"`
}

// AppendRelatedResponse reports the links written into a note.
type AppendRelatedResponse struct {
	Path  string   `json:"path" example:"notes/hello.md" validate:"required"`
	Added []string `json:"added" validate:"required"`
}

// InvariantsResponse lists parsed invariants.
type InvariantsResponse struct {
	File       string             `json:"file" example:"0_Invariants.md"`
	Invariants []models.Invariant `json:"invariants" validate:"required"`
}

// InvariantCheckResponse holds per-invariant results for one note.
type InvariantCheckResponse struct {
	Path    string                   `json:"path" example:"notes/hello.md" validate:"required"`
	Results []models.InvariantResult `json:"results" validate:"required"`
}

// ApplyRequest is the request body for applying an improvement.
type ApplyRequest = vaultservice.ApplyRequest

// ChangesResponse lists recent vault changes.
type ChangesResponse struct {
	Changes []models.VaultChange `json:"changes" validate:"required"`
}

// ActivityResponse lists activity log entries.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries" validate:"required"`
}

// WeeklySummaryResponse reports the written weekly summary.
type WeeklySummaryResponse struct {
	Path    string          `json:"path" example:"Weekly_Summary_2026-W42.md" validate:"required"`
	Summary activity.Weekly `json:"summary" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
