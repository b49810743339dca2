package models

// Suggestion sources.
const (
	SourceKeyword = "keyword"
	SourceAI      = "ai"
)

// Suggestion is a related-note candidate with its relevance score in [0,1].
type Suggestion struct {
	Path   string  `json:"path"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
	Source string  `json:"source"`
}
