package relevance

import (
	"context"

	"github.com/starford/curator/internal/apperr"
	"github.com/starford/curator/internal/linkgraph"
	"github.com/starford/curator/internal/models"
)

// Suggester picks related-note suggestions for a note.
type Suggester struct {
	scorer    Scorer
	threshold float64
	max       int
}

// NewSuggester returns a suggester keeping scores strictly above threshold,
// at most max of them (max <= 0 means no limit).
func NewSuggester(scorer Scorer, threshold float64, max int) *Suggester {
	return &Suggester{scorer: scorer, threshold: threshold, max: max}
}

// Suggest scores every other note in g against the note at path. Notes the
// source already links to are excluded.
func (s *Suggester) Suggest(ctx context.Context, g *linkgraph.Graph, path string) ([]models.Suggestion, error) {
	source, ok := g.Note(path)
	if !ok {
		return nil, apperr.ErrNotFound
	}

	linked := make(map[string]bool)
	for _, l := range g.Outgoing(path) {
		if l.Resolved != "" {
			linked[l.Resolved] = true
		}
	}
	var candidates []models.Note
	for _, n := range g.Notes() {
		if n.Path == path || linked[n.Path] {
			continue
		}
		candidates = append(candidates, n)
	}
	if len(candidates) == 0 {
		return []models.Suggestion{}, nil
	}

	scored, err := s.scorer.Score(ctx, source, candidates)
	if err != nil {
		return nil, err
	}
	out := make([]models.Suggestion, 0, len(scored))
	for _, sg := range scored {
		if sg.Score > s.threshold {
			out = append(out, sg)
		}
	}
	sortSuggestions(out)
	if s.max > 0 && len(out) > s.max {
		out = out[:s.max]
	}
	return out, nil
}
