package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/curator/internal/ai"
	"github.com/starford/curator/internal/metrics"
	"github.com/starford/curator/internal/models"
)

// Scorer rates candidates against a source note. Scores lie in [0,1].
type Scorer interface {
	Score(ctx context.Context, source models.Note, candidates []models.Note) ([]models.Suggestion, error)
}

func noteText(n models.Note) string {
	return n.DisplayName() + "\n" + n.Body
}

// KeywordScorer scores by the share of the source's keywords that appear in
// the candidate.
type KeywordScorer struct{}

// Score implements Scorer.
func (KeywordScorer) Score(_ context.Context, source models.Note, candidates []models.Note) ([]models.Suggestion, error) {
	kws := ExtractKeywords(noteText(source))
	out := make([]models.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		score, shared := keywordScore(kws, c)
		s := models.Suggestion{
			Path:   c.Path,
			Title:  c.DisplayName(),
			Score:  score,
			Source: models.SourceKeyword,
		}
		if len(shared) > 0 {
			if len(shared) > 5 {
				shared = shared[:5]
			}
			s.Reason = "shared keywords: " + strings.Join(shared, ", ")
		}
		out = append(out, s)
	}
	return out, nil
}

func keywordScore(kws []string, candidate models.Note) (float64, []string) {
	if len(kws) == 0 {
		return 0, nil
	}
	set := tokenSet(noteText(candidate))
	var shared []string
	for _, k := range kws {
		if _, ok := set[k]; ok {
			shared = append(shared, k)
		}
	}
	return float64(len(shared)) / float64(len(kws)), shared
}

const (
	defaultPrefilter = 20
	excerptRunes     = 300
)

// AIScorer asks a Generator to rate keyword-prefiltered candidates. Any
// failure falls back to keyword scores.
type AIScorer struct {
	gen       ai.Generator
	logger    *slog.Logger
	prefilter int
	fallback  KeywordScorer
}

// NewAIScorer returns an AI scorer. A nil generator always falls back.
func NewAIScorer(gen ai.Generator, logger *slog.Logger) *AIScorer {
	return &AIScorer{gen: gen, logger: logger, prefilter: defaultPrefilter}
}

type aiScore struct {
	Path   string  `json:"path"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Score implements Scorer.
func (s *AIScorer) Score(ctx context.Context, source models.Note, candidates []models.Note) ([]models.Suggestion, error) {
	base, _ := s.fallback.Score(ctx, source, candidates)
	if s.gen == nil {
		s.fail("no_generator", source.Path, nil)
		return base, nil
	}

	shortlist := prefilter(base, s.prefilter)
	if len(shortlist) == 0 {
		return base, nil
	}
	byPath := make(map[string]models.Note, len(candidates))
	for _, c := range candidates {
		byPath[c.Path] = c
	}

	reply, err := s.gen.Generate(ctx, buildPrompt(source, shortlist, byPath))
	if err != nil {
		s.fail("generate", source.Path, err)
		return base, nil
	}
	raw, err := ai.ExtractJSON(reply)
	if err != nil {
		s.fail("parse", source.Path, err)
		return base, nil
	}
	var scores []aiScore
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		s.fail("parse", source.Path, err)
		return base, nil
	}

	out := make([]models.Suggestion, 0, len(scores))
	seen := make(map[string]bool)
	for _, sc := range scores {
		c, ok := byPath[sc.Path]
		if !ok || seen[sc.Path] {
			continue
		}
		seen[sc.Path] = true
		out = append(out, models.Suggestion{
			Path:   c.Path,
			Title:  c.DisplayName(),
			Score:  clamp(sc.Score),
			Reason: sc.Reason,
			Source: models.SourceAI,
		})
	}
	return out, nil
}

func (s *AIScorer) fail(reason, path string, err error) {
	metrics.RecordAIFallback(reason)
	attrs := []any{slog.String("path", path), slog.String("reason", reason)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.Warn("relevance: ai scoring fell back to keywords", attrs...)
}

// prefilter keeps the n best keyword matches with a positive score.
func prefilter(base []models.Suggestion, n int) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(base))
	for _, s := range base {
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	sortSuggestions(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func buildPrompt(source models.Note, shortlist []models.Suggestion, byPath map[string]models.Note) string {
	var b strings.Builder
	b.WriteString("Rate how related each candidate note is to the source note.\n")
	b.WriteString("Reply with only a JSON array: [{\"path\": string, \"score\": number between 0 and 1, \"reason\": string}].\n\n")
	fmt.Fprintf(&b, "Source note %q:\n%s\n\nCandidates:\n", source.DisplayName(), excerpt(source.Body))
	for _, s := range shortlist {
		fmt.Fprintf(&b, "- path: %s\n  title: %s\n  excerpt: %s\n", s.Path, s.Title, excerpt(byPath[s.Path].Body))
	}
	return b.String()
}

func excerpt(body string) string {
	r := []rune(strings.Join(strings.Fields(body), " "))
	if len(r) > excerptRunes {
		return string(r[:excerptRunes]) + "..."
	}
	return string(r)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// sortSuggestions orders by score descending, then path.
func sortSuggestions(s []models.Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Path < s[j].Path
	})
}
