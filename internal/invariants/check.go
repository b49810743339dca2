package invariants

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/curator/internal/ai"
	"github.com/starford/curator/internal/models"
)

const (
	checkConcurrency = 4
	maxNoteRunes     = 4000
)

// Checker evaluates notes against invariants.
type Checker struct {
	gen    ai.Generator
	logger *slog.Logger
}

// NewChecker returns a checker. With a nil generator every result is
// unchecked.
func NewChecker(gen ai.Generator, logger *slog.Logger) *Checker {
	return &Checker{gen: gen, logger: logger}
}

type verdict struct {
	Violated bool   `json:"violated"`
	Reason   string `json:"reason"`
}

// Check runs one check per invariant concurrently. Results keep the order of
// invs; a failed check is reported with status error and does not affect the
// others.
func (c *Checker) Check(ctx context.Context, note models.Note, invs []models.Invariant) []models.InvariantResult {
	results := make([]models.InvariantResult, len(invs))
	if c.gen == nil {
		for i, inv := range invs {
			results[i] = models.InvariantResult{
				Invariant: inv,
				Status:    models.InvariantUnchecked,
				Reason:    "no ai generator configured",
			}
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for i, inv := range invs {
		g.Go(func() error {
			results[i] = c.checkOne(gctx, note, inv)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Checker) checkOne(ctx context.Context, note models.Note, inv models.Invariant) models.InvariantResult {
	res := models.InvariantResult{Invariant: inv}
	reply, err := c.gen.Generate(ctx, prompt(note, inv))
	if err == nil {
		var raw string
		raw, err = ai.ExtractJSON(reply)
		if err == nil {
			var v verdict
			if err = json.Unmarshal([]byte(raw), &v); err == nil {
				res.Status = models.InvariantPass
				if v.Violated {
					res.Status = models.InvariantViolated
				}
				res.Reason = v.Reason
				return res
			}
		}
	}
	c.logger.Warn("invariants: check failed",
		slog.String("path", note.Path),
		slog.Int("invariant", inv.Number),
		slog.String("error", err.Error()))
	res.Status = models.InvariantError
	res.Reason = err.Error()
	return res
}

func prompt(note models.Note, inv models.Invariant) string {
	body := []rune(note.Body)
	if len(body) > maxNoteRunes {
		body = body[:maxNoteRunes]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Check whether the note below violates this rule.\n\nRule %d: %s\n", inv.Number, inv.Name)
	if inv.Principle != "" {
		fmt.Fprintf(&b, "Principle: %s\n", inv.Principle)
	}
	if inv.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", inv.Description)
	}
	fmt.Fprintf(&b, "\nNote %q:\n%s\n\n", note.DisplayName(), string(body))
	b.WriteString(`Reply with only JSON: {"violated": true|false, "reason": "one sentence"}`)
	return b.String()
}
