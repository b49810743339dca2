package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/curator/internal/apperr"
	"github.com/starford/curator/internal/index"
	"github.com/starford/curator/internal/invariants"
	"github.com/starford/curator/internal/metrics"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/relevance"
)

// ApplyResult describes what an applied action changed.
type ApplyResult struct {
	Action string   `json:"action"`
	Path   string   `json:"path"`
	Added  []string `json:"added,omitempty"`
}

// Apply performs an automatable improvement action.
func (a *Analyzer) Apply(ctx context.Context, action, path string) (*ApplyResult, error) {
	var (
		res *ApplyResult
		err error
	)
	switch action {
	case models.ActionCreateInvariants:
		res, err = a.createInvariants()
	case models.ActionLinkOrphan:
		if path == "" {
			return nil, fmt.Errorf("analyzer: %s needs a path: %w", action, apperr.ErrInvalidInput)
		}
		if a.deps.Checker.IsMeta(path) || a.Generated(path) {
			return nil, fmt.Errorf("analyzer: %s is not a linkable note: %w", path, apperr.ErrInvalidInput)
		}
		var added []string
		added, err = a.AppendRelated(ctx, path)
		res = &ApplyResult{Action: action, Path: path, Added: added}
	default:
		return nil, fmt.Errorf("analyzer: %q: %w", action, apperr.ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordApplied(action)
	a.deps.Logger.Info("analyzer: applied",
		slog.String("action", action),
		slog.String("path", res.Path),
		slog.Int("added", len(res.Added)))
	return res, nil
}

func (a *Analyzer) createInvariants() (*ApplyResult, error) {
	if a.deps.Store.Exists(a.invariantsFile) {
		return nil, fmt.Errorf("analyzer: %s: %w", a.invariantsFile, apperr.ErrAlreadyExists)
	}
	if err := a.deps.Store.Write(a.invariantsFile, []byte(invariants.Template)); err != nil {
		return nil, err
	}
	return &ApplyResult{Action: models.ActionCreateInvariants, Path: a.invariantsFile}, nil
}

// AppendRelated writes the current related-note suggestions for path into
// its related-notes section and reindexes it. It returns the link names
// added.
func (a *Analyzer) AppendRelated(ctx context.Context, path string) ([]string, error) {
	g, err := a.Graph()
	if err != nil {
		return nil, err
	}
	suggestions, err := a.deps.Suggester.Suggest(ctx, g, path)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return []string{}, nil
	}
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		names = append(names, relevance.LinkName(g, s.Path))
	}

	data, err := a.deps.Store.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	updated, changed := relevance.AppendRelated(string(data), names)
	if !changed {
		return []string{}, nil
	}
	if err := a.deps.Store.Write(path, []byte(updated)); err != nil {
		return nil, err
	}
	if err := index.IndexFile(a.deps.Index, path, []byte(updated)); err != nil {
		a.deps.Logger.Warn("analyzer: reindex failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return names, nil
}
