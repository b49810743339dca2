// Package vaultservice coordinates the vault, its index and the analysis
// packages for the HTTP API, the MCP server and the CLI.
package vaultservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/starford/curator/internal/activity"
	"github.com/starford/curator/internal/analyzer"
	"github.com/starford/curator/internal/apperr"
	"github.com/starford/curator/internal/changes"
	"github.com/starford/curator/internal/index"
	"github.com/starford/curator/internal/invariants"
	"github.com/starford/curator/internal/linkgraph"
	"github.com/starford/curator/internal/metrics"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/relevance"
	"github.com/starford/curator/internal/storage"
)

// Publisher receives vault changes and finished runs, e.g. the SSE broker.
type Publisher interface {
	PublishChange(models.VaultChange)
	PublishRun(*models.Run)
}

// Deps wires a Service. Publisher may be nil.
type Deps struct {
	Store          storage.Provider
	Index          index.NoteIndex
	Graph          linkgraph.Options
	Checker        *quality.Checker
	Suggester      *relevance.Suggester
	Invariants     *invariants.Checker
	InvariantsFile string
	Activity       *activity.Log
	Changes        *changes.Ring
	Publisher      Publisher
	Logger         *slog.Logger
}

// NoteRef identifies a note in list responses.
type NoteRef struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// BrokenReport is the broken-link scan result.
type BrokenReport struct {
	Summary linkgraph.BrokenSummary `json:"summary"`
	Links   []linkgraph.BrokenLink  `json:"links"`
}

// ApplyRequest selects an improvement either by the ID it had in the latest
// run or by action and path.
type ApplyRequest struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Service is the application facade over the vault.
type Service struct {
	deps     Deps
	analyzer *analyzer.Analyzer
	now      func() time.Time

	mu      sync.Mutex
	lastRun *models.Run
	applied []string
}

// New creates a service.
func New(deps Deps) *Service {
	var activityFile string
	if deps.Activity != nil {
		activityFile = deps.Activity.File()
	}
	an := analyzer.New(analyzer.Deps{
		Store:     deps.Store,
		Index:     deps.Index,
		Checker:   deps.Checker,
		Suggester: deps.Suggester,
		Changes:   deps.Changes,
		Graph:     deps.Graph,
		Logger:    deps.Logger,

		ActivityFile: activityFile,
	}, deps.InvariantsFile)
	return &Service{deps: deps, analyzer: an, now: time.Now}
}

// Graph builds the link graph from the current index.
func (s *Service) Graph(_ context.Context) (*linkgraph.Graph, error) {
	return s.analyzer.Graph()
}

// Orphans returns the isolated notes ordered by path.
func (s *Service) Orphans(ctx context.Context) ([]NoteRef, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	isolated := s.analyzer.Isolated(g)
	metrics.SetIsolated(len(isolated))
	out := make([]NoteRef, 0, len(isolated))
	for _, n := range isolated {
		out = append(out, NoteRef{Path: n.Path, Title: n.DisplayName()})
	}
	return out, nil
}

// BrokenLinks classifies every unresolved wiki-link.
func (s *Service) BrokenLinks(ctx context.Context) (*BrokenReport, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	links := g.BrokenLinks()
	if links == nil {
		links = []linkgraph.BrokenLink{}
	}
	return &BrokenReport{Summary: linkgraph.Summarize(links), Links: links}, nil
}

// Quality scores one note.
func (s *Service) Quality(_ context.Context, path string) (*quality.NoteReport, error) {
	n, err := s.deps.Index.GetNote(path)
	if err != nil {
		return nil, err
	}
	r := s.deps.Checker.Report(*n)
	return &r, nil
}

// QualityReport scores every note.
func (s *Service) QualityReport(_ context.Context) (quality.Summary, error) {
	notes, err := s.deps.Index.Notes()
	if err != nil {
		return quality.Summary{}, err
	}
	return s.deps.Checker.CheckAll(notes), nil
}

// Related returns related-note suggestions for path.
func (s *Service) Related(ctx context.Context, path string) ([]models.Suggestion, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return s.deps.Suggester.Suggest(ctx, g, path)
}

// AppendRelated writes the suggestions for path into its related-notes
// section and returns the link names added.
func (s *Service) AppendRelated(ctx context.Context, path string) ([]string, error) {
	return s.analyzer.AppendRelated(ctx, path)
}

// VaultName returns the vault directory's base name.
func (s *Service) VaultName() string { return filepath.Base(s.deps.Store.Root()) }

// InvariantsFile returns the vault-relative invariants path.
func (s *Service) InvariantsFile() string { return s.deps.InvariantsFile }

// Invariants loads the invariants file.
func (s *Service) Invariants(_ context.Context) ([]models.Invariant, error) {
	return invariants.Load(s.deps.Store, s.deps.InvariantsFile)
}

// CheckInvariants checks the note at path against every invariant.
func (s *Service) CheckInvariants(ctx context.Context, path string) ([]models.InvariantResult, error) {
	invs, err := s.Invariants(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.deps.Index.GetNote(path)
	if err != nil {
		return nil, err
	}
	return s.deps.Invariants.Check(ctx, *n, invs), nil
}

// Analyze runs the improvement analysis, publishes it and records the day in
// the activity log. A failed log write does not fail the run.
func (s *Service) Analyze(ctx context.Context, trigger string) (*models.Run, error) {
	run, err := s.analyzer.Run(ctx, trigger)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastRun = run
	s.applied = nil
	s.mu.Unlock()

	s.recordActivity(ctx, run, nil)
	if s.deps.Publisher != nil {
		s.deps.Publisher.PublishRun(run)
	}
	return run, nil
}

// LastRun returns the most recent run, or nil.
func (s *Service) LastRun() *models.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Apply carries out an improvement. Selecting by ID marks it done in today's
// activity log entry.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*analyzer.ApplyResult, error) {
	action, path := req.Action, req.Path
	var run *models.Run
	if req.ID != "" {
		s.mu.Lock()
		run = s.lastRun
		s.mu.Unlock()
		imp, ok := findImprovement(run, req.ID)
		if !ok {
			return nil, fmt.Errorf("vaultservice: improvement %s: %w", req.ID, apperr.ErrNotFound)
		}
		action, path = imp.Action, imp.Path
	}
	if action == "" {
		return nil, fmt.Errorf("vaultservice: action or id required: %w", apperr.ErrInvalidInput)
	}

	res, err := s.analyzer.Apply(ctx, action, path)
	if err != nil {
		return nil, err
	}
	if run != nil {
		s.mu.Lock()
		fresh := !slices.Contains(s.applied, req.ID)
		if fresh {
			s.applied = append(s.applied, req.ID)
		}
		applied := slices.Clone(s.applied)
		s.mu.Unlock()
		if fresh {
			s.recordActivity(ctx, run, applied)
		}
	}
	return res, nil
}

func findImprovement(run *models.Run, id string) (models.Improvement, bool) {
	if run == nil {
		return models.Improvement{}, false
	}
	for _, imp := range run.Improvements {
		if imp.ID == id {
			return imp, true
		}
	}
	return models.Improvement{}, false
}

func (s *Service) recordActivity(ctx context.Context, run *models.Run, applied []string) {
	if s.deps.Activity == nil {
		return
	}
	day, err := s.deps.Activity.Record(ctx, run.StartedAt, run.Improvements, applied)
	if err != nil {
		s.deps.Logger.Warn("vaultservice: activity log write failed", slog.String("error", err.Error()))
		return
	}
	s.deps.Logger.Debug("vaultservice: activity recorded", slog.Int("day", day))
}

// DailyRun is the scheduled task. It is skipped when the activity log
// already has an entry for now's date, e.g. from a manual run.
func (s *Service) DailyRun(ctx context.Context, now time.Time) error {
	if last := s.LastActivity(); !last.IsZero() && sameDay(last, now) {
		s.deps.Logger.Info("vaultservice: daily run skipped, already recorded today",
			slog.String("date", now.Format(time.DateOnly)))
		return nil
	}
	_, err := s.Analyze(ctx, analyzer.TriggerSchedule)
	return err
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LastActivity returns the date of the newest activity log entry, or zero.
func (s *Service) LastActivity() time.Time {
	if s.deps.Activity == nil {
		return time.Time{}
	}
	entries, err := s.deps.Activity.Entries()
	if err != nil {
		return time.Time{}
	}
	var last time.Time
	for _, e := range entries {
		if e.Date.After(last) {
			last = e.Date
		}
	}
	return last
}

// RecordChange stores a watcher change and forwards it to the publisher.
func (s *Service) RecordChange(c models.VaultChange) {
	s.deps.Changes.Record(c)
	metrics.RecordChange(string(c.Type))
	if s.deps.Publisher != nil {
		s.deps.Publisher.PublishChange(c)
	}
}

// Changes returns recorded changes after since.
func (s *Service) Changes(_ context.Context, since time.Time) []models.VaultChange {
	out := s.deps.Changes.List(since)
	if out == nil {
		return []models.VaultChange{}
	}
	return out
}

// Activity returns the parsed activity log.
func (s *Service) Activity(_ context.Context) ([]activity.Entry, error) {
	entries, err := s.deps.Activity.Entries()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	return entries, nil
}

// WeeklySummary writes last week's summary into the vault.
func (s *Service) WeeklySummary(_ context.Context) (string, activity.Weekly, error) {
	return s.deps.Activity.WriteWeekly(s.now())
}

// Backlinks returns the notes whose links resolve to path.
func (s *Service) Backlinks(ctx context.Context, path string) ([]string, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := g.Note(path); !ok {
		return nil, apperr.ErrNotFound
	}
	bl := g.Backlinks(path)
	if bl == nil {
		bl = []string{}
	}
	return bl, nil
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.deps.Index, path, data)
}

// Search delegates text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.deps.Index.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, nil
}
