// Package analyzer produces prioritised improvement proposals for the vault
// and applies the ones that can be automated.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/curator/internal/activity"
	"github.com/starford/curator/internal/changes"
	"github.com/starford/curator/internal/index"
	"github.com/starford/curator/internal/linkgraph"
	"github.com/starford/curator/internal/metrics"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/parser"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/relevance"
	"github.com/starford/curator/internal/storage"
)

// Run triggers.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// Deps are the collaborators an Analyzer reads from and writes through.
type Deps struct {
	Store     storage.Provider
	Index     index.NoteIndex
	Checker   *quality.Checker
	Suggester *relevance.Suggester
	Changes   *changes.Ring
	Graph     linkgraph.Options
	Logger    *slog.Logger
	// ActivityFile is the vault-relative activity log the service writes.
	ActivityFile string
}

// Analyzer runs improvement analyses.
type Analyzer struct {
	deps           Deps
	invariantsFile string
	now            func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// New returns an analyzer. invariantsFile is the vault-relative path of the
// invariants file.
func New(deps Deps, invariantsFile string) *Analyzer {
	return &Analyzer{deps: deps, invariantsFile: invariantsFile, now: time.Now}
}

// Graph builds a link graph from the current index.
func (a *Analyzer) Graph() (*linkgraph.Graph, error) {
	notes, err := a.deps.Index.Notes()
	if err != nil {
		return nil, err
	}
	return linkgraph.New(notes, a.deps.Graph), nil
}

// Generated reports whether p is a file curator writes itself: the
// invariants file, the activity log or a weekly summary. Generated files are
// never link or section candidates.
func (a *Analyzer) Generated(p string) bool {
	return (a.invariantsFile != "" && p == a.invariantsFile) || a.toolOutput(p)
}

// toolOutput reports whether p is only ever written by curator.
func (a *Analyzer) toolOutput(p string) bool {
	return (a.deps.ActivityFile != "" && p == a.deps.ActivityFile) || activity.IsWeeklySummary(p)
}

// Isolated returns the isolated notes that are worth linking: meta and
// generated notes are left out.
func (a *Analyzer) Isolated(g *linkgraph.Graph) []models.Note {
	var out []models.Note
	for _, n := range g.Isolated() {
		if a.deps.Checker.IsMeta(n.Path) || a.Generated(n.Path) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Run analyses the vault and returns improvements sorted by priority, then
// path.
func (a *Analyzer) Run(ctx context.Context, trigger string) (*models.Run, error) {
	started := a.now()
	g, err := a.Graph()
	if err != nil {
		return nil, fmt.Errorf("analyzer: load notes: %w", err)
	}

	a.mu.Lock()
	since := a.lastRun
	a.lastRun = started
	a.mu.Unlock()

	var imps []models.Improvement
	imps = append(imps, a.commitNudge(since)...)
	imps = append(imps, a.invariantsCheck()...)

	isolated := a.Isolated(g)
	for _, n := range isolated {
		imps = append(imps, models.Improvement{
			Priority: models.P2,
			Action:   models.ActionLinkOrphan,
			Path:     n.Path,
			Title:    "Link isolated note " + n.DisplayName(),
			Detail:   "no links to or from other notes",
		})
	}

	for _, n := range g.Notes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if g.Ignored(n.Path) || a.deps.Checker.IsMeta(n.Path) || a.Generated(n.Path) {
			continue
		}
		for _, is := range a.deps.Checker.CheckSections(parser.ExtractSections(n.Body)) {
			switch is.Code {
			case quality.CodeEmptySection:
				imps = append(imps, models.Improvement{
					Priority: models.P1,
					Action:   models.ActionFillSection,
					Path:     n.Path,
					Title:    fmt.Sprintf("Fill section %q in %s", is.Section, n.DisplayName()),
					Detail:   is.Message,
				})
			case quality.CodeMissingSection:
				imps = append(imps, models.Improvement{
					Priority: models.P2,
					Action:   models.ActionAddSection,
					Path:     n.Path,
					Title:    fmt.Sprintf("Add section %q to %s", is.Section, n.DisplayName()),
					Detail:   is.Message,
				})
			}
		}
	}

	sortImprovements(imps)
	priorities := make([]string, len(imps))
	for i := range imps {
		imps[i].ID = uuid.NewString()
		priorities[i] = string(imps[i].Priority)
	}
	if imps == nil {
		imps = []models.Improvement{}
	}

	run := &models.Run{
		ID:           uuid.NewString(),
		StartedAt:    started,
		FinishedAt:   a.now(),
		NoteCount:    g.Len(),
		Improvements: imps,
	}
	metrics.RecordRun(trigger, priorities)
	metrics.SetIsolated(len(isolated))
	a.deps.Logger.Info("analyzer: run complete",
		slog.String("run_id", run.ID),
		slog.String("trigger", trigger),
		slog.Int("notes", run.NoteCount),
		slog.Int("improvements", len(imps)))
	return run, nil
}

// commitNudge proposes committing when the vault is a git repository and
// files changed since the previous run. Curator's own log and summary writes
// do not count.
func (a *Analyzer) commitNudge(since time.Time) []models.Improvement {
	if a.deps.Changes == nil || !a.deps.Store.Exists(".git") {
		return nil
	}
	n := 0
	for _, c := range a.deps.Changes.List(since) {
		if !a.toolOutput(c.Path) {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return []models.Improvement{{
		Priority: models.P3,
		Action:   models.ActionCommitChanges,
		Title:    "Commit vault changes",
		Detail:   fmt.Sprintf("%d file changes since the last run", n),
	}}
}

func (a *Analyzer) invariantsCheck() []models.Improvement {
	if a.invariantsFile == "" || a.deps.Store.Exists(a.invariantsFile) {
		return nil
	}
	return []models.Improvement{{
		Priority: models.P1,
		Action:   models.ActionCreateInvariants,
		Path:     a.invariantsFile,
		Title:    "Create the invariants file",
		Detail:   "notes cannot be checked against invariants until " + a.invariantsFile + " exists",
	}}
}

func sortImprovements(imps []models.Improvement) {
	sort.SliceStable(imps, func(i, j int) bool {
		a, b := imps[i], imps[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Action < b.Action
	})
}
