package vaultservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/curator/internal/activity"
	"github.com/starford/curator/internal/analyzer"
	"github.com/starford/curator/internal/apperr"
	"github.com/starford/curator/internal/changes"
	"github.com/starford/curator/internal/index"
	"github.com/starford/curator/internal/invariants"
	"github.com/starford/curator/internal/linkgraph"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/relevance"
	"github.com/starford/curator/internal/storage"
	"github.com/starford/curator/internal/testutil"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.VaultChange
	runs    []*models.Run
}

func (p *recordingPublisher) PublishChange(c models.VaultChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func (p *recordingPublisher) PublishRun(r *models.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, r)
}

type fixture struct {
	svc   *Service
	store storage.Provider
	db    *index.DB
	pub   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.WriteNotes(t, store, db, map[string]string{
		"hub.md":            "# Hub\n\nSee [[Spoke]] and [[Gone]] and [[Old]].\n",
		"notes/Spoke.md":    "# Spoke\n\nBack to [[hub]].\n\n## Summary\n\n",
		"lonely.md":         "# Lonely\n\nentropy information theory\n",
		"kin.md":            "# Kin\n\nentropy information\n\n[[hub]]\n",
		"archive/Old.md":    "# Old\n",
		"templates/tmpl.md": "# Template\n",
	})
	pub := &recordingPublisher{}
	logger := testutil.QuietLogger()
	svc := New(Deps{
		Store: store,
		Index: db,
		Graph: linkgraph.Options{
			IgnoreFolders: []string{"templates"},
			ArchiveFolder: "archive",
		},
		Checker:        quality.NewChecker(quality.Rules{RequiredSections: []string{"Summary"}}),
		Suggester:      relevance.NewSuggester(relevance.KeywordScorer{}, 0.1, 5),
		Invariants:     invariants.NewChecker(nil, logger),
		InvariantsFile: "0_Invariants.md",
		Activity:       activity.New(store, "0_Activity_Log.md"),
		Changes:        changes.New(10, time.Hour),
		Publisher:      pub,
		Logger:         logger,
	})
	return &fixture{svc: svc, store: store, db: db, pub: pub}
}

func TestOrphansAndBacklinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orphans, err := f.svc.Orphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// archive/Old.md is linked from hub.md, so only lonely.md is isolated.
	want := []NoteRef{{Path: "lonely.md", Title: "Lonely"}}
	if diff := cmp.Diff(want, orphans); diff != "" {
		t.Errorf("orphans mismatch (-want +got):\n%s", diff)
	}

	bl, err := f.svc.Backlinks(ctx, "hub.md")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"kin.md", "notes/Spoke.md"}, bl); diff != "" {
		t.Errorf("backlinks mismatch (-want +got):\n%s", diff)
	}
	if _, err := f.svc.Backlinks(ctx, "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown note err = %v", err)
	}
}

func TestBrokenLinks(t *testing.T) {
	f := newFixture(t)
	rep, err := f.svc.BrokenLinks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Total != 2 || rep.Summary.Files != 1 {
		t.Errorf("summary = %+v", rep.Summary)
	}
	got := map[string]string{}
	for _, l := range rep.Links {
		got[l.Target] = l.Category
	}
	want := map[string]string{"Gone": linkgraph.CategoryMissing, "Old": linkgraph.CategoryArchived}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestQuality(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rep, err := f.svc.Quality(ctx, "notes/Spoke.md")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, is := range rep.Issues {
		if is.Code == quality.CodeEmptySection && is.Section == "Summary" {
			found = true
		}
	}
	if !found {
		t.Errorf("empty Summary not reported: %+v", rep.Issues)
	}
	if _, err := f.svc.Quality(ctx, "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing note err = %v", err)
	}

	sum, err := f.svc.QualityReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalFiles != 6 {
		t.Errorf("total files = %d, want 6", sum.TotalFiles)
	}
}

func TestRelatedAndAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sugs, err := f.svc.Related(ctx, "lonely.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(sugs) == 0 || sugs[0].Path != "kin.md" {
		t.Fatalf("suggestions = %+v", sugs)
	}

	added, err := f.svc.AppendRelated(ctx, "lonely.md")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"kin"}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	bl, err := f.svc.Backlinks(ctx, "kin.md")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"lonely.md"}, bl); diff != "" {
		t.Errorf("index not refreshed after append (-want +got):\n%s", diff)
	}
}

func TestInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.CheckInvariants(ctx, "hub.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing invariants file err = %v", err)
	}
	if _, err := f.svc.Apply(ctx, ApplyRequest{Action: models.ActionCreateInvariants}); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.CheckInvariants(ctx, "hub.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Fatalf("results = %d, want 3", len(res))
	}
	for _, r := range res {
		if r.Status != models.InvariantUnchecked {
			t.Errorf("status = %s, want unchecked", r.Status)
		}
	}
}

func TestAnalyzeAndApplyByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run, err := f.svc.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.pub.runs) != 1 || f.pub.runs[0].ID != run.ID {
		t.Errorf("run not published: %+v", f.pub.runs)
	}

	var target models.Improvement
	for _, imp := range run.Improvements {
		if imp.Action == models.ActionCreateInvariants {
			target = imp
		}
	}
	if target.ID == "" {
		t.Fatalf("no create-invariants proposal in %+v", run.Improvements)
	}
	if _, err := f.svc.Apply(ctx, ApplyRequest{ID: target.ID}); err != nil {
		t.Fatal(err)
	}

	entries, err := f.svc.Activity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Suggestions != len(run.Improvements) || entries[0].Completed != 1 {
		t.Errorf("entry = %+v", entries[0])
	}
	if !f.svc.LastActivity().Equal(entries[0].Date) {
		t.Errorf("last activity = %v", f.svc.LastActivity())
	}

	if _, err := f.svc.Apply(ctx, ApplyRequest{ID: "unknown"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
	if _, err := f.svc.Apply(ctx, ApplyRequest{}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty request err = %v", err)
	}
}

func TestRecordChange(t *testing.T) {
	f := newFixture(t)
	before := time.Now().Add(-time.Second)
	f.svc.RecordChange(models.VaultChange{Type: models.ChangeCreate, Path: "x.md", Filename: "x.md"})

	got := f.svc.Changes(context.Background(), before)
	if len(got) != 1 || got[0].Path != "x.md" {
		t.Errorf("changes = %+v", got)
	}
	if len(f.pub.changes) != 1 {
		t.Errorf("published = %+v", f.pub.changes)
	}
	if got := f.svc.Changes(context.Background(), time.Now().Add(time.Minute)); len(got) != 0 {
		t.Errorf("changes after future since = %+v", got)
	}
}

func TestWeeklySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local) }

	if _, _, err := f.svc.WeeklySummary(ctx); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("empty week err = %v", err)
	}

	log := activity.New(f.store, "0_Activity_Log.md")
	day := time.Date(2026, 10, 13, 9, 0, 0, 0, time.Local)
	if _, err := log.Record(ctx, day, []models.Improvement{{ID: "a", Priority: models.P1, Action: models.ActionFillSection}}, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	path, wk, err := f.svc.WeeklySummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if path != "Weekly_Summary_2026-W42.md" || wk.TotalDays != 1 || wk.TotalCompleted != 1 {
		t.Errorf("path = %s, weekly = %+v", path, wk)
	}
	data, err := f.store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Weekly Summary 2026-W42") {
		t.Errorf("summary content = %q", data)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Search(context.Background(), "entropy", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Errorf("results = %+v", res)
	}
	res, err = f.svc.Search(context.Background(), "zzz-nothing", 10)
	if err != nil || res == nil || len(res) != 0 {
		t.Errorf("empty search = %+v, %v", res, err)
	}
}

func TestAnalyze_GeneratedFilesNotProposed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Now().AddDate(0, 0, 7) }

	run, err := f.svc.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	for _, imp := range run.Improvements {
		if imp.Action == models.ActionCreateInvariants {
			if _, err := f.svc.Apply(ctx, ApplyRequest{ID: imp.ID}); err != nil {
				t.Fatal(err)
			}
		}
	}
	summary, _, err := f.svc.WeeklySummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := index.Sync(f.db, f.store, testutil.QuietLogger()); err != nil {
		t.Fatal(err)
	}

	generated := map[string]bool{"0_Invariants.md": true, "0_Activity_Log.md": true, summary: true}
	for p := range generated {
		if _, err := f.db.GetNote(p); err != nil {
			t.Fatalf("%s not indexed: %v", p, err)
		}
	}

	run, err = f.svc.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	for _, imp := range run.Improvements {
		if generated[imp.Path] {
			t.Errorf("proposal for generated file: %+v", imp)
		}
	}
	orphans, err := f.svc.Orphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range orphans {
		if generated[o.Path] {
			t.Errorf("generated file reported as orphan: %+v", o)
		}
	}
}

func TestDailyRun_AfterManualRunSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run, err := f.svc.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	var target models.Improvement
	for _, imp := range run.Improvements {
		if imp.Action == models.ActionCreateInvariants {
			target = imp
		}
	}
	if _, err := f.svc.Apply(ctx, ApplyRequest{ID: target.ID}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DailyRun(ctx, run.StartedAt); err != nil {
		t.Fatal(err)
	}
	if len(f.pub.runs) != 1 {
		t.Errorf("scheduled run should be skipped, published %d runs", len(f.pub.runs))
	}
	entries, err := f.svc.Activity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Completed != 1 {
		t.Errorf("entries = %+v", entries)
	}

	if err := f.svc.DailyRun(ctx, run.StartedAt.AddDate(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if len(f.pub.runs) != 2 {
		t.Errorf("next day's scheduled run should go ahead, published %d runs", len(f.pub.runs))
	}
}

func TestApplyByID_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run, err := f.svc.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	var target models.Improvement
	for _, imp := range run.Improvements {
		if imp.Action == models.ActionLinkOrphan && imp.Path == "lonely.md" {
			target = imp
		}
	}
	if target.ID == "" {
		t.Fatalf("no link-orphan proposal for lonely.md in %+v", run.Improvements)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Apply(ctx, ApplyRequest{ID: target.ID}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if diff := cmp.Diff([]string{target.ID}, f.svc.applied); diff != "" {
		t.Errorf("applied ids mismatch (-want +got):\n%s", diff)
	}
	entries, err := f.svc.Activity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Completed != 1 {
		t.Errorf("entries = %+v", entries)
	}
}
