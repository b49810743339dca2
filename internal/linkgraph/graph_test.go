package linkgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/curator/internal/models"
)

func paths(notes []models.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Path)
	}
	return out
}

func TestResolve_Keys(t *testing.T) {
	g := New([]models.Note{
		{Path: "dir/Alpha.md", Title: "The Alpha"},
		{Path: "Beta.md"},
	}, Options{})

	cases := map[string]string{
		"dir/Alpha.md": "dir/Alpha.md",
		"dir/alpha":    "dir/Alpha.md",
		"ALPHA":        "dir/Alpha.md",
		"the alpha":    "dir/Alpha.md",
		" beta ":       "Beta.md",
	}
	for target, want := range cases {
		got, ok := g.Resolve(target)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", target, got, ok, want)
		}
	}
	if _, ok := g.Resolve("gamma"); ok {
		t.Error("gamma should not resolve")
	}
}

func TestResolve_NFC(t *testing.T) {
	// Decomposed "e\u0301" in the file name, precomposed "\u00e9" in the link.
	g := New([]models.Note{{Path: "Cafe\u0301.md"}}, Options{})
	if got, ok := g.Resolve("Caf\u00e9"); !ok || got != "Cafe\u0301.md" {
		t.Errorf("Resolve = %q, %v", got, ok)
	}
}

func TestResolveFrom_Relative(t *testing.T) {
	g := New([]models.Note{{Path: "a/b/Note C.md"}, {Path: "a/src.md"}}, Options{})
	got, ok := g.ResolveFrom("a/src.md", "b/Note C.md")
	if !ok || got != "a/b/Note C.md" {
		t.Errorf("ResolveFrom = %q, %v", got, ok)
	}
}

func TestIsolated(t *testing.T) {
	notes := []models.Note{
		{Path: "hub.md", Links: []string{"leaf"}},
		{Path: "leaf.md"},
		{Path: "alone.md"},
		{Path: "selfish.md", Links: []string{"selfish"}},
		{Path: "dangling.md", Links: []string{"nowhere"}},
		{Path: "templates/t.md"},
	}
	g := New(notes, Options{IgnoreFolders: []string{"templates/"}})

	want := []string{"alone.md", "dangling.md", "selfish.md"}
	if diff := cmp.Diff(want, paths(g.Isolated())); diff != "" {
		t.Errorf("isolated mismatch (-want +got):\n%s", diff)
	}
}

func TestIsolated_AllLinkedVaultHasNone(t *testing.T) {
	notes := []models.Note{
		{Path: "a.md", Links: []string{"b"}},
		{Path: "b.md", Links: []string{"c"}},
		{Path: "c.md"},
	}
	if got := New(notes, Options{}).Isolated(); len(got) != 0 {
		t.Errorf("isolated = %v, want none", paths(got))
	}
}

func TestBacklinksAndOutgoing(t *testing.T) {
	notes := []models.Note{
		{Path: "x.md", Links: []string{"target", "missing"}},
		{Path: "w.md", Links: []string{"Target Title", "target"}},
		{Path: "target.md", Title: "Target Title"},
	}
	g := New(notes, Options{})

	if diff := cmp.Diff([]string{"w.md", "x.md"}, g.Backlinks("target.md")); diff != "" {
		t.Errorf("backlinks mismatch (-want +got):\n%s", diff)
	}
	want := []models.Link{
		{Source: "x.md", Target: "target", Resolved: "target.md"},
		{Source: "x.md", Target: "missing"},
	}
	if diff := cmp.Diff(want, g.Outgoing("x.md")); diff != "" {
		t.Errorf("outgoing mismatch (-want +got):\n%s", diff)
	}
	if g.Outgoing("nope.md") != nil {
		t.Error("unknown note should have no outgoing links")
	}
}

func TestBrokenLinks_Categories(t *testing.T) {
	notes := []models.Note{
		{Path: "notes/src.md", Body: "intro\n[[Live]] [[Old Idea#part]]\n[[0_FAQ|faq]]\n[[Ghost]]"},
		{Path: "notes/Live.md"},
		{Path: "4-Archive/Old Idea.md", Body: "[[Ghost]]"},
		{Path: "templates/tpl.md", Body: "[[Ghost]]"},
	}
	g := New(notes, Options{
		IgnoreFolders: []string{"templates"},
		ArchiveFolder: "4-Archive",
		Merged:        map[string]string{"0_FAQ": "0_Getting_Started"},
	})

	got := g.BrokenLinks()
	want := []BrokenLink{
		{Source: "notes/src.md", Line: 2, Target: "Old Idea", Category: CategoryArchived,
			Recommendation: "note was moved to 4-Archive; restore it or remove the link"},
		{Source: "notes/src.md", Line: 3, Target: "0_FAQ", Category: CategoryMerged,
			Recommendation: "replace with [[0_Getting_Started]]"},
		{Source: "notes/src.md", Line: 4, Target: "Ghost", Category: CategoryMissing,
			Recommendation: "note does not exist; create it or remove the link"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("broken links mismatch (-want +got):\n%s", diff)
	}

	sum := Summarize(got)
	if sum.Files != 1 || sum.Total != 3 || sum.Category[CategoryMerged] != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestBrokenLinks_LiveShadowsArchive(t *testing.T) {
	notes := []models.Note{
		{Path: "src.md", Body: "[[Dup]]"},
		{Path: "Dup.md"},
		{Path: "archive/Dup.md"},
	}
	g := New(notes, Options{ArchiveFolder: "archive"})
	if got := g.BrokenLinks(); len(got) != 0 {
		t.Errorf("broken = %+v, want none", got)
	}
}
