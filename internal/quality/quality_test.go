package quality

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/parser"
)

func testRules() Rules {
	return Rules{
		MetaPrefixes:      []string{"0_", "_"},
		RequiredSections:  []string{"Summary"},
		CoreSection:       "Core",
		VagueTerms:        []string{"etc", "various"},
		ExampleVagueTerms: []string{"some"},
		ConceptKeywords:   []string{"entropy"},
	}
}

func codes(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Code)
	}
	return out
}

func has(issues []Issue, code string) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func TestScore(t *testing.T) {
	issues := []Issue{{Priority: models.P1}, {Priority: models.P2}, {Priority: models.P3}}
	if got := Score(issues); got != 78 {
		t.Errorf("Score = %d, want 78", got)
	}
	many := make([]Issue, 8)
	for i := range many {
		many[i].Priority = models.P1
	}
	if got := Score(many); got != 0 {
		t.Errorf("Score floor = %d, want 0", got)
	}
	if got := Score(nil); got != 100 {
		t.Errorf("Score(nil) = %d, want 100", got)
	}
}

func TestGrade(t *testing.T) {
	cases := map[int]string{100: GradeExcellent, 90: GradeExcellent, 89: GradeGood, 75: GradeGood, 74: GradeFair, 60: GradeFair, 59: GradePoor, 0: GradePoor}
	for score, want := range cases {
		if got := Grade(score); got != want {
			t.Errorf("Grade(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestCheckSections_EmptyAndMissing(t *testing.T) {
	c := NewChecker(testRules())

	body := "## Summary\nshort\n## Other\n\n## Core\n"
	got := c.CheckSections(parser.ExtractSections(body))
	want := []string{CodeEmptySection, CodeEmptySection, CodeEmptyHeading}
	if diff := cmp.Diff(want, codes(got)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if got[0].Priority != models.P1 || got[0].Section != "Summary" {
		t.Errorf("first issue = %+v", got[0])
	}
	if got[2].Priority != models.P3 || got[2].Section != "Other" {
		t.Errorf("third issue = %+v", got[2])
	}

	got = c.CheckSections(parser.ExtractSections("## Intro\nplenty of words here\n"))
	if diff := cmp.Diff([]string{CodeMissingSection}, codes(got)); diff != "" {
		t.Errorf("missing codes mismatch (-want +got):\n%s", diff)
	}
	if got[0].Priority != models.P2 || got[0].Section != "Summary" {
		t.Errorf("missing issue = %+v", got[0])
	}
}

func TestCheck_Links(t *testing.T) {
	c := NewChecker(Rules{})
	if !has(c.Check(models.Note{Path: "a.md", Body: "no links"}), CodeOrphan) {
		t.Error("expected orphan issue")
	}
	if !has(c.Check(models.Note{Path: "a.md", Body: "see [[b]]"}), CodeSingleLink) {
		t.Error("expected single-link issue")
	}
	if has(c.Check(models.Note{Path: "a.md", Body: "see [[b]] and [[c]]"}), CodeSingleLink) {
		t.Error("two links should not be flagged")
	}
}

func TestCheck_MetaNotesSkipStructureRules(t *testing.T) {
	c := NewChecker(testRules())
	issues := c.Check(models.Note{Path: "0_Index.md", Body: "## Summary\nA summary of everything.\n"})
	for _, code := range []string{CodeOrphan, CodeTooShort, CodeMissingMath} {
		if has(issues, code) {
			t.Errorf("meta note got %s issue", code)
		}
	}
}

func TestCheck_Untitled(t *testing.T) {
	c := NewChecker(Rules{})
	if !has(c.Check(models.Note{Path: "Untitled 3.md"}), CodeUntitled) {
		t.Error("expected untitled issue")
	}
}

func TestCheck_Math(t *testing.T) {
	c := NewChecker(testRules())
	if !has(c.Check(models.Note{Path: "notes/Entropy.md", Body: "words"}), CodeMissingMath) {
		t.Error("concept note by keyword should need math")
	}
	if has(c.Check(models.Note{Path: "notes/Entropy.md", Body: "$H = -\\sum p \\log p$"}), CodeMissingMath) {
		t.Error("inline math should satisfy the rule")
	}
	if !has(c.Check(models.Note{Path: "notes/x.md", Body: "## Definition\ntext"}), CodeMissingMath) {
		t.Error("definition heading marks a concept note")
	}
	if has(c.Check(models.Note{Path: "notes/x.md", Body: "plain"}), CodeMissingMath) {
		t.Error("non-concept note should not need math")
	}
}

func TestCheck_CoreContent(t *testing.T) {
	c := NewChecker(testRules())
	issues := c.Check(models.Note{Path: "n.md", Body: "## Core\nThis covers various things etc.\n"})
	if !has(issues, CodeShortCore) {
		t.Error("expected short-core issue")
	}
	if !has(issues, CodeVagueTerms) {
		t.Error("expected vague-terms issue")
	}
}

func TestCheck_Connectivity(t *testing.T) {
	c := NewChecker(Rules{})
	if !has(c.Check(models.Note{Path: "n.md", Body: "[[a]] [[b]] [[c]]"}), CodeContextless) {
		t.Error("bare link list should lack context")
	}
	if has(c.Check(models.Note{Path: "n.md", Body: "see [[a]] for details, also [[b]] explains it"}), CodeContextless) {
		t.Error("links in prose have context")
	}
}

func TestCheck_LengthAndDensity(t *testing.T) {
	c := NewChecker(Rules{})
	body := "## A\nx\n## B\ny\n"
	issues := c.Check(models.Note{Path: "n.md", Body: body})
	for _, code := range []string{CodeTooShort, CodeFewSections, CodeSparse} {
		if !has(issues, code) {
			t.Errorf("missing %s in %v", code, codes(issues))
		}
	}

	long := "## A\n" + strings.Repeat("word ", 800)
	if !has(c.Check(models.Note{Path: "n.md", Body: long}), CodeTooLong) {
		t.Error("expected too-long issue")
	}
}

func TestCheck_Examples(t *testing.T) {
	c := NewChecker(testRules())
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		b.WriteString("### Example ")
		b.WriteString(string(rune('0' + i)))
		b.WriteString(": case\n")
		b.WriteString(strings.Repeat("concrete detail ", 10))
		b.WriteString("\n")
	}
	b.WriteString("### Example 6: some case\nshort\n")
	issues := c.Check(models.Note{Path: "n.md", Body: b.String()})
	for _, code := range []string{CodeManyExamples, CodeVagueExample, CodeShortExample} {
		if !has(issues, code) {
			t.Errorf("missing %s in %v", code, codes(issues))
		}
	}
}

func TestCheckAll_AndReport(t *testing.T) {
	c := NewChecker(testRules())
	notes := []models.Note{
		{Path: "b.md", Body: "## Summary\nshort\n"},
		{Path: "0_Meta.md", Body: "## Summary\nThe meta summary is long enough.\n"},
	}
	sum := c.CheckAll(notes)
	if sum.TotalFiles != 2 {
		t.Errorf("total files = %d", sum.TotalFiles)
	}
	if sum.Notes[0].Path != "0_Meta.md" {
		t.Errorf("notes not ordered by path: %s first", sum.Notes[0].Path)
	}
	if sum.ByPriority[models.P1] == 0 {
		t.Error("expected a P1 issue from the empty summary")
	}
	want := float64(sum.Notes[0].Score+sum.Notes[1].Score) / 2
	if sum.AverageScore != want {
		t.Errorf("average = %v, want %v", sum.AverageScore, want)
	}

	var buf bytes.Buffer
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	if err := RenderReport(&buf, sum, "/vault", now); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"# Quality Report", "2026-10-19 09:30", "## P1 issues", "### [b.md]"} {
		if !strings.Contains(out, s) {
			t.Errorf("report missing %q", s)
		}
	}
}
