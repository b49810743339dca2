package quality

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/starford/curator/internal/models"
)

const (
	reportTopCategories = 5
	reportMaxFair       = 15
	reportMaxP1Files    = 50
)

// RenderReport writes a markdown quality report for sum.
func RenderReport(w io.Writer, sum Summary, vault string, now time.Time) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("# Quality Report\n\n")
	p("**Generated:** %s  \n", now.Format("2006-01-02 15:04"))
	p("**Vault:** `%s`\n\n---\n\n", vault)

	p("## Overview\n\n")
	p("- **Average score:** %.1f/100\n", sum.AverageScore)
	p("- **Files checked:** %d\n", sum.TotalFiles)
	p("- **Files with issues:** %d\n", sum.FilesWithIssues)
	p("- **Total issues:** %d\n\n", sum.TotalIssues)

	p("### Grades\n\n")
	for _, g := range []struct{ name, band string }{
		{GradeExcellent, "90-100"},
		{GradeGood, "75-89"},
		{GradeFair, "60-74"},
		{GradePoor, "0-59"},
	} {
		p("- **%s (%s):** %d (%.1f%%)\n", g.name, g.band, sum.Grades[g.name], percent(sum.Grades[g.name], sum.TotalFiles))
	}

	p("\n### Issues by priority\n\n")
	p("- **P1 (urgent):** %d\n", sum.ByPriority[models.P1])
	p("- **P2 (important):** %d\n", sum.ByPriority[models.P2])
	p("- **P3 (recommended):** %d\n", sum.ByPriority[models.P3])

	p("\n### Top categories\n\n")
	type kv struct {
		k string
		v int
	}
	cats := make([]kv, 0, len(sum.ByCategory))
	for k, v := range sum.ByCategory {
		cats = append(cats, kv{k, v})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].v != cats[j].v {
			return cats[i].v > cats[j].v
		}
		return cats[i].k < cats[j].k
	})
	if len(cats) > reportTopCategories {
		cats = cats[:reportTopCategories]
	}
	for _, c := range cats {
		p("- **%s:** %d\n", c.k, c.v)
	}

	p("\n---\n\n## Files needing attention\n\n")
	p("### Urgent (score below 60)\n\n")
	poor := filterScores(sum.Notes, 0, 60)
	if len(poor) == 0 {
		p("*None. Every file scores 60 or more.*\n")
	}
	for _, r := range poor {
		p("- **%s** - %d\n", r.Path, r.Score)
	}
	if fair := filterScores(sum.Notes, 60, 75); len(fair) > 0 {
		p("\n### Needs work (60-74)\n\n")
		if len(fair) > reportMaxFair {
			fair = fair[:reportMaxFair]
		}
		for _, r := range fair {
			p("- **%s** - %d\n", r.Path, r.Score)
		}
	}

	p("\n---\n\n## P1 issues\n\n")
	shown := 0
	withP1 := 0
	for _, r := range sum.Notes {
		var p1 []Issue
		for _, is := range r.Issues {
			if is.Priority == models.P1 {
				p1 = append(p1, is)
			}
		}
		if len(p1) == 0 {
			continue
		}
		withP1++
		if shown >= reportMaxP1Files {
			continue
		}
		shown++
		p("### [%s]\n\n", r.Path)
		for _, is := range p1 {
			p("- **Category:** %s\n", is.Category)
			p("- **Issue:** %s\n", is.Message)
			p("- **Suggestion:** %s\n\n", is.Suggestion)
		}
	}
	switch {
	case withP1 == 0:
		p("*No P1 issues.*\n")
	case withP1 > shown:
		p("*...%d more files omitted*\n", withP1-shown)
	}

	return bw.Flush()
}

func filterScores(notes []NoteReport, lo, hi int) []NoteReport {
	var out []NoteReport
	for _, r := range notes {
		if r.Score >= lo && r.Score < hi {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
