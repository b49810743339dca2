package linkgraph

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/curator/internal/parser"
)

// Broken-link categories.
const (
	CategoryArchived = "archived"
	CategoryMerged   = "merged"
	CategoryMissing  = "missing"
)

// BrokenLink is one wiki-link occurrence that does not reach a live note.
type BrokenLink struct {
	Source         string `json:"source"`
	Line           int    `json:"line"`
	Target         string `json:"target"`
	Category       string `json:"category"`
	Recommendation string `json:"recommendation"`
}

// BrokenSummary counts broken links per category.
type BrokenSummary struct {
	Files    int            `json:"files"`
	Total    int            `json:"total"`
	Category map[string]int `json:"by_category"`
}

// BrokenLinks scans every non-ignored, non-archived note body for wiki-links
// that resolve only into the archive, name a merged note, or resolve nowhere.
// Results are ordered by source, then line.
func (g *Graph) BrokenLinks() []BrokenLink {
	var out []BrokenLink
	for _, n := range g.notes {
		if g.ignored(n.Path) || g.archived(n.Path) {
			continue
		}
		for _, wl := range parser.ExtractWikiLinks(n.Body) {
			bl, broken := g.classify(n.Path, wl.Target)
			if !broken {
				continue
			}
			bl.Line = wl.Line
			out = append(out, bl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Line < out[j].Line
	})
	return out
}

func (g *Graph) classify(source, target string) (BrokenLink, bool) {
	bl := BrokenLink{Source: source, Target: target}
	dst, ok := g.ResolveFrom(source, target)
	if ok && !g.archived(dst) {
		return bl, false
	}
	stem := strings.TrimSuffix(path.Base(target), ".md")
	switch {
	case ok:
		bl.Category = CategoryArchived
		bl.Recommendation = fmt.Sprintf("note was moved to %s; restore it or remove the link", g.opts.ArchiveFolder)
	case g.mergedInto(stem) != "":
		bl.Category = CategoryMerged
		bl.Recommendation = fmt.Sprintf("replace with [[%s]]", g.mergedInto(stem))
	default:
		bl.Category = CategoryMissing
		bl.Recommendation = "note does not exist; create it or remove the link"
	}
	return bl, true
}

func (g *Graph) mergedInto(stem string) string {
	if r, ok := g.opts.Merged[stem]; ok {
		return r
	}
	k := Key(stem)
	for from, to := range g.opts.Merged {
		if Key(from) == k {
			return to
		}
	}
	return ""
}

// Summarize counts broken links per category and distinct source files.
func Summarize(links []BrokenLink) BrokenSummary {
	s := BrokenSummary{Category: map[string]int{
		CategoryArchived: 0,
		CategoryMerged:   0,
		CategoryMissing:  0,
	}}
	files := make(map[string]struct{})
	for _, l := range links {
		s.Total++
		s.Category[l.Category]++
		files[l.Source] = struct{}{}
	}
	s.Files = len(files)
	return s
}
