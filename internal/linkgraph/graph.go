// Package linkgraph resolves wiki-link targets to notes and answers graph
// questions over the vault: isolated notes, broken links, backlinks.
package linkgraph

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/curator/internal/models"
)

// Options controls which folders the graph treats specially.
type Options struct {
	// IgnoreFolders are skipped as isolated-note candidates and as
	// broken-link sources.
	IgnoreFolders []string
	// ArchiveFolder holds retired notes; links resolving into it are broken.
	ArchiveFolder string
	// Merged maps a retired note stem to the note that replaced it.
	Merged map[string]string
}

// Graph is an immutable snapshot of the vault's link structure.
type Graph struct {
	opts   Options
	notes  []models.Note
	byPath map[string]int
	keys   map[string]string
	out    map[string][]string
	in     map[string][]string
}

// Key normalises a link target or note name for lookup: NFC, case-folded,
// surrounding space trimmed.
func Key(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// New builds a graph over notes. The input slice is not modified.
func New(notes []models.Note, opts Options) *Graph {
	sorted := make([]models.Note, len(notes))
	copy(sorted, notes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	g := &Graph{
		opts:   opts,
		notes:  sorted,
		byPath: make(map[string]int, len(sorted)),
		keys:   make(map[string]string, len(sorted)*4),
		out:    make(map[string][]string, len(sorted)),
		in:     make(map[string][]string, len(sorted)),
	}
	for i, n := range sorted {
		g.byPath[n.Path] = i
	}

	// Earlier passes win, and live notes shadow archived ones within a pass.
	passes := []func(models.Note) string{
		func(n models.Note) string { return n.Path },
		func(n models.Note) string { return strings.TrimSuffix(n.Path, ".md") },
		func(n models.Note) string { return n.Stem() },
		func(n models.Note) string { return n.Title },
	}
	for _, keyOf := range passes {
		for _, archived := range []bool{false, true} {
			for _, n := range sorted {
				if g.archived(n.Path) != archived {
					continue
				}
				k := Key(keyOf(n))
				if k == "" {
					continue
				}
				if _, taken := g.keys[k]; !taken {
					g.keys[k] = n.Path
				}
			}
		}
	}

	for _, n := range sorted {
		seen := make(map[string]struct{})
		for _, target := range n.Links {
			dst, ok := g.ResolveFrom(n.Path, target)
			if !ok || dst == n.Path {
				continue
			}
			if _, dup := seen[dst]; dup {
				continue
			}
			seen[dst] = struct{}{}
			g.out[n.Path] = append(g.out[n.Path], dst)
			g.in[dst] = append(g.in[dst], n.Path)
		}
	}
	return g
}

// Len returns the number of notes in the graph.
func (g *Graph) Len() int { return len(g.notes) }

// Notes returns the graph's notes ordered by path.
func (g *Graph) Notes() []models.Note { return g.notes }

// Note returns the note at path.
func (g *Graph) Note(p string) (models.Note, bool) {
	i, ok := g.byPath[p]
	if !ok {
		return models.Note{}, false
	}
	return g.notes[i], true
}

// Resolve maps a link target to a note path.
func (g *Graph) Resolve(target string) (string, bool) {
	p, ok := g.keys[Key(target)]
	return p, ok
}

// ResolveFrom resolves target as written inside source. Targets containing a
// slash are first tried relative to the source's directory.
func (g *Graph) ResolveFrom(source, target string) (string, bool) {
	if strings.Contains(target, "/") {
		rel := path.Join(path.Dir(source), target)
		if p, ok := g.Resolve(rel); ok {
			return p, true
		}
	}
	return g.Resolve(target)
}

// Outgoing returns the links of the note at p with their resolution.
func (g *Graph) Outgoing(p string) []models.Link {
	n, ok := g.Note(p)
	if !ok {
		return nil
	}
	out := make([]models.Link, 0, len(n.Links))
	for _, t := range n.Links {
		l := models.Link{Source: p, Target: t}
		if dst, ok := g.ResolveFrom(p, t); ok {
			l.Resolved = dst
		}
		out = append(out, l)
	}
	return out
}

// Backlinks returns the paths of other notes linking to p, sorted.
func (g *Graph) Backlinks(p string) []string {
	out := append([]string(nil), g.in[p]...)
	sort.Strings(out)
	return out
}

// Isolated returns notes with no resolved links to other notes and no other
// notes linking to them. Notes in ignored folders are skipped.
func (g *Graph) Isolated() []models.Note {
	var out []models.Note
	for _, n := range g.notes {
		if g.ignored(n.Path) {
			continue
		}
		if len(g.out[n.Path]) == 0 && len(g.in[n.Path]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Ignored reports whether p lies in an ignored folder.
func (g *Graph) Ignored(p string) bool { return g.ignored(p) }

func (g *Graph) ignored(p string) bool {
	for _, f := range g.opts.IgnoreFolders {
		if underFolder(p, f) {
			return true
		}
	}
	return false
}

func (g *Graph) archived(p string) bool {
	return g.opts.ArchiveFolder != "" && underFolder(p, g.opts.ArchiveFolder)
}

func underFolder(p, folder string) bool {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return false
	}
	return p == folder || strings.HasPrefix(p, folder+"/")
}
