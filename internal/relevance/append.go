package relevance

import (
	"strings"

	"github.com/starford/curator/internal/linkgraph"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/parser"
)

// RelatedHeading is the section related-note links are written under.
const RelatedHeading = "Related Notes"

// LinkName returns the shortest wiki-link text that resolves to path in g:
// the stem when unambiguous, otherwise the path without extension.
func LinkName(g *linkgraph.Graph, path string) string {
	stem := models.Stem(path)
	if p, ok := g.Resolve(stem); ok && p == path {
		return stem
	}
	return strings.TrimSuffix(path, ".md")
}

// AppendRelated adds a "- [[name]]" line for each name not already linked
// under the related-notes heading, creating the heading at the end of the
// document when absent. It reports whether content changed.
func AppendRelated(content string, names []string) (string, bool) {
	lines := strings.Split(content, "\n")
	start, end := relatedSection(lines)

	existing := make(map[string]bool)
	if start >= 0 {
		for _, wl := range parser.ExtractWikiLinks(strings.Join(lines[start+1:end], "\n")) {
			existing[linkgraph.Key(wl.Target)] = true
		}
	}
	var add []string
	for _, name := range names {
		k := linkgraph.Key(name)
		if k == "" || existing[k] {
			continue
		}
		existing[k] = true
		add = append(add, "- [["+name+"]]")
	}
	if len(add) == 0 {
		return content, false
	}

	if start < 0 {
		body := strings.TrimRight(content, "\n")
		if body != "" {
			body += "\n\n"
		}
		return body + "## " + RelatedHeading + "\n\n" + strings.Join(add, "\n") + "\n", true
	}

	// Insert after the last non-blank line of the section.
	insert := end
	for insert > start+1 && strings.TrimSpace(lines[insert-1]) == "" {
		insert--
	}
	out := make([]string, 0, len(lines)+len(add))
	out = append(out, lines[:insert]...)
	out = append(out, add...)
	out = append(out, lines[insert:]...)
	return strings.Join(out, "\n"), true
}

// relatedSection returns the heading line index and the exclusive end of the
// related-notes section, or -1 when there is none.
func relatedSection(lines []string) (int, int) {
	start := -1
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		level, text := headingOf(trimmed)
		if start < 0 {
			if level == 2 && strings.EqualFold(text, RelatedHeading) {
				start = i
			}
			continue
		}
		if level > 0 && level <= 2 {
			return start, i
		}
	}
	if start < 0 {
		return -1, -1
	}
	return start, len(lines)
}

func headingOf(line string) (int, string) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(line[level:])
}
