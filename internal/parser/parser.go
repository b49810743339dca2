// Package parser extracts frontmatter, wikilinks, sections, and tags from Markdown content.
package parser

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]]*?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
)

// WikiLink is a single [[target#anchor|alias]] occurrence.
type WikiLink struct {
	Target string
	Anchor string
	Alias  string
	Line   int
}

// MarkdownLink is a single [text](url) occurrence.
type MarkdownLink struct {
	Text string
	URL  string
	Line int
}

// Section is a heading together with the text beneath it, up to the next
// heading of the same or a higher level.
type Section struct {
	Level   int
	Heading string
	Content string
	Line    int
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter   map[string]interface{}
	Body          string
	Links         []string
	WikiLinks     []WikiLink
	MarkdownLinks []MarkdownLink
	Sections      []Section
	Tags          []string
	Title         string
}

// Parse extracts frontmatter, body, links, sections, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	wl := ExtractWikiLinks(body)
	ml := extractMarkdownLinks(body)

	return &Result{
		Frontmatter:   fm,
		Body:          body,
		Links:         linkTargets(wl, ml),
		WikiLinks:     wl,
		MarkdownLinks: ml,
		Sections:      ExtractSections(body),
		Tags:          extractTags(body, fm),
		Title:         deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// ExtractWikiLinks returns every wikilink occurrence in body with its 1-based
// line number. Empty targets (after stripping alias and anchor) are skipped.
func ExtractWikiLinks(body string) []WikiLink {
	var out []WikiLink
	for i, line := range strings.Split(body, "\n") {
		for _, m := range wikilinkRe.FindAllStringSubmatch(line, -1) {
			wl := splitWikiLink(m[1])
			if wl.Target == "" {
				continue
			}
			wl.Line = i + 1
			out = append(out, wl)
		}
	}
	return out
}

// splitWikiLink breaks "target#anchor|alias" into its parts.
func splitWikiLink(raw string) WikiLink {
	var wl WikiLink
	target := raw
	if i := strings.Index(target, "|"); i >= 0 {
		wl.Alias = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	if i := strings.IndexAny(target, "#^"); i >= 0 {
		wl.Anchor = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	wl.Target = strings.TrimSpace(target)
	return wl
}

func extractMarkdownLinks(body string) []MarkdownLink {
	var out []MarkdownLink
	for i, line := range strings.Split(body, "\n") {
		for _, m := range mdLinkRe.FindAllStringSubmatch(line, -1) {
			out = append(out, MarkdownLink{Text: m[1], URL: m[2], Line: i + 1})
		}
	}
	return out
}

// linkTargets returns deduplicated note targets from wikilinks and from
// relative markdown links pointing at .md files.
func linkTargets(wl []WikiLink, ml []MarkdownLink) []string {
	seen := make(map[string]struct{}, len(wl)+len(ml))
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, l := range wl {
		add(l.Target)
	}
	for _, l := range ml {
		add(noteTargetFromURL(l.URL))
	}
	return out
}

// noteTargetFromURL returns the vault-relative target of a markdown link, or
// empty when the URL is external or not a note.
func noteTargetFromURL(raw string) string {
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "mailto:") {
		return ""
	}
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	if !strings.HasSuffix(decoded, ".md") {
		return ""
	}
	return strings.TrimPrefix(path.Clean(decoded), "/")
}

// ExtractSections returns all headings of level 2 and deeper with their
// content. Headings inside fenced code blocks are ignored.
func ExtractSections(body string) []Section {
	type heading struct {
		level int
		text  string
		line  int
	}
	lines := strings.Split(body, "\n")
	var heads []heading
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
		if m := headingRe.FindStringSubmatch(line); m != nil {
			heads = append(heads, heading{level: len(m[1]), text: m[2], line: i})
		}
	}

	var out []Section
	for i, h := range heads {
		if h.level < 2 {
			continue
		}
		end := len(lines)
		for _, next := range heads[i+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}
		content := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
		out = append(out, Section{
			Level:   h.level,
			Heading: h.text,
			Content: content,
			Line:    h.line + 1,
		})
	}
	return out
}

// extractTags collects #tags from body and from frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					s = strings.TrimSpace(s)
					if s == "" {
						continue
					}
					if _, dup := seen[s]; !dup {
						seen[s] = struct{}{}
						out = append(out, s)
					}
				}
			}
		case string:
			for _, s := range strings.Fields(strings.ReplaceAll(v, ",", " ")) {
				if _, dup := seen[s]; !dup {
					seen[s] = struct{}{}
					out = append(out, s)
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if s, ok := fm["title"].(string); ok && s != "" {
			return s
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
