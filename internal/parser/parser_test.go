package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - vault\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "vault" {
		t.Errorf("tags = %v, want [go vault]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_LinksDedupedAcrossSyntaxes(t *testing.T) {
	body := "See [[Note A]], [[Note B|alias]] and [[Note A#Intro]].\n" +
		"Also [file](sub/Note%20C.md) and [site](https://example.com/x.md).\n"
	r, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Note A", "Note B", "sub/Note C.md"}
	if diff := cmp.Diff(want, r.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractWikiLinks_PartsAndLines(t *testing.T) {
	body := "first line\n[[Target#Heading|Shown]] and [[Other^block]]\n[[ ]] [[|alias]]"
	got := ExtractWikiLinks(body)
	want := []WikiLink{
		{Target: "Target", Anchor: "Heading", Alias: "Shown", Line: 2},
		{Target: "Other", Anchor: "block", Line: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wikilinks mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSections_NestedAndFenced(t *testing.T) {
	body := "# Title\n" +
		"## Summary\n" +
		"Short text.\n" +
		"### Detail\n" +
		"Nested.\n" +
		"## Empty\n" +
		"\n" +
		"## Code\n" +
		"```\n" +
		"## not a heading\n" +
		"```\n"
	got := ExtractSections(body)
	if len(got) != 4 {
		t.Fatalf("len(sections) = %d, want 4: %+v", len(got), got)
	}
	if got[0].Heading != "Summary" || got[0].Content != "Short text.\n### Detail\nNested." {
		t.Errorf("summary section = %+v", got[0])
	}
	if got[1].Heading != "Detail" || got[1].Level != 3 || got[1].Content != "Nested." {
		t.Errorf("detail section = %+v", got[1])
	}
	if got[2].Heading != "Empty" || got[2].Content != "" {
		t.Errorf("empty section = %+v", got[2])
	}
	if got[3].Heading != "Code" || got[3].Line != 8 {
		t.Errorf("code section = %+v", got[3])
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	tags := extractTags("Some text #beta and #alpha again.", fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestExtractTags_FrontmatterString(t *testing.T) {
	tags := extractTags("", map[string]any{"tags": "one, two"})
	if diff := cmp.Diff([]string{"one", "two"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(map[string]any{"title": "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
