package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/relevance"
)

// NoteStructure describes the note layout the quality checks reward, so an
// LLM editing notes can aim for a clean report.
func NoteStructure(rules quality.Rules) string {
	var b strings.Builder
	b.WriteString("# Curator Note Structure\n\n")
	b.WriteString("Notes are scored 0-100: each P1 issue costs 15 points, P2 costs 5, P3 costs 2.\n\n")

	b.WriteString("## Sections\n\n")
	if len(rules.RequiredSections) == 0 {
		b.WriteString("No sections are required in this vault.\n")
	}
	for _, s := range rules.RequiredSections {
		fmt.Fprintf(&b, "- `## %s` is required and must hold at least 10 characters.\n", s)
	}
	if rules.CoreSection != "" {
		fmt.Fprintf(&b, "- `## %s` is the core section; write at least 150 characters.\n", rules.CoreSection)
	}
	b.WriteString("- Aim for 4 to 10 H2 sections of 150 to 450 characters each.\n")

	b.WriteString("\n## Links\n\n")
	b.WriteString("- Link at least two related notes with `[[stem]]` wiki-links.\n")
	b.WriteString("- Put each link in a sentence that says why it is related.\n")
	fmt.Fprintf(&b, "- Related-note suggestions are appended under `## %s`.\n", relevance.RelatedHeading)

	b.WriteString("\n## Length and style\n\n")
	b.WriteString("- Keep the body between 1000 and 3500 characters.\n")
	b.WriteString("- Avoid more than five sentences over 100 characters.\n")
	if len(rules.VagueTerms) > 0 {
		fmt.Fprintf(&b, "- Avoid vague terms: %s.\n", strings.Join(rules.VagueTerms, ", "))
	}
	b.WriteString("- Use at most four `### Example N` sections of 100 characters or more.\n")
	b.WriteString("- Concept notes (a `## Definition` section")
	if len(rules.ConceptKeywords) > 0 {
		fmt.Fprintf(&b, ", or a filename containing %s", strings.Join(rules.ConceptKeywords, ", "))
	}
	b.WriteString(") need `$...$` math.\n")

	if len(rules.MetaPrefixes) > 0 {
		fmt.Fprintf(&b, "\nFiles starting with %s are meta notes and skip the link, length and math checks.\n",
			strings.Join(rules.MetaPrefixes, ", "))
	}
	return b.String()
}
