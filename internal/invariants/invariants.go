// Package invariants parses the user's invariant rules and checks notes
// against them.
package invariants

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/curator/internal/apperr"
	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/storage"
)

var (
	// ## Invariant 1: Name | ## 1. Name | ### 1: Name
	headRe  = regexp.MustCompile(`^#{2,3}\s+(?:Invariant\s+)?(\d+)\s*[:.]\s*(.+?)\s*$`)
	fieldRe = regexp.MustCompile(`^(?:[-*]\s+)?(?:\*\*)?(Principle|Description|원칙|설명)(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.*)$`)
)

// Parse extracts invariants from markdown. Lines following a field label
// continue that field until the next label or heading.
func Parse(content string) []models.Invariant {
	var (
		out   []models.Invariant
		cur   *models.Invariant
		field *string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Principle = strings.TrimSpace(cur.Principle)
		cur.Description = strings.TrimSpace(cur.Description)
		out = append(out, *cur)
		cur, field = nil, nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			if m := headRe.FindStringSubmatch(trimmed); m != nil {
				n, _ := strconv.Atoi(m[1])
				cur = &models.Invariant{Number: n, Name: m[2]}
			}
			continue
		}
		if cur == nil {
			continue
		}
		if m := fieldRe.FindStringSubmatch(trimmed); m != nil {
			switch m[1] {
			case "Principle", "원칙":
				field = &cur.Principle
			default:
				field = &cur.Description
			}
			*field = strings.TrimSpace(m[2])
			continue
		}
		if field != nil && trimmed != "" && trimmed != "---" {
			*field += " " + trimmed
		}
	}
	flush()
	return out
}

// Load reads and parses the invariants file. A missing file yields
// apperr.ErrNotFound.
func Load(store storage.Provider, file string) ([]models.Invariant, error) {
	data, err := store.Read(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invariants: %s: %w", file, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Template is the starter invariants file.
const Template = `# Invariants

Rules every note in this vault should follow. Each rule is checked
against notes on demand.

## Invariant 1: Atomicity
**Principle:** One note holds one idea.
**Description:** Split notes that cover more than one concept into separate notes.

## Invariant 2: Connectivity
**Principle:** Every note links to at least one related note.
**Description:** Isolated notes are hard to rediscover; add links that explain the relationship.

## Invariant 3: Clarity
**Principle:** Write in concrete terms.
**Description:** Replace vague words such as "various" or "etc." with specific names, numbers and examples.
`

// Format documents the invariants file syntax.
const Format = `Invariants live in one markdown file. Each invariant is a level-2 or
level-3 heading followed by optional fields:

    ## Invariant 1: Atomicity
    **Principle:** One note holds one idea.
    **Description:** Split notes that cover more than one concept.

Accepted headings: "## Invariant N: Name", "## N. Name", "### N: Name".
Fields may be bold or plain and may start with a list dash. Text on the
lines after a field continues it.
`
