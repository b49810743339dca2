// Package quality scores notes against structural and content rules.
package quality

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/parser"
)

// Issue categories.
const (
	CategoryNaming       = "naming"
	CategoryLinks        = "links"
	CategorySections     = "sections"
	CategoryContent      = "content"
	CategoryClarity      = "clarity"
	CategoryConnectivity = "connectivity"
	CategoryLength       = "length"
	CategoryExamples     = "examples"
	CategoryMath         = "math"
)

// Issue codes callers can branch on.
const (
	CodeUntitled       = "untitled"
	CodeOrphan         = "orphan"
	CodeSingleLink     = "single-link"
	CodeMissingSection = "missing-section"
	CodeEmptySection   = "empty-section"
	CodeEmptyHeading   = "empty-heading"
	CodeShortCore      = "short-core"
	CodeVagueTerms     = "vague-terms"
	CodeLongSentences  = "long-sentences"
	CodeContextless    = "contextless-links"
	CodeTooShort       = "too-short"
	CodeTooLong        = "too-long"
	CodeFewSections    = "few-sections"
	CodeManySections   = "many-sections"
	CodeSparse         = "sparse"
	CodeDense          = "dense"
	CodeManyExamples   = "many-examples"
	CodeVagueExample   = "vague-example"
	CodeShortExample   = "short-example"
	CodeMissingMath    = "missing-math"
)

// Thresholds.
const (
	emptySectionChars  = 10
	coreSectionChars   = 150
	longSentenceChars  = 100
	maxLongSentences   = 5
	contextWindow      = 20
	minContextualRatio = 0.3
	minNoteChars       = 1000
	maxNoteChars       = 3500
	minSections        = 4
	maxSections        = 10
	minDensity         = 150
	maxDensity         = 450
	maxExamples        = 4
	minExampleChars    = 100
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	exampleRe       = regexp.MustCompile(`^(?:사례|예제|Example)\s+\d+:?\s*(.*)$`)
	conceptHeadRe   = regexp.MustCompile(`(?m)^##\s+(?:개념|정의|Definition)`)
	wikilinkRe      = regexp.MustCompile(`\[\[[^\[\]]*?\]\]`)
)

// Issue is one rule violation found in a note.
type Issue struct {
	Priority   models.Priority `json:"priority"`
	Category   string          `json:"category"`
	Code       string          `json:"code"`
	Section    string          `json:"section,omitempty"`
	Message    string          `json:"message"`
	Suggestion string          `json:"suggestion"`
}

// Rules configures the checker.
type Rules struct {
	MetaPrefixes      []string
	RequiredSections  []string
	CoreSection       string
	VagueTerms        []string
	ExampleVagueTerms []string
	ConceptKeywords   []string
}

// Checker runs every rule over a note.
type Checker struct {
	rules Rules
}

// NewChecker returns a checker for rules.
func NewChecker(rules Rules) *Checker {
	return &Checker{rules: rules}
}

// Rules returns the checker's configuration.
func (c *Checker) Rules() Rules { return c.rules }

// Check returns every issue found in n, in rule order.
func (c *Checker) Check(n models.Note) []Issue {
	sections := parser.ExtractSections(n.Body)
	meta := c.IsMeta(n.Path)

	var issues []Issue
	issues = append(issues, c.checkNaming(n)...)
	if !meta {
		issues = append(issues, c.checkLinks(n)...)
	}
	issues = append(issues, c.CheckSections(sections)...)
	issues = append(issues, c.checkContent(sections)...)
	issues = append(issues, c.checkClarity(n.Body)...)
	if !meta {
		issues = append(issues, c.checkConnectivity(n.Body)...)
		issues = append(issues, c.checkLength(n.Body, sections)...)
	}
	issues = append(issues, c.checkExamples(sections)...)
	if !meta {
		issues = append(issues, c.checkMath(n)...)
	}
	return issues
}

// IsMeta reports whether the note's filename starts with a meta prefix.
func (c *Checker) IsMeta(p string) bool {
	name := models.Filename(p)
	for _, prefix := range c.rules.MetaPrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (c *Checker) checkNaming(n models.Note) []Issue {
	if !strings.Contains(strings.ToLower(n.Stem()), "untitled") {
		return nil
	}
	return []Issue{{
		Priority:   models.P2,
		Category:   CategoryNaming,
		Code:       CodeUntitled,
		Message:    fmt.Sprintf("untitled file: %s", n.Stem()),
		Suggestion: "rename the note to describe its content",
	}}
}

func (c *Checker) checkLinks(n models.Note) []Issue {
	switch len(parser.ExtractWikiLinks(n.Body)) {
	case 0:
		return []Issue{{
			Priority:   models.P2,
			Category:   CategoryLinks,
			Code:       CodeOrphan,
			Message:    "orphan note (no links)",
			Suggestion: "link at least one related concept",
		}}
	case 1:
		return []Issue{{
			Priority:   models.P3,
			Category:   CategoryConnectivity,
			Code:       CodeSingleLink,
			Message:    "only one link (isolation risk)",
			Suggestion: "connect two or more related concepts",
		}}
	}
	return nil
}

// CheckSections reports missing and empty required sections plus other
// empty H2 headings.
func (c *Checker) CheckSections(sections []parser.Section) []Issue {
	var issues []Issue
	checked := make(map[string]bool)

	required := append([]string(nil), c.rules.RequiredSections...)
	if c.rules.CoreSection != "" {
		required = append(required, c.rules.CoreSection)
	}
	for _, name := range required {
		if checked[name] {
			continue
		}
		checked[name] = true
		s, ok := findSection(sections, name)
		if !ok {
			if c.rules.CoreSection == name && !contains(c.rules.RequiredSections, name) {
				continue
			}
			issues = append(issues, Issue{
				Priority:   models.P2,
				Category:   CategorySections,
				Code:       CodeMissingSection,
				Section:    name,
				Message:    fmt.Sprintf("missing section %q", name),
				Suggestion: fmt.Sprintf("add a '## %s' section", name),
			})
			continue
		}
		if runeLen(s.Content) < emptySectionChars {
			issues = append(issues, Issue{
				Priority:   models.P1,
				Category:   CategorySections,
				Code:       CodeEmptySection,
				Section:    name,
				Message:    fmt.Sprintf("section %q is empty", name),
				Suggestion: fmt.Sprintf("write the '%s' section", name),
			})
		}
	}

	for _, s := range sections {
		if s.Level != 2 || checked[s.Heading] || strings.TrimSpace(s.Content) != "" {
			continue
		}
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategorySections,
			Code:       CodeEmptyHeading,
			Section:    s.Heading,
			Message:    fmt.Sprintf("heading %q has no content", s.Heading),
			Suggestion: "fill in or remove the heading",
		})
	}
	return issues
}

func (c *Checker) checkContent(sections []parser.Section) []Issue {
	if c.rules.CoreSection == "" {
		return nil
	}
	s, ok := findSection(sections, c.rules.CoreSection)
	if !ok || runeLen(s.Content) < emptySectionChars {
		return nil
	}

	var issues []Issue
	if n := runeLen(s.Content); n < coreSectionChars {
		issues = append(issues, Issue{
			Priority:   models.P2,
			Category:   CategoryContent,
			Code:       CodeShortCore,
			Section:    s.Heading,
			Message:    fmt.Sprintf("core section is short (%d chars)", n),
			Suggestion: fmt.Sprintf("write at least %d characters", coreSectionChars),
		})
	}
	if found := foundTerms(s.Content, c.rules.VagueTerms); len(found) > 0 {
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategoryClarity,
			Code:       CodeVagueTerms,
			Section:    s.Heading,
			Message:    "vague terms: " + strings.Join(found, ", "),
			Suggestion: "replace vague terms with specifics",
		})
	}
	return issues
}

func (c *Checker) checkClarity(body string) []Issue {
	long := 0
	for _, s := range sentenceSplitRe.Split(body, -1) {
		if runeLen(s) > longSentenceChars {
			long++
		}
	}
	if long <= maxLongSentences {
		return nil
	}
	return []Issue{{
		Priority:   models.P3,
		Category:   CategoryClarity,
		Code:       CodeLongSentences,
		Message:    fmt.Sprintf("%d sentences exceed %d characters", long, longSentenceChars),
		Suggestion: "split long sentences",
	}}
}

// checkConnectivity flags notes where most links stand alone: a link has
// context when a letter appears within contextWindow runes on either side on
// the same line, ignoring neighbouring links.
func (c *Checker) checkConnectivity(body string) []Issue {
	total, contextual := 0, 0
	for _, line := range strings.Split(body, "\n") {
		locs := wikilinkRe.FindAllStringIndex(line, -1)
		for _, loc := range locs {
			total++
			before := []rune(wikilinkRe.ReplaceAllString(line[:loc[0]], ""))
			after := []rune(wikilinkRe.ReplaceAllString(line[loc[1]:], ""))
			if len(before) > contextWindow {
				before = before[len(before)-contextWindow:]
			}
			if len(after) > contextWindow {
				after = after[:contextWindow]
			}
			if hasLetter(before) || hasLetter(after) {
				contextual++
			}
		}
	}
	if total == 0 || float64(contextual)/float64(total) >= minContextualRatio {
		return nil
	}
	return []Issue{{
		Priority:   models.P3,
		Category:   CategoryConnectivity,
		Code:       CodeContextless,
		Message:    fmt.Sprintf("most links lack context (%d/%d)", contextual, total),
		Suggestion: "explain why each link is relevant",
	}}
}

func (c *Checker) checkLength(body string, sections []parser.Section) []Issue {
	var issues []Issue
	chars := runeLen(body)
	switch {
	case chars < minNoteChars:
		issues = append(issues, Issue{
			Priority:   models.P2,
			Category:   CategoryLength,
			Code:       CodeTooShort,
			Message:    fmt.Sprintf("note is short (%d chars)", chars),
			Suggestion: "aim for 1,500-2,000 characters",
		})
	case chars > maxNoteChars:
		issues = append(issues, Issue{
			Priority:   models.P2,
			Category:   CategoryLength,
			Code:       CodeTooLong,
			Message:    fmt.Sprintf("note is long (%d chars)", chars),
			Suggestion: "split the note or trim it below 2,000 characters",
		})
	}

	h2 := 0
	for _, s := range sections {
		if s.Level == 2 {
			h2++
		}
	}
	if h2 == 0 {
		return issues
	}
	switch {
	case h2 < minSections:
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategoryLength,
			Code:       CodeFewSections,
			Message:    fmt.Sprintf("too few sections (%d)", h2),
			Suggestion: "use 5-8 sections",
		})
	case h2 > maxSections:
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategoryLength,
			Code:       CodeManySections,
			Message:    fmt.Sprintf("too many sections (%d)", h2),
			Suggestion: "use 5-8 sections",
		})
	}
	density := chars / h2
	switch {
	case density < minDensity:
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategoryLength,
			Code:       CodeSparse,
			Message:    fmt.Sprintf("low density (%d chars/section)", density),
			Suggestion: "aim for 200-250 characters per section",
		})
	case density > maxDensity:
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategoryLength,
			Code:       CodeDense,
			Message:    fmt.Sprintf("high density (%d chars/section)", density),
			Suggestion: "aim for 200-250 characters per section",
		})
	}
	return issues
}

func (c *Checker) checkExamples(sections []parser.Section) []Issue {
	var issues []Issue
	count := 0
	for _, s := range sections {
		if s.Level != 3 {
			continue
		}
		m := exampleRe.FindStringSubmatch(s.Heading)
		if m == nil {
			continue
		}
		count++
		if len(foundTerms(m[1], c.rules.ExampleVagueTerms)) > 0 || len(foundTerms(s.Content, c.rules.ExampleVagueTerms)) > 0 {
			issues = append(issues, Issue{
				Priority:   models.P3,
				Category:   CategoryExamples,
				Code:       CodeVagueExample,
				Section:    s.Heading,
				Message:    fmt.Sprintf("example %d is abstract", count),
				Suggestion: "use concrete names and numbers",
			})
		}
		if n := runeLen(s.Content); n < minExampleChars {
			issues = append(issues, Issue{
				Priority:   models.P3,
				Category:   CategoryExamples,
				Code:       CodeShortExample,
				Section:    s.Heading,
				Message:    fmt.Sprintf("example %d is short (%d chars)", count, n),
				Suggestion: fmt.Sprintf("write at least %d characters", minExampleChars),
			})
		}
	}
	if count > maxExamples {
		issues = append(issues, Issue{
			Priority:   models.P3,
			Category:   CategoryExamples,
			Code:       CodeManyExamples,
			Message:    fmt.Sprintf("too many examples (%d)", count),
			Suggestion: "keep two or three examples",
		})
	}
	return issues
}

func (c *Checker) checkMath(n models.Note) []Issue {
	if !c.isConcept(n) {
		return nil
	}
	if strings.Count(n.Body, "$") >= 2 {
		return nil
	}
	return []Issue{{
		Priority:   models.P1,
		Category:   CategoryMath,
		Code:       CodeMissingMath,
		Message:    "concept note has no math",
		Suggestion: "add LaTeX such as $E=mc^2$ or $$\\int f(x)dx$$",
	}}
}

func (c *Checker) isConcept(n models.Note) bool {
	name := strings.ToLower(models.Filename(n.Path))
	for _, kw := range c.rules.ConceptKeywords {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return conceptHeadRe.MatchString(n.Body)
}

func findSection(sections []parser.Section, name string) (parser.Section, bool) {
	for _, s := range sections {
		if s.Level == 2 && strings.EqualFold(strings.TrimSpace(s.Heading), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return parser.Section{}, false
}

func foundTerms(text string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasLetter(rs []rune) bool {
	for _, r := range rs {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
