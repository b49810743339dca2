package activity

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	labeledDateRe = regexp.MustCompile(`(?:\*\*)?(?:Date|날짜)(?::\*\*|\*\*:|:)\s*(\d{4}-\d{2}-\d{2})`)
	anyDateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	suggestionsRe = regexp.MustCompile(`(?:\*\*)?(?:Suggestions|AI\s*제안\s*수)(?::\*\*|\*\*:|:)[ \t]*\n?\s*-?\s*(\d+)`)
	countRe       = regexp.MustCompile(`(\d+)\s*개`)
	hashRefRe     = regexp.MustCompile(`#(\d+)`)

	// Bold execution labels in preference order.
	boldExecRes = []*regexp.Regexp{
		regexp.MustCompile(`\*\*(?:Executed|실행\s*여부)(?::\*\*|\*\*:)`),
		regexp.MustCompile(`\*\*실행(?::\*\*|\*\*:)`),
	}
	plainExecRe = regexp.MustCompile(`(?m)^[ \t]*(?:Executed|실행\s*여부):`)
)

// Parse reads every "## Day N" section of content.
func Parse(content string, loc *time.Location) []Entry {
	var out []Entry
	for _, s := range splitDays(content) {
		if e := parseSection(s.num, content[s.start:s.end], loc); e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func parseSection(num int, sec string, loc *time.Location) *Entry {
	// Drop the heading line.
	if i := strings.Index(sec, "\n"); i >= 0 {
		sec = sec[i+1:]
	} else {
		sec = ""
	}

	var raw string
	if m := labeledDateRe.FindStringSubmatch(sec); m != nil {
		raw = m[1]
	} else {
		raw = anyDateRe.FindString(sec)
	}
	if raw == "" {
		return nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil
	}

	e := &Entry{Day: num, Date: date}
	if m := suggestionsRe.FindStringSubmatch(sec); m != nil {
		e.Suggestions, _ = strconv.Atoi(m[1])
	}
	e.Completed, e.Pending = executionCounts(sec)
	e.Executed = e.Completed > 0
	return e
}

// executionCounts finds the execution block and counts completed and
// pending items in it.
func executionCounts(sec string) (completed, pending int) {
	text, structured := executionBlock(sec)
	if text == "" {
		return 0, 0
	}
	completed, pending = markedLines(text)
	if completed > 0 || pending > 0 || structured {
		return completed, pending
	}

	// Free-text execution notes.
	lower := strings.ToLower(text)
	if !strings.Contains(text, "완료") && !strings.Contains(text, "실행") &&
		!strings.Contains(lower, "done") && !strings.Contains(lower, "executed") {
		return 0, 0
	}
	if m := countRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return n, 0
		}
	}
	if refs := hashRefRe.FindAllString(text, -1); len(refs) >= 2 {
		return len(refs), 0
	}
	if strings.Contains(text, markDone) {
		return 1, 0
	}
	return 0, 0
}

// executionBlock returns the text under the execution label. structured is
// true for the "**실행:**" list form, which is only ever counted by marks.
func executionBlock(sec string) (text string, structured bool) {
	for i, re := range boldExecRes {
		loc := re.FindStringIndex(sec)
		if loc == nil {
			continue
		}
		rest := sec[loc[1]:]
		if end := strings.Index(rest, "\n**"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest), i == 1
	}

	loc := plainExecRe.FindStringIndex(sec)
	if loc == nil {
		return "", false
	}
	lines := strings.Split(sec[loc[1]:], "\n")
	block := []string{lines[0]}
	for _, line := range lines[1:] {
		if strings.Contains(line, ":") || strings.Contains(line, "메모") {
			break
		}
		block = append(block, line)
	}
	return strings.TrimSpace(strings.Join(block, "\n")), false
}

func markedLines(text string) (done, pending int) {
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "-") {
			continue
		}
		switch {
		case strings.Contains(t, markDone):
			done++
		case strings.Contains(t, pendingGlyph):
			pending++
		}
	}
	return done, pending
}
