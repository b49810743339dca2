// Package activity maintains the "Day N" markdown activity log and derives
// weekly summaries from it.
package activity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/starford/curator/internal/models"
	"github.com/starford/curator/internal/storage"
)

const (
	dateLayout  = "2006-01-02"
	markDone    = "✅"
	markPending = "⏸️"
	// pendingGlyph matches the pause mark with or without its variation selector.
	pendingGlyph = "⏸"
	logPreamble  = "# Activity Log\n\nDaily improvement runs, newest last.\n"
)

var (
	dayHeadRe  = regexp.MustCompile(`(?m)^##\s+Day\s+(\d+)[^\n]*$`)
	doneLineRe = regexp.MustCompile(`(?m)^-\s*` + markDone + `\s*\[P\d\]\s+(\S+)[ \t]*([^\n]*)$`)
)

// Entry is one parsed "Day N" section.
type Entry struct {
	Day         int       `json:"day"`
	Date        time.Time `json:"date"`
	Suggestions int       `json:"suggestions"`
	Completed   int       `json:"completed"`
	Pending     int       `json:"pending"`
	Executed    bool      `json:"executed"`
}

// Log reads and writes the activity log file inside the vault.
type Log struct {
	mu    sync.Mutex
	store storage.Provider
	file  string
	loc   *time.Location
}

// New returns a log stored at file. Dates are interpreted in the local zone.
func New(store storage.Provider, file string) *Log {
	return &Log{store: store, file: file, loc: time.Local}
}

// File returns the vault-relative log path.
func (l *Log) File() string { return l.file }

// Record writes the day section for date. An existing section with the same
// date is replaced, keeping its ✅ marks for improvements with the same action
// and path; otherwise a new section numbered one past the highest existing
// day is appended. applied lists the IDs of improvements that were carried
// out.
func (l *Log) Record(_ context.Context, date time.Time, imps []models.Improvement, applied []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	content, err := l.read()
	if err != nil {
		return 0, err
	}
	if content == "" {
		content = logPreamble
	}

	day := dateOnly(date, l.loc)
	secs := splitDays(content)
	maxDay := 0
	for _, s := range secs {
		if s.num > maxDay {
			maxDay = s.num
		}
	}

	for _, s := range secs {
		e := parseSection(s.num, content[s.start:s.end], l.loc)
		if e == nil || !e.Date.Equal(day) {
			continue
		}
		sec := renderDay(s.num, day, imps, applied, doneKeys(content[s.start:s.end]))
		rest := content[s.end:]
		if rest != "" {
			sec += "\n"
		}
		content = content[:s.start] + sec + rest
		return s.num, l.store.Write(l.file, []byte(content))
	}

	num := maxDay + 1
	content = strings.TrimRight(content, "\n") + "\n\n" + renderDay(num, day, imps, applied, nil)
	return num, l.store.Write(l.file, []byte(content))
}

// Entries parses every day section, in file order. Sections without a
// recognisable date are skipped. A missing log yields no entries.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	content, err := l.read()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return Parse(content, l.loc), nil
}

func (l *Log) read() (string, error) {
	data, err := l.store.Read(l.file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func doneKey(action, path string) string {
	return action + " " + path
}

// doneKeys returns the action/path keys of the ✅ lines in a day section.
func doneKeys(section string) map[string]bool {
	keys := make(map[string]bool)
	for _, m := range doneLineRe.FindAllStringSubmatch(section, -1) {
		keys[doneKey(m[1], strings.TrimSpace(m[2]))] = true
	}
	return keys
}

func renderDay(num int, date time.Time, imps []models.Improvement, applied []string, prevDone map[string]bool) string {
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Day %d\n", num)
	fmt.Fprintf(&b, "**Date:** %s\n", date.Format(dateLayout))
	fmt.Fprintf(&b, "**Suggestions:** %d\n", len(imps))
	b.WriteString("**Executed:**\n")
	if len(imps) == 0 {
		b.WriteString("- nothing to do\n")
	}
	for _, im := range imps {
		mark := markPending
		if done[im.ID] || prevDone[doneKey(im.Action, im.Path)] {
			mark = markDone
		}
		line := fmt.Sprintf("- %s [%s] %s", mark, im.Priority, im.Action)
		if im.Path != "" {
			line += " " + im.Path
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

type daySection struct {
	num        int
	start, end int
}

func splitDays(content string) []daySection {
	locs := dayHeadRe.FindAllStringSubmatchIndex(content, -1)
	out := make([]daySection, 0, len(locs))
	for i, loc := range locs {
		num, _ := strconv.Atoi(content[loc[2]:loc[3]])
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, daySection{num: num, start: loc[0], end: end})
	}
	return out
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
