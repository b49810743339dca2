// Package relevance scores how related notes are and suggests links.
package relevance

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeywords bounds the keywords extracted from one text.
const MaxKeywords = 20

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		about above after again against also although among another because been
		before being below between both could does doing down during each either
		else even every from further have having here hers herself himself into
		itself just like made make many more most much must myself neither never
		note notes only other ought ours ourselves over same shall should some
		such than that their theirs them themselves then there these they this
		those though through under until upon very were what when where whether
		which while whom whose will with within without would your yours yourself
		yourselves http https`) {
		stopwords[w] = struct{}{}
	}
}

// tokens splits text into lowercase letter/digit runs.
func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func keep(tok string) bool {
	if utf8.RuneCountInString(tok) <= 3 {
		return false
	}
	_, stop := stopwords[tok]
	return !stop
}

// ExtractKeywords returns up to MaxKeywords of the most frequent significant
// words in text, most frequent first, ties broken alphabetically.
func ExtractKeywords(text string) []string {
	freq := make(map[string]int)
	for _, tok := range tokens(text) {
		if keep(tok) {
			freq[tok]++
		}
	}
	out := make([]string, 0, len(freq))
	for w := range freq {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if freq[out[i]] != freq[out[j]] {
			return freq[out[i]] > freq[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > MaxKeywords {
		out = out[:MaxKeywords]
	}
	return out
}

// tokenSet returns the set of lowercase tokens in text.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokens(text) {
		set[tok] = struct{}{}
	}
	return set
}
