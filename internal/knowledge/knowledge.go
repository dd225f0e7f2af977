// Package knowledge answers free-text questions against the venue's
// knowledge base: newline separated fact lines maintained by the admin.
package knowledge

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result sentinels.
const (
	EmptyBase  = "The knowledge base is empty. Ask the administrator to fill it in."
	EmptyQuery = "The question is empty. Please ask again."
	NoMatch    = "The knowledge base has no specific information on this question."
	resultHead = "Found in the knowledge base:"
)

const (
	maxResults       = 4
	minQueryForWhole = 4 // whole-query bonus needs more than 3 runes
	scoreWhole       = 8
	scoreToken       = 3
	scorePrefix      = 1
	separatorPrefix  = "---"
)

type line struct {
	text    string
	lower   string
	compact string
}

// Base is a parsed knowledge corpus. Safe for concurrent queries.
type Base struct {
	empty bool
	lines []line
}

// New parses corpus into candidate lines.
func New(corpus string) *Base {
	b := &Base{empty: strings.TrimSpace(corpus) == ""}
	for _, raw := range strings.FieldsFunc(corpus, func(r rune) bool { return r == '\n' || r == '\r' }) {
		text := strings.TrimSpace(raw)
		if utf8.RuneCountInString(text) < 2 || strings.HasPrefix(text, separatorPrefix) {
			continue
		}
		lower := strings.ToLower(text)
		b.lines = append(b.lines, line{text: text, lower: lower, compact: compact(lower)})
	}
	return b
}

// Len returns the number of candidate lines.
func (b *Base) Len() int { return len(b.lines) }

// Query returns up to four best matching lines as a bulleted list, or a
// sentinel when the corpus or query is empty or nothing matches.
func (b *Base) Query(query string) string {
	if b.empty {
		return EmptyBase
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return EmptyQuery
	}
	matches := b.Rank(q)
	if len(matches) == 0 {
		return NoMatch
	}

	var sb strings.Builder
	sb.WriteString(resultHead)
	for _, m := range matches {
		sb.WriteString("\n- ")
		sb.WriteString(m)
	}
	return sb.String()
}

// Rank returns the top scoring lines for q, best first.
func (b *Base) Rank(q string) []string {
	qLower := strings.ToLower(strings.TrimSpace(q))
	whole := utf8.RuneCountInString(qLower) >= minQueryForWhole
	tokens := Tokenize(qLower)

	type scored struct {
		text  string
		score int
	}
	var hits []scored
	for _, l := range b.lines {
		s := 0
		if whole && strings.Contains(l.lower, qLower) {
			s += scoreWhole
		}
		for _, tok := range tokens {
			if strings.Contains(l.lower, tok) || strings.Contains(l.compact, tok) {
				s += scoreToken
			}
			if strings.HasPrefix(l.lower, tok) || strings.HasPrefix(l.compact, tok) {
				s += scorePrefix
			}
		}
		if s > 0 {
			hits = append(hits, scored{l.text, s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}

// Query is a convenience for a one-off lookup.
func Query(query, corpus string) string {
	return New(corpus).Query(query)
}

// Tokenize lowercases s, turns every rune outside ASCII alphanumerics,
// Latin-1/Latin Extended letters, Cyrillic and whitespace into a space, and
// returns the distinct fields longer than one rune in first-seen order.
func Tokenize(s string) []string {
	mapped := strings.Map(func(r rune) rune {
		if keepRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(s))

	seen := make(map[string]struct{})
	var out []string
	for _, f := range strings.Fields(mapped) {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= 0x00C0 && r <= 0x024F:
		return true
	case r >= 0x0400 && r <= 0x04FF:
		return true
	}
	return false
}

// compact drops everything but letters and digits, so "wi-fi" reads "wifi".
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return -1
	}, s)
}
