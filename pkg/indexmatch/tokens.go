package indexmatch

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// stopWords never make a match meaningful on their own
var stopWords = map[string]bool{
	"OF": true, "AND": true, "THE": true, "IN": true, "FOR": true, "AT": true,
	"COLLEGE": true, "MEDICAL": true, "DENTAL": true, "INSTITUTE": true,
	"HOSPITAL": true, "GOVERNMENT": true, "SCIENCE": true, "SCIENCES": true,
	"RESEARCH": true, "CENTER": true, "UNIVERSITY": true, "EDUCATION": true,
}

// IsStopWord reports whether a normalized token is too common to identify a college
func IsStopWord(token string) bool {
	return stopWords[token]
}

// typoBudget mirrors the usual search-engine defaults: no typo below five
// characters, one up to eight, two beyond.
func typoBudget(token string) int {
	n := len([]rune(token))
	switch {
	case n < 5:
		return 0
	case n < 9:
		return 1
	default:
		return 2
	}
}

// tokenMatch reports whether query token q matches field token f within the
// typo budget of q, and how many edits it took
func tokenMatch(q, f string) (bool, int) {
	if q == f {
		return true, 0
	}
	budget := typoBudget(q)
	if budget == 0 {
		return false, 0
	}
	d := levenshtein.ComputeDistance(q, f)
	return d <= budget, d
}

// fieldMatch describes how a query matched one field of a document
type fieldMatch struct {
	Field      string
	Value      string
	Matched    int
	Meaningful int
	Typos      int
	Exact      bool
}

func (m fieldMatch) better(o fieldMatch) bool {
	if m.Exact != o.Exact {
		return m.Exact
	}
	if m.Meaningful != o.Meaningful {
		return m.Meaningful > o.Meaningful
	}
	if m.Matched != o.Matched {
		return m.Matched > o.Matched
	}
	return m.Typos < o.Typos
}

// matchField compares query tokens with a field value. Exact means every
// query token sits at the same position of the field without typos and the
// field has nothing else.
func matchField(field, value string, query []string) fieldMatch {
	m := fieldMatch{Field: field, Value: value}
	tokens := strings.Fields(value)
	if len(tokens) == 0 {
		return m
	}

	m.Exact = len(tokens) == len(query)
	for i, q := range query {
		if m.Exact && tokens[i] != q {
			m.Exact = false
		}

		best, found := -1, false
		for _, t := range tokens {
			if ok, typos := tokenMatch(q, t); ok && (!found || typos < best) {
				best, found = typos, true
			}
		}
		if !found {
			continue
		}
		m.Matched++
		m.Typos += best
		if !IsStopWord(q) {
			m.Meaningful++
		}
	}
	return m
}

// bestField evaluates every searchable field of a document
func bestField(doc Document, query []string) fieldMatch {
	var best fieldMatch
	for i, f := range doc.fields() {
		m := matchField(f.name, f.value, query)
		if i == 0 || m.better(best) {
			best = m
		}
	}
	return best
}
