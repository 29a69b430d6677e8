package normalizers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	pinCodeRe    = regexp.MustCompile(`-?\s*\d{6}`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

// shortHeadLength is the length below which the text before the first comma is
// treated as an abbreviation that needs the next segment for context
const shortHeadLength = 20

// AliasDefect describes a problem in the state alias table
type AliasDefect struct {
	From   string
	To     string
	Reason string
}

func (d AliasDefect) String() string {
	return fmt.Sprintf("%s -> %s: %s", d.From, d.To, d.Reason)
}

type abbreviation struct {
	short     string
	pattern   *regexp.Regexp
	expansion string
}

// NameNormalizer canonicalizes college and state names. It is immutable once
// built and safe for concurrent use.
type NameNormalizer struct {
	typos           []Replacement
	abbreviations   []abbreviation
	stateAliases    map[string]string
	canonicalStates map[string]bool
	defects         []AliasDefect
}

// NewNameNormalizer compiles tables into a normalizer. Reciprocal state aliases
// are reported as defects and only the first declared direction is kept.
func NewNameNormalizer(tables *Tables) *NameNormalizer {
	n := &NameNormalizer{
		typos:           make([]Replacement, 0, len(tables.Typos)),
		stateAliases:    make(map[string]string, len(tables.StateAliases)),
		canonicalStates: make(map[string]bool, len(tables.CanonicalStates)),
	}

	for _, t := range tables.Typos {
		n.typos = append(n.typos, Replacement{From: strings.ToUpper(t.From), To: strings.ToUpper(t.To)})
	}

	for _, a := range tables.Abbreviations {
		n.abbreviations = append(n.abbreviations, abbreviation{
			short:     strings.ToUpper(a.From),
			pattern:   regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToUpper(a.From)) + `\b`),
			expansion: strings.ToUpper(a.To),
		})
	}

	for _, s := range tables.CanonicalStates {
		n.canonicalStates[cleanState(s)] = true
	}

	for _, alias := range tables.StateAliases {
		from, to := cleanState(alias.From), cleanState(alias.To)
		if from == to {
			continue
		}
		if back, ok := n.stateAliases[to]; ok && back == from {
			n.defects = append(n.defects, AliasDefect{From: from, To: to, Reason: "reciprocal of an earlier alias, ignored"})
			continue
		}
		if existing, ok := n.stateAliases[from]; ok && existing != to {
			n.defects = append(n.defects, AliasDefect{From: from, To: to, Reason: fmt.Sprintf("already aliased to %s, ignored", existing)})
			continue
		}
		if n.canonicalStates[from] {
			n.defects = append(n.defects, AliasDefect{From: from, To: to, Reason: "source is a canonical state"})
		}
		n.stateAliases[from] = to
	}

	return n
}

// Defects returns the alias table problems found while building the normalizer
func (n *NameNormalizer) Defects() []AliasDefect {
	return append([]AliasDefect(nil), n.defects...)
}

// Abbreviations returns the abbreviation table in declaration order
func (n *NameNormalizer) Abbreviations() []Replacement {
	out := make([]Replacement, 0, len(n.abbreviations))
	for _, a := range n.abbreviations {
		out = append(out, Replacement{From: a.short, To: a.expansion})
	}
	return out
}

// College returns the canonical token string for a college name
func (n *NameNormalizer) College(name string) string {
	s := strings.ToUpper(strings.TrimSpace(Fold(name)))
	if s == "" {
		return ""
	}

	for _, t := range n.typos {
		s = strings.ReplaceAll(s, t.From, t.To)
	}
	s = strings.ReplaceAll(s, "&", " AND ")

	// punctuation goes first so dotted initials ("S.M.S.") expand like "SMS"
	s = collapse(stripPunctuation(s))
	for _, a := range n.abbreviations {
		s = a.pattern.ReplaceAllLiteralString(s, a.expansion)
	}
	return s
}

// State returns the canonical spelling of a state name
func (n *NameNormalizer) State(state string) string {
	s := cleanState(state)
	seen := map[string]bool{s: true}
	for {
		next, ok := n.stateAliases[s]
		if !ok || seen[next] {
			return s
		}
		seen[next] = true
		s = next
	}
}

// IsCanonicalState reports whether the normalized state is a known canonical state
func (n *NameNormalizer) IsCanonicalState(state string) bool {
	return n.canonicalStates[n.State(state)]
}

// CleanCollegeName drops the comma-delimited address suffix from a raw name.
// A short head keeps the following segment.
func CleanCollegeName(raw string) string {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 1 && len([]rune(parts[0])) < shortHeadLength {
		return parts[0] + " " + parts[1]
	}
	return parts[0]
}

// ExactHead is the raw name before the first comma, trimmed
func ExactHead(raw string) string {
	head, _, _ := strings.Cut(raw, ",")
	return strings.TrimSpace(head)
}

// NormalizeRound extracts the round number from labels such as "AIQ_PG_R2"
// or "Round 3". Labels without a number are round 1.
func NormalizeRound(raw string) int {
	match := digitsRe.FindString(raw)
	if match == "" {
		return 1
	}
	round, err := strconv.Atoi(match)
	if err != nil || round < 1 {
		return 1
	}
	return round
}

// Tokens splits a normalized name on whitespace
func Tokens(s string) []string {
	return strings.Fields(s)
}

// Fold removes diacritics and compatibility forms
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func cleanState(state string) string {
	s := strings.ToUpper(strings.TrimSpace(Fold(state)))
	s = pinCodeRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&", " AND ")
	return collapse(stripPunctuation(s))
}

// stripPunctuation drops dots and apostrophes so initials stay joined ("G.S." -> "GS")
// and turns every other non alphanumeric rune into a space so words never fuse.
func stripPunctuation(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == '.' || r == '\'' || r == '`':
		default:
			sb.WriteRune(' ')
		}
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
