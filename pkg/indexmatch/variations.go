package indexmatch

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Variations expands and contracts the abbreviation clusters of a college
// name in both directions. The normalized name itself is not included.
func Variations(normalizer *normalizers.NameNormalizer, name string) []string {
	normalized := normalizer.College(name)
	if normalized == "" {
		return nil
	}

	var out []string
	add := func(v string) {
		v = strings.Join(strings.Fields(v), " ")
		if v != "" && v != normalized {
			out = appendUnique(out, v)
		}
	}

	// the spelling as written keeps abbreviations the source used
	add(normalizers.ApplyChain(name, "fold", "uppercase", "strip_punctuation", "collapse_whitespace"))

	contracted := normalized
	for _, a := range normalizer.Abbreviations() {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(a.To) + `\b`)
		if !pattern.MatchString(normalized) {
			continue
		}
		add(pattern.ReplaceAllLiteralString(normalized, a.From))
		if pattern.MatchString(contracted) {
			contracted = pattern.ReplaceAllLiteralString(contracted, a.From)
		}
	}
	add(contracted)

	return out
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
