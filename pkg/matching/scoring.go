package matching

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

const (
	tokenWeight          = 0.6
	charWeight           = 0.4
	lengthPenaltyCeiling = 0.7
)

// Scorer computes similarity between normalized college names
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Similarity returns a score in [0,1] for two normalized names. Equal names
// short-circuit to 1. Otherwise token overlap and character similarity are
// blended and names of very different length are penalized.
func (s *Scorer) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	combined := tokenWeight*s.TokenOverlap(a, b) + charWeight*s.LCSRatio(a, b)

	if ratio := s.LengthRatio(a, b); ratio < lengthPenaltyCeiling {
		combined *= ratio
	}

	if combined > 1 {
		return 1
	}
	return combined
}

// TokenOverlap weighs each token of a by 1/(position+1) and returns the share
// of that weight carried by tokens that also occur in b
func (s *Scorer) TokenOverlap(a, b string) float64 {
	aTokens := strings.Fields(a)
	if len(aTokens) == 0 {
		return 0
	}

	bTokens := make(map[string]struct{})
	for _, t := range strings.Fields(b) {
		bTokens[t] = struct{}{}
	}

	var matched, total float64
	for i, t := range aTokens {
		w := 1.0 / float64(i+1)
		total += w
		if _, ok := bTokens[t]; ok {
			matched += w
		}
	}

	return matched / total
}

// LCSRatio returns 2*LCS/(len(a)+len(b)) over runes
func (s *Scorer) LCSRatio(a, b string) float64 {
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 0
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

// LengthRatio returns min(len)/max(len) of the two names in runes
func (s *Scorer) LengthRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}
