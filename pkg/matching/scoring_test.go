package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Similarity(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "identical", a: "SETH GS MEDICAL COLLEGE", b: "SETH GS MEDICAL COLLEGE", expected: 1},
		{name: "empty", a: "", b: "GOA MEDICAL COLLEGE", expected: 0},
		{name: "single token near miss", a: "ABC", b: "ABD", expected: 0.4 * (4.0 / 6.0)},
		{name: "suffix added", a: "GOVERNMENT MEDICAL COLLEGE", b: "GOVERNMENT MEDICAL COLLEGE NAGPUR", expected: 0.6 + 0.4*(52.0/59.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorer_LengthPenalty(t *testing.T) {
	scorer := NewScorer()

	a, b := "GMC", "GOVERNMENT MEDICAL COLLEGE"
	ratio := scorer.LengthRatio(a, b)
	assert.Less(t, ratio, 0.7)

	unpenalized := 0.6*scorer.TokenOverlap(a, b) + 0.4*scorer.LCSRatio(a, b)
	assert.InDelta(t, unpenalized*ratio, scorer.Similarity(a, b), 1e-9)
}

func TestScorer_TokenOverlapWeightsEarlyTokens(t *testing.T) {
	scorer := NewScorer()

	// first token carries weight 1, second 1/2
	assert.InDelta(t, 1.0/1.5, scorer.TokenOverlap("KASTURBA HOSPITAL", "KASTURBA MEDICAL COLLEGE"), 1e-9)
	assert.InDelta(t, 0.5/1.5, scorer.TokenOverlap("KASTURBA HOSPITAL", "CIVIL HOSPITAL"), 1e-9)
}

func TestScorer_LCSRatio(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "classic pair", a: "ABCBDAB", b: "BDCABA", want: 8.0 / 13.0},
		{name: "identical", a: "GOA", b: "GOA", want: 1},
		{name: "one empty", a: "", b: "ABC", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "counts runes", a: "ÉCOLE", b: "ECOLE", want: 8.0 / 10.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scorer.LCSRatio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorer_Bounded(t *testing.T) {
	scorer := NewScorer()
	names := []string{"A", "GOA MEDICAL COLLEGE", "GOA DENTAL COLLEGE", "COLLEGE GOA MEDICAL", "X Y Z"}
	for _, a := range names {
		for _, b := range names {
			score := scorer.Similarity(a, b)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}
