package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestMatchResult_RequiresReview(t *testing.T) {
	tests := []struct {
		name   string
		result MatchResult
		want   bool
	}{
		{name: "high fuzzy", result: MatchResult{Pass: PassHighFuzzy, Method: MethodHighFuzzy}, want: false},
		{name: "medium fuzzy", result: MatchResult{Pass: PassMediumFuzzy, Method: MethodMediumFuzzy}, want: true},
		{name: "unmatched", result: MatchResult{Pass: PassUnmatched, Method: MethodUnmatched}, want: true},
		{name: "ambiguous exact", result: MatchResult{Pass: PassNormalizedExact, Ambiguous: true}, want: true},
		{name: "search error", result: MatchResult{Pass: PassUnmatched, Method: MethodError}, want: true},
		{name: "manual no match", result: MatchResult{Pass: PassUnmatched, Method: MethodManualNoMatch, Manual: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.RequiresReview())
		})
	}
}

func TestMatchResult_FingerprintIgnoresTimestamp(t *testing.T) {
	a := MatchResult{State: "GOA", RawName: "X", CollegeID: strPtr("c1"), Pass: PassExact, Confidence: 1, MatchedAt: time.Now()}
	b := a
	b.MatchedAt = a.MatchedAt.Add(time.Hour)
	assert.Equal(t, a.ComputeFingerprint(), b.ComputeFingerprint())

	b.Pass = PassNormalizedExact
	assert.NotEqual(t, a.ComputeFingerprint(), b.ComputeFingerprint())
}

func TestMatchPass_String(t *testing.T) {
	assert.Equal(t, "manual-alias", PassManual.String())
	assert.Equal(t, "5", PassLowFuzzy.String())
}

func TestRankEntry_Validate(t *testing.T) {
	ok := RankEntry{OpeningRank: 120, ClosingRank: 340}
	assert.True(t, ok.Validate())
	assert.False(t, ok.Anomaly)

	bad := RankEntry{OpeningRank: 500, ClosingRank: 20}
	assert.False(t, bad.Validate())
	assert.True(t, bad.Anomaly)
}
