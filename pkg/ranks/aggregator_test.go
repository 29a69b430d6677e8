package ranks

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func record(rank int, course, category string, round int) *models.RawAdmissionRecord {
	return &models.RawAdmissionRecord{
		Year: 2024, Round: round, Quota: "AIQ", RawCollegeName: "Goa Medical College", State: "Goa",
		RawCourseName: course, Category: category, Rank: rank,
	}
}

func candidateWith(state, raw string, records ...*models.RawAdmissionRecord) *models.UniqueCollegeCandidate {
	c := &models.UniqueCollegeCandidate{Key: models.CandidateKey{State: state, RawName: raw}}
	for _, r := range records {
		c.Add(r)
	}
	return c
}

func matched(state, raw, collegeID string) *models.MatchResult {
	return &models.MatchResult{State: state, RawName: raw, CollegeID: &collegeID, CollegeName: "Goa Medical College"}
}

func TestAggregator_OpeningClosingSeats(t *testing.T) {
	agg := NewAggregator(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

	candidates := []*models.UniqueCollegeCandidate{
		candidateWith("GOA", "Goa Medical College", record(340, "MBBS", "GEN", 1)),
		candidateWith("GOA", "GMC Bambolim", record(120, "mbbs", "GEN", 1), record(120, "MBBS ", "GEN", 1)),
		candidateWith("GOA", "XYZ Unknown Institute", record(77, "MBBS", "GEN", 1)),
	}
	results := []*models.MatchResult{
		matched("GOA", "Goa Medical College", "goa"),
		matched("GOA", "GMC Bambolim", "goa"),
		{State: "GOA", RawName: "XYZ Unknown Institute"},
	}

	summary := agg.Aggregate(context.Background(), candidates, MapLookup(results))
	require.Len(t, summary.Entries, 1)

	entry := summary.Entries[0]
	assert.Equal(t, models.RankKey{CollegeID: "goa", Course: "MBBS", Category: "GEN", Quota: "AIQ", Round: 1, Year: 2024}, entry.RankKey)
	assert.Equal(t, 120, entry.OpeningRank)
	assert.Equal(t, 340, entry.ClosingRank)
	assert.Equal(t, 2, entry.Seats)
	assert.Equal(t, 3, entry.RecordCount)
	assert.False(t, entry.Anomaly)
	assert.Empty(t, summary.Anomalies)

	assert.Equal(t, 3, summary.Linked)
	assert.Equal(t, 1, summary.Unlinked)
}

func TestAggregator_GroupsByEveryKeyField(t *testing.T) {
	agg := NewAggregator(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

	tests := []struct {
		name    string
		records []*models.RawAdmissionRecord
		entries int
	}{
		{name: "same key", records: []*models.RawAdmissionRecord{record(1, "MBBS", "GEN", 1), record(2, "MBBS", "GEN", 1)}, entries: 1},
		{name: "course splits", records: []*models.RawAdmissionRecord{record(1, "MBBS", "GEN", 1), record(2, "BDS", "GEN", 1)}, entries: 2},
		{name: "category splits", records: []*models.RawAdmissionRecord{record(1, "MBBS", "GEN", 1), record(2, "MBBS", "OBC", 1)}, entries: 2},
		{name: "round splits", records: []*models.RawAdmissionRecord{record(1, "MBBS", "GEN", 1), record(2, "MBBS", "GEN", 2)}, entries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidateWith("GOA", "Goa Medical College", tt.records...)
			summary := agg.Aggregate(context.Background(), []*models.UniqueCollegeCandidate{c}, MapLookup([]*models.MatchResult{matched("GOA", "Goa Medical College", "goa")}))
			assert.Len(t, summary.Entries, tt.entries)

			total := 0
			for _, e := range summary.Entries {
				total += e.RecordCount
			}
			assert.Equal(t, len(tt.records), total)
		})
	}
}

func TestKeys(t *testing.T) {
	goaKey := models.RankKey{CollegeID: "goa", Course: "MBBS", Category: "GEN", Quota: "AIQ", Round: 1, Year: 2024}
	grantKey := goaKey
	grantKey.CollegeID = "grant"

	candidates := []*models.UniqueCollegeCandidate{
		candidateWith("GOA", "GMC", record(120, "MBBS", "GEN", 1)),
		candidateWith("GOA", "XYZ Unknown Institute", record(900, "MBBS", "GEN", 1)),
	}

	tests := []struct {
		name    string
		lookups []ResultLookup
		want    []models.RankKey
	}{
		{
			name:    "unlinked candidates have no keys",
			lookups: []ResultLookup{MapLookup(nil)},
			want:    nil,
		},
		{
			name:    "current links",
			lookups: []ResultLookup{MapLookup([]*models.MatchResult{matched("GOA", "GMC", "goa")})},
			want:    []models.RankKey{goaKey},
		},
		{
			name: "relinked candidate keeps the key it left",
			lookups: []ResultLookup{
				MapLookup([]*models.MatchResult{matched("GOA", "GMC", "grant")}),
				MapLookup([]*models.MatchResult{matched("GOA", "GMC", "goa")}),
			},
			want: []models.RankKey{goaKey, grantKey},
		},
		{
			name: "same link twice",
			lookups: []ResultLookup{
				MapLookup([]*models.MatchResult{matched("GOA", "GMC", "goa")}),
				MapLookup([]*models.MatchResult{matched("GOA", "GMC", "goa")}),
			},
			want: []models.RankKey{goaKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keys(candidates, tt.lookups...))
		})
	}
}
