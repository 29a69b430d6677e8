// Package ranks computes opening and closing ranks per college from linked records
package ranks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ResultLookup finds the current match result of a candidate
type ResultLookup func(key models.CandidateKey) (*models.MatchResult, bool)

// Summary is the outcome of one aggregation
type Summary struct {
	Entries   []*models.RankEntry `json:"entries"`
	Anomalies []*models.RankEntry `json:"anomalies"`
	Linked    int                 `json:"linked_records"`
	Unlinked  int                 `json:"unlinked_records"`
}

// Aggregator groups linked records into rank entries
type Aggregator struct {
	logger ectologger.Logger
	now    func() time.Time
}

func NewAggregator(logger ectologger.Logger) *Aggregator {
	return &Aggregator{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type group struct {
	entry *models.RankEntry
	ranks map[int]struct{}
}

// Aggregate resolves every record through its candidate's result and groups
// the linked ones by (college, course, category, quota, round, year).
func (a *Aggregator) Aggregate(ctx context.Context, candidates []*models.UniqueCollegeCandidate, lookup ResultLookup) *Summary {
	_, span := tracing.StartSpan(ctx, "ranks.Aggregator.Aggregate")
	defer span.End()

	summary := &Summary{}
	groups := make(map[models.RankKey]*group)
	now := a.now()

	for _, c := range candidates {
		result, ok := lookup(c.Key)
		linked := ok && result.IsMatched()
		for _, r := range c.Records {
			if !linked {
				summary.Unlinked++
				continue
			}
			summary.Linked++

			key := keyOf(*result.CollegeID, r)
			g, ok := groups[key]
			if !ok {
				g = &group{
					entry: &models.RankEntry{
						RankKey:     key,
						CollegeName: result.CollegeName,
						OpeningRank: r.Rank,
						ClosingRank: r.Rank,
						ComputedAt:  now,
					},
					ranks: make(map[int]struct{}),
				}
				groups[key] = g
			}
			if r.Rank < g.entry.OpeningRank {
				g.entry.OpeningRank = r.Rank
			}
			if r.Rank > g.entry.ClosingRank {
				g.entry.ClosingRank = r.Rank
			}
			g.ranks[r.Rank] = struct{}{}
			g.entry.RecordCount++
		}
	}

	for _, g := range groups {
		g.entry.Seats = len(g.ranks)
		if !g.entry.Validate() {
			summary.Anomalies = append(summary.Anomalies, g.entry)
		}
		summary.Entries = append(summary.Entries, g.entry)
	}
	sortEntries(summary.Entries)
	sortEntries(summary.Anomalies)

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"entries":   len(summary.Entries),
		"anomalies": len(summary.Anomalies),
		"linked":    summary.Linked,
		"unlinked":  summary.Unlinked,
	}).Info("Aggregated rank entries")

	return summary
}

// Keys lists the rank keys the candidates' records fall under through any of
// the lookups. Passing the results from before and after a run gives every
// key the run may have changed, including keys a relinked candidate left.
func Keys(candidates []*models.UniqueCollegeCandidate, lookups ...ResultLookup) []models.RankKey {
	seen := make(map[models.RankKey]struct{})
	var keys []models.RankKey
	for _, lookup := range lookups {
		for _, c := range candidates {
			result, ok := lookup(c.Key)
			if !ok || !result.IsMatched() {
				continue
			}
			for _, r := range c.Records {
				key := keyOf(*result.CollegeID, r)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
	return keys
}

func keyOf(collegeID string, r *models.RawAdmissionRecord) models.RankKey {
	return models.RankKey{
		CollegeID: collegeID,
		Course:    label(r.RawCourseName),
		Category:  label(r.Category),
		Quota:     label(r.Quota),
		Round:     r.Round,
		Year:      r.Year,
	}
}

// label canonicalizes a grouping value so spelling case and spacing do not split groups
func label(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func sortEntries(entries []*models.RankEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return keyLess(entries[i].RankKey, entries[j].RankKey)
	})
}

func keyLess(a, b models.RankKey) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	if a.CollegeID != b.CollegeID {
		return a.CollegeID < b.CollegeID
	}
	if a.Course != b.Course {
		return a.Course < b.Course
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Quota != b.Quota {
		return a.Quota < b.Quota
	}
	return a.Round < b.Round
}

// MapLookup adapts a slice of results to a ResultLookup
func MapLookup(results []*models.MatchResult) ResultLookup {
	byKey := make(map[models.CandidateKey]*models.MatchResult, len(results))
	for _, r := range results {
		byKey[r.Key()] = r
	}
	return func(key models.CandidateKey) (*models.MatchResult, bool) {
		r, ok := byKey[key]
		return r, ok
	}
}
