// Package reporting summarizes a run and exports the review worklist
package reporting

import (
	"sort"
	"strconv"
	"time"

	"github.com/Ramsey-B/clover/pkg/ingest"
	"github.com/Ramsey-B/clover/pkg/models"
)

// DefaultTopN is how many rows the top matched and unmatched lists keep
const DefaultTopN = 10

// Input is everything a summary is built from. Candidates and Quality are
// optional; without candidates there is no per-round breakdown.
type Input struct {
	RunID      string
	Strategy   string
	Results    []*models.MatchResult
	Candidates []*models.UniqueCollegeCandidate
	Quality    *ingest.QualityReport
	Anomalies  []*models.RankEntry
	TopN       int
}

// Summary is the run report
type Summary struct {
	RunID              string                `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Strategy           string                `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	GeneratedAt        time.Time             `json:"generated_at" yaml:"generated_at"`
	Candidates         int                   `json:"candidates" yaml:"candidates"`
	MatchedCandidates  int                   `json:"matched_candidates" yaml:"matched_candidates"`
	CandidateMatchRate float64               `json:"candidate_match_rate" yaml:"candidate_match_rate"`
	Records            int                   `json:"records" yaml:"records"`
	MatchedRecords     int                   `json:"matched_records" yaml:"matched_records"`
	RecordMatchRate    float64               `json:"record_match_rate" yaml:"record_match_rate"`
	NeedsReview        int                   `json:"needs_review" yaml:"needs_review"`
	ByPass             []*Breakdown          `json:"by_pass" yaml:"by_pass"`
	ByState            []*Breakdown          `json:"by_state" yaml:"by_state"`
	ByRound            []*Breakdown          `json:"by_round,omitempty" yaml:"by_round,omitempty"`
	TopMatched         []*Row                `json:"top_matched" yaml:"top_matched"`
	TopUnmatched       []*Row                `json:"top_unmatched" yaml:"top_unmatched"`
	Quality            *ingest.QualityReport `json:"quality,omitempty" yaml:"quality,omitempty"`
	Anomalies          []*models.RankEntry   `json:"rank_anomalies,omitempty" yaml:"rank_anomalies,omitempty"`
}

// Breakdown is the match rate of one group
type Breakdown struct {
	Name              string  `json:"name" yaml:"name"`
	Candidates        int     `json:"candidates" yaml:"candidates"`
	MatchedCandidates int     `json:"matched_candidates" yaml:"matched_candidates"`
	Records           int     `json:"records" yaml:"records"`
	MatchedRecords    int     `json:"matched_records" yaml:"matched_records"`
	RecordMatchRate   float64 `json:"record_match_rate" yaml:"record_match_rate"`
}

func (b *Breakdown) add(candidates, records int, matched bool) {
	b.Candidates += candidates
	b.Records += records
	if matched {
		b.MatchedCandidates += candidates
		b.MatchedRecords += records
	}
}

// Row is one candidate in a top list
type Row struct {
	State       string             `json:"state" yaml:"state"`
	RawName     string             `json:"raw_name" yaml:"raw_name"`
	CollegeName string             `json:"college_name,omitempty" yaml:"college_name,omitempty"`
	Pass        string             `json:"pass" yaml:"pass"`
	Method      models.MatchMethod `json:"method" yaml:"method"`
	Confidence  float64            `json:"confidence" yaml:"confidence"`
	Records     int                `json:"records" yaml:"records"`
}

// Build computes the summary. A candidate counts as matched when its result
// points at a college.
func Build(in Input) *Summary {
	topN := in.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	s := &Summary{
		RunID:       in.RunID,
		Strategy:    in.Strategy,
		GeneratedAt: time.Now().UTC(),
		Quality:     in.Quality,
		Anomalies:   in.Anomalies,
	}

	byPass := make(map[models.MatchPass]*Breakdown)
	byState := make(map[string]*Breakdown)
	byKey := make(map[models.CandidateKey]*models.MatchResult, len(in.Results))

	ordered := make([]*models.MatchResult, len(in.Results))
	copy(ordered, in.Results)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RecordCount != ordered[j].RecordCount {
			return ordered[i].RecordCount > ordered[j].RecordCount
		}
		return ordered[i].Key().String() < ordered[j].Key().String()
	})

	for _, r := range ordered {
		byKey[r.Key()] = r
		matched := r.IsMatched()

		s.Candidates++
		s.Records += r.RecordCount
		if matched {
			s.MatchedCandidates++
			s.MatchedRecords += r.RecordCount
		}
		if r.NeedsReview {
			s.NeedsReview++
		}

		group(byPass, r.Pass, r.Pass.String()).add(1, r.RecordCount, matched)
		group(byState, r.State, r.State).add(1, r.RecordCount, matched)

		row := &Row{
			State:       r.State,
			RawName:     r.RawName,
			CollegeName: r.CollegeName,
			Pass:        r.Pass.String(),
			Method:      r.Method,
			Confidence:  r.Confidence,
			Records:     r.RecordCount,
		}
		if matched && len(s.TopMatched) < topN {
			s.TopMatched = append(s.TopMatched, row)
		}
		if !matched && len(s.TopUnmatched) < topN {
			s.TopUnmatched = append(s.TopUnmatched, row)
		}
	}

	s.CandidateMatchRate = rate(s.MatchedCandidates, s.Candidates)
	s.RecordMatchRate = rate(s.MatchedRecords, s.Records)

	s.ByPass = sortedBreakdowns(byPass, func(a, b models.MatchPass) bool { return a < b })
	s.ByState = sortedBreakdowns(byState, func(a, b string) bool { return a < b })

	if len(in.Candidates) > 0 {
		byRound := make(map[int]*Breakdown)
		for _, c := range in.Candidates {
			r, ok := byKey[c.Key]
			matched := ok && r.IsMatched()
			seen := make(map[int]bool)
			for _, record := range c.Records {
				first := 0
				if !seen[record.Round] {
					seen[record.Round] = true
					first = 1
				}
				group(byRound, record.Round, "round "+strconv.Itoa(record.Round)).add(first, 1, matched)
			}
		}
		s.ByRound = sortedBreakdowns(byRound, func(a, b int) bool { return a < b })
	}

	return s
}

func group[K comparable](groups map[K]*Breakdown, key K, name string) *Breakdown {
	b, ok := groups[key]
	if !ok {
		b = &Breakdown{Name: name}
		groups[key] = b
	}
	return b
}

func sortedBreakdowns[K comparable](groups map[K]*Breakdown, less func(a, b K) bool) []*Breakdown {
	keys := make([]K, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	out := make([]*Breakdown, 0, len(keys))
	for _, k := range keys {
		b := groups[k]
		b.RecordMatchRate = rate(b.MatchedRecords, b.Records)
		out = append(out, b)
	}
	return out
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
