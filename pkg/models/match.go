package models

import (
	"strconv"
	"time"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
)

// MatchPass is the tier that produced a result. Manual decisions use PassManual.
type MatchPass int

const (
	PassManual MatchPass = iota
	PassExact
	PassNormalizedExact
	PassHighFuzzy
	PassMediumFuzzy
	PassLowFuzzy
	PassUnmatched
)

// ReviewPass is the first pass whose results are queued for a reviewer
const ReviewPass = PassMediumFuzzy

func (p MatchPass) String() string {
	if p == PassManual {
		return "manual-alias"
	}
	return strconv.Itoa(int(p))
}

// MatchMethod tags how a result was produced
type MatchMethod string

const (
	MethodManualAlias     MatchMethod = "manual-alias"
	MethodManualNoMatch   MatchMethod = "manual-no-match"
	MethodExact           MatchMethod = "exact"
	MethodNormalizedExact MatchMethod = "normalized-exact"
	MethodHighFuzzy       MatchMethod = "high-fuzzy"
	MethodMediumFuzzy     MatchMethod = "medium-fuzzy"
	MethodLowFuzzy        MatchMethod = "low-fuzzy"
	MethodUnmatched       MatchMethod = "unmatched"
	MethodIndexExact      MatchMethod = "index-exact"
	MethodIndexFuzzy      MatchMethod = "index-fuzzy"
	MethodError           MatchMethod = "error"
)

// Strategy names
const (
	StrategyProgressive = "progressive"
	StrategyIndex       = "index"
)

// MatchResult is the current resolution of one candidate
type MatchResult struct {
	State            string      `json:"state" db:"state"`
	RawName          string      `json:"raw_name" db:"raw_name"`
	CollegeID        *string     `json:"college_id,omitempty" db:"college_id"`
	CollegeName      string      `json:"college_name,omitempty" db:"college_name"`
	CollegeState     string      `json:"college_state,omitempty" db:"college_state"`
	Pass             MatchPass   `json:"pass" db:"pass"`
	Method           MatchMethod `json:"method" db:"method"`
	Confidence       float64     `json:"confidence" db:"confidence"`
	Score            float64     `json:"score" db:"score"`
	Ambiguous        bool        `json:"ambiguous" db:"ambiguous"`
	NeedsReview      bool        `json:"needs_review" db:"needs_review"`
	Manual           bool        `json:"manual" db:"manual"`
	MatchedVariation string      `json:"matched_variation,omitempty" db:"matched_variation"`
	Strategy         string      `json:"strategy" db:"strategy"`
	RecordCount      int         `json:"record_count" db:"record_count"`
	Fingerprint      string      `json:"fingerprint" db:"fingerprint"`
	MatchedAt        time.Time   `json:"matched_at" db:"matched_at"`
}

// Key returns the candidate key of the result
func (m *MatchResult) Key() CandidateKey {
	return CandidateKey{State: m.State, RawName: m.RawName}
}

// IsMatched reports whether the result points at a registry entry
func (m *MatchResult) IsMatched() bool {
	return m.CollegeID != nil && *m.CollegeID != ""
}

// RequiresReview applies the review routing rule. Manual results are never queued.
func (m *MatchResult) RequiresReview() bool {
	if m.Manual {
		return false
	}
	return m.Pass >= ReviewPass || m.Ambiguous || m.Method == MethodError
}

// ComputeFingerprint hashes every field that describes the outcome. The timestamp
// is left out so an unchanged re-run produces the same fingerprint.
func (m *MatchResult) ComputeFingerprint() string {
	collegeID := ""
	if m.CollegeID != nil {
		collegeID = *m.CollegeID
	}
	return fingerprint.Generate(map[string]any{
		"state":             m.State,
		"raw_name":          m.RawName,
		"college_id":        collegeID,
		"college_name":      m.CollegeName,
		"college_state":     m.CollegeState,
		"pass":              int(m.Pass),
		"method":            string(m.Method),
		"confidence":        m.Confidence,
		"score":             m.Score,
		"ambiguous":         m.Ambiguous,
		"needs_review":      m.NeedsReview,
		"manual":            m.Manual,
		"matched_variation": m.MatchedVariation,
		"strategy":          m.Strategy,
		"record_count":      m.RecordCount,
	})
}

// ReviewItem is a result waiting for a human decision
type ReviewItem struct {
	MatchResult
	Reason string `json:"reason"`
}

// ReviewAction is what a reviewer decided
type ReviewAction string

const (
	ReviewActionAccept   ReviewAction = "accept"
	ReviewActionReassign ReviewAction = "reassign"
	ReviewActionNoMatch  ReviewAction = "no-match"
	ReviewActionImport   ReviewAction = "import"
)

// ReviewDecision is submitted by a reviewer for one candidate
type ReviewDecision struct {
	Key       CandidateKey `json:"key" validate:"required"`
	Action    ReviewAction `json:"action" validate:"required,oneof=accept reassign no-match import"`
	CollegeID string       `json:"college_id,omitempty" validate:"required_if=Action reassign"`
	Reviewer  string       `json:"reviewer,omitempty"`
	Note      string       `json:"note,omitempty"`
}
