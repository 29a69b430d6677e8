package matching

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Strategy resolves one candidate against the registry. Implementations never
// return nil; failures are expressed as results with method "error".
type Strategy interface {
	Name() string
	Match(ctx context.Context, candidate *models.UniqueCollegeCandidate) *models.MatchResult
}

// AliasLookup resolves durable human decisions
type AliasLookup interface {
	LookupAlias(key models.CandidateKey) (*models.Alias, bool)
}

// AliasSet is a snapshot of aliases taken when a batch starts
type AliasSet map[models.CandidateKey]*models.Alias

// NewAliasSet indexes aliases by candidate key. Later entries win.
func NewAliasSet(aliases []*models.Alias) AliasSet {
	set := make(AliasSet, len(aliases))
	for _, a := range aliases {
		set[a.Key()] = a
	}
	return set
}

func (s AliasSet) LookupAlias(key models.CandidateKey) (*models.Alias, bool) {
	a, ok := s[key]
	return a, ok
}

// ResultFromAlias builds the manual result an alias dictates. It does not look
// at the registry so later registry edits cannot change it.
func ResultFromAlias(alias *models.Alias, candidate *models.UniqueCollegeCandidate, strategy string, now time.Time) *models.MatchResult {
	result := &models.MatchResult{
		State:       candidate.Key.State,
		RawName:     candidate.Key.RawName,
		Manual:      true,
		Strategy:    strategy,
		RecordCount: candidate.RecordCount,
		MatchedAt:   now,
	}

	if alias.NoMatch || alias.CollegeID == nil {
		result.Pass = models.PassUnmatched
		result.Method = models.MethodManualNoMatch
	} else {
		id := *alias.CollegeID
		result.CollegeID = &id
		result.CollegeName = alias.CollegeName
		result.CollegeState = candidate.Key.State
		result.Pass = models.PassManual
		result.Method = models.MethodManualAlias
		result.Confidence = 1
		result.Score = 1
	}

	return Finalize(result)
}

// Finalize applies review routing and stamps the fingerprint
func Finalize(result *models.MatchResult) *models.MatchResult {
	result.NeedsReview = result.RequiresReview()
	result.Fingerprint = result.ComputeFingerprint()
	return result
}
