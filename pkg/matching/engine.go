// Package matching resolves unique college candidates against the canonical registry
package matching

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/registry"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Engine runs the progressive passes
type Engine struct {
	logger     ectologger.Logger
	registry   *registry.Registry
	aliases    AliasLookup
	scorer     *Scorer
	normalizer *normalizers.NameNormalizer
	config     EngineConfig
	now        func() time.Time
}

// EngineConfig contains the pass thresholds
type EngineConfig struct {
	NormalizedExactConfidence float64 // confidence of pass 2, also the cap for pass 3
	HighThreshold             float64 // pass 3
	MediumThreshold           float64 // pass 4
	LowThreshold              float64 // pass 5
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		NormalizedExactConfidence: 0.95,
		HighThreshold:             0.90,
		MediumThreshold:           0.80,
		LowThreshold:              0.70,
	}
}

// NewEngine creates a new progressive match engine
func NewEngine(logger ectologger.Logger, reg *registry.Registry, aliases AliasLookup, config EngineConfig) *Engine {
	if aliases == nil {
		aliases = AliasSet{}
	}
	return &Engine{
		logger:     logger,
		registry:   reg,
		aliases:    aliases,
		scorer:     NewScorer(),
		normalizer: reg.Normalizer(),
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Name() string {
	return models.StrategyProgressive
}

// Match resolves one candidate, stopping at the first pass that succeeds
func (e *Engine) Match(ctx context.Context, candidate *models.UniqueCollegeCandidate) *models.MatchResult {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Match")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"state":    candidate.Key.State,
		"raw_name": candidate.Key.RawName,
	})

	if alias, ok := e.aliases.LookupAlias(candidate.Key); ok {
		log.Debug("Candidate resolved by alias")
		return ResultFromAlias(alias, candidate, e.Name(), e.now())
	}

	entries := e.registry.InState(candidate.RawState, candidate.Key.State)
	if len(entries) == 0 {
		log.Debug("No registry entries in candidate state")
		return e.unmatched(candidate, 0)
	}

	if result := e.exactPass(candidate, entries); result != nil {
		return result
	}

	normalized := e.normalizer.College(normalizers.CleanCollegeName(candidate.Key.RawName))
	if normalized == "" {
		return e.unmatched(candidate, 0)
	}

	if result := e.normalizedExactPass(candidate, normalized, entries); result != nil {
		return result
	}

	result := e.fuzzyPasses(candidate, normalized, entries)
	if result.NeedsReview {
		log.WithFields(map[string]any{
			"pass":  result.Pass,
			"score": result.Score,
		}).Debug("Candidate routed to review")
	}
	return result
}

func (e *Engine) exactPass(candidate *models.UniqueCollegeCandidate, entries []*registry.Entry) *models.MatchResult {
	head := normalizers.ExactHead(candidate.Key.RawName)
	if head == "" {
		return nil
	}

	var found *registry.Entry
	ambiguous := false
	for _, entry := range entries {
		if !strings.EqualFold(head, strings.TrimSpace(entry.Name)) {
			continue
		}
		if found == nil {
			found = entry
			continue
		}
		ambiguous = true
	}
	if found == nil {
		return nil
	}

	return e.matched(candidate, found, models.PassExact, models.MethodExact, 1, 1, ambiguous, "name")
}

func (e *Engine) normalizedExactPass(candidate *models.UniqueCollegeCandidate, normalized string, entries []*registry.Entry) *models.MatchResult {
	var found *registry.Entry
	variation := ""
	ambiguous := false
	for _, entry := range entries {
		field := ""
		switch {
		case entry.NormalizedName == normalized:
			field = "name"
		case entry.NormalizedPrevious != "" && entry.NormalizedPrevious == normalized:
			field = "previous_name"
		default:
			continue
		}
		if found == nil {
			found, variation = entry, field
			continue
		}
		ambiguous = true
	}
	if found == nil {
		return nil
	}

	return e.matched(candidate, found, models.PassNormalizedExact, models.MethodNormalizedExact,
		e.config.NormalizedExactConfidence, 1, ambiguous, variation)
}

// fuzzyPasses finds the best scoring entry once and assigns it to the first
// fuzzy tier whose threshold it clears
func (e *Engine) fuzzyPasses(candidate *models.UniqueCollegeCandidate, normalized string, entries []*registry.Entry) *models.MatchResult {
	var (
		best      *registry.Entry
		bestScore = -1.0
		variation string
		ambiguous bool
	)

	for _, entry := range entries {
		score, field := e.scoreEntry(normalized, entry)
		switch {
		case score > bestScore:
			best, bestScore, variation, ambiguous = entry, score, field, false
		case score == bestScore:
			ambiguous = true
		}
	}

	switch {
	case bestScore >= e.config.HighThreshold:
		// strictly below pass 2 so a fuzzy match never ties a normalized exact one
		confidence := math.Min(bestScore, math.Nextafter(e.config.NormalizedExactConfidence, 0))
		return e.matched(candidate, best, models.PassHighFuzzy, models.MethodHighFuzzy, confidence, bestScore, ambiguous, variation)
	case bestScore >= e.config.MediumThreshold:
		return e.matched(candidate, best, models.PassMediumFuzzy, models.MethodMediumFuzzy, bestScore, bestScore, ambiguous, variation)
	case bestScore >= e.config.LowThreshold:
		return e.matched(candidate, best, models.PassLowFuzzy, models.MethodLowFuzzy, bestScore, bestScore, ambiguous, variation)
	default:
		return e.unmatched(candidate, bestScore)
	}
}

func (e *Engine) scoreEntry(normalized string, entry *registry.Entry) (float64, string) {
	score := e.scorer.Similarity(normalized, entry.NormalizedName)
	if entry.NormalizedPrevious != "" {
		if prev := e.scorer.Similarity(normalized, entry.NormalizedPrevious); prev > score {
			return prev, "previous_name"
		}
	}
	return score, "name"
}

func (e *Engine) matched(candidate *models.UniqueCollegeCandidate, entry *registry.Entry, pass models.MatchPass, method models.MatchMethod, confidence, score float64, ambiguous bool, variation string) *models.MatchResult {
	id := entry.ID
	return Finalize(&models.MatchResult{
		State:            candidate.Key.State,
		RawName:          candidate.Key.RawName,
		CollegeID:        &id,
		CollegeName:      entry.Name,
		CollegeState:     entry.NormalizedState,
		Pass:             pass,
		Method:           method,
		Confidence:       confidence,
		Score:            score,
		Ambiguous:        ambiguous,
		MatchedVariation: variation,
		Strategy:         e.Name(),
		RecordCount:      candidate.RecordCount,
		MatchedAt:        e.now(),
	})
}

func (e *Engine) unmatched(candidate *models.UniqueCollegeCandidate, bestScore float64) *models.MatchResult {
	if bestScore < 0 {
		bestScore = 0
	}
	return Finalize(&models.MatchResult{
		State:       candidate.Key.State,
		RawName:     candidate.Key.RawName,
		Pass:        models.PassUnmatched,
		Method:      models.MethodUnmatched,
		Score:       bestScore,
		Strategy:    e.Name(),
		RecordCount: candidate.RecordCount,
		MatchedAt:   e.now(),
	})
}
