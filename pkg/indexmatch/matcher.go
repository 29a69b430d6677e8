// Package indexmatch resolves candidates through a typo-tolerant search index
package indexmatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/cenkalti/backoff/v4"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/registry"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config contains index matcher settings
type Config struct {
	Limit           int
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	FuzzyConfidence float64
}

// DefaultConfig returns default index matcher configuration
func DefaultConfig() Config {
	return Config{
		Limit:           5,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		FuzzyConfidence: 0.8,
	}
}

// Matcher resolves candidates by querying a search backend
type Matcher struct {
	logger     ectologger.Logger
	registry   *registry.Registry
	aliases    matching.AliasLookup
	backend    Backend
	normalizer *normalizers.NameNormalizer
	config     Config
	now        func() time.Time
}

// NewMatcher creates an index backed matcher. The backend must already hold
// the registry documents.
func NewMatcher(logger ectologger.Logger, reg *registry.Registry, aliases matching.AliasLookup, backend Backend, config Config) *Matcher {
	if aliases == nil {
		aliases = matching.AliasSet{}
	}
	return &Matcher{
		logger:     logger,
		registry:   reg,
		aliases:    aliases,
		backend:    backend,
		normalizer: reg.Normalizer(),
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Matcher) Name() string {
	return models.StrategyIndex
}

// Match resolves one candidate with the top hit of a state filtered query
func (m *Matcher) Match(ctx context.Context, candidate *models.UniqueCollegeCandidate) *models.MatchResult {
	ctx, span := tracing.StartSpan(ctx, "indexmatch.Matcher.Match")
	defer span.End()

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"state":    candidate.Key.State,
		"raw_name": candidate.Key.RawName,
	})

	if alias, ok := m.aliases.LookupAlias(candidate.Key); ok {
		log.Debug("Candidate resolved by alias")
		return matching.ResultFromAlias(alias, candidate, m.Name(), m.now())
	}

	query := m.normalizer.College(normalizers.CleanCollegeName(candidate.Key.RawName))
	if query == "" {
		return m.result(candidate, models.PassUnmatched, models.MethodUnmatched)
	}

	hits, err := m.search(ctx, query, candidate.Key.State)
	if err != nil {
		log.WithError(err).Warn("Search failed after retries")
		return m.result(candidate, models.PassUnmatched, models.MethodError)
	}

	var top *Document
	for i := range hits {
		if hits[i].State != candidate.Key.State {
			continue
		}
		if _, ok := m.registry.Get(hits[i].CollegeID); ok {
			top = &hits[i]
			break
		}
	}
	if top == nil {
		return m.result(candidate, models.PassUnmatched, models.MethodUnmatched)
	}

	tokens := strings.Fields(query)
	match := bestField(*top, tokens)
	if !match.Exact && match.Meaningful == 0 {
		log.WithFields(map[string]any{
			"college_id":    top.CollegeID,
			"matched_field": match.Field,
		}).Debug("Top hit only matched stop words")
		return m.result(candidate, models.PassUnmatched, models.MethodUnmatched)
	}

	entry, _ := m.registry.Get(top.CollegeID)
	result := m.result(candidate, models.PassMediumFuzzy, models.MethodIndexFuzzy)
	if match.Exact {
		result.Pass = models.PassExact
		result.Method = models.MethodIndexExact
		result.Confidence = 1
	} else {
		result.Confidence = m.config.FuzzyConfidence
	}
	id := entry.ID
	result.CollegeID = &id
	result.CollegeName = entry.Name
	result.CollegeState = entry.NormalizedState
	result.Score = float64(match.Matched) / float64(len(tokens))
	result.MatchedVariation = match.Field + ":" + match.Value

	log.WithFields(map[string]any{
		"college_id":    entry.ID,
		"matched_field": match.Field,
		"variation":     match.Value,
		"exact":         match.Exact,
	}).Info("Index hit accepted")

	return matching.Finalize(result)
}

// search retries transient backend failures with exponential backoff
func (m *Matcher) search(ctx context.Context, query, state string) ([]Document, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.config.InitialInterval
	b.MaxInterval = m.config.MaxInterval

	var hits []Document
	operation := func() error {
		var err error
		hits, err = m.backend.Search(ctx, query, state, m.config.Limit)
		if errors.Is(err, ErrNotLoaded) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.SearchRetries.Inc()
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"state": state,
			"wait":  wait.String(),
		}).Warn("Retrying index search")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, m.config.MaxRetries), ctx), notify)
	return hits, err
}

func (m *Matcher) result(candidate *models.UniqueCollegeCandidate, pass models.MatchPass, method models.MatchMethod) *models.MatchResult {
	return matching.Finalize(&models.MatchResult{
		State:       candidate.Key.State,
		RawName:     candidate.Key.RawName,
		Pass:        pass,
		Method:      method,
		Strategy:    m.Name(),
		RecordCount: candidate.RecordCount,
		MatchedAt:   m.now(),
	})
}
