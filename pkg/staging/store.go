// Package staging persists match results, aliases and rank entries and
// serves the review queue
package staging

import (
	"context"

	"github.com/Ramsey-B/clover/internal/repositories/matchresult"
	"github.com/Ramsey-B/clover/internal/repositories/rankentry"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ResultFilter narrows result listings
type ResultFilter = matchresult.Filter

// RankFilter narrows rank entry listings
type RankFilter = rankentry.Filter

// Store is the staging persistence used by the batch and the review service.
// Batch result writes skip manual rows and rows whose fingerprint did not
// change. Only SaveDecision replaces a manual row.
type Store interface {
	UpsertResults(ctx context.Context, results []*models.MatchResult) (int, error)
	GetResult(ctx context.Context, key models.CandidateKey) (*models.MatchResult, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]*models.MatchResult, error)

	ListAliases(ctx context.Context) ([]*models.Alias, error)
	// SaveDecision stores an alias and, when result is not nil, its manual
	// result atomically. The alias it replaced is returned.
	SaveDecision(ctx context.Context, alias *models.Alias, result *models.MatchResult) (*models.Alias, error)
	// DeleteAlias removes an alias together with the manual result it
	// produced and returns the removed alias.
	DeleteAlias(ctx context.Context, key models.CandidateKey) (*models.Alias, error)

	// ReplaceRankEntries deletes the entries at keys and stores entries.
	// Entries at other keys are left alone.
	ReplaceRankEntries(ctx context.Context, keys []models.RankKey, entries []*models.RankEntry) error
	ListRankEntries(ctx context.Context, filter RankFilter) ([]*models.RankEntry, error)
}
