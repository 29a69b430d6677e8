package staging

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/alias"
	"github.com/Ramsey-B/clover/internal/repositories/matchresult"
	"github.com/Ramsey-B/clover/internal/repositories/rankentry"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SQLStore is a Store backed by Postgres or SQLite
type SQLStore struct {
	db      database.DB
	results *matchresult.Repository
	aliases *alias.Repository
	ranks   *rankentry.Repository
}

// NewSQLStore creates a store over a migrated database
func NewSQLStore(db database.DB, logger ectologger.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		results: matchresult.NewRepository(db, logger),
		aliases: alias.NewRepository(db, logger),
		ranks:   rankentry.NewRepository(db, logger),
	}
}

func (s *SQLStore) UpsertResults(ctx context.Context, results []*models.MatchResult) (int, error) {
	return s.results.UpsertBatch(ctx, results)
}

func (s *SQLStore) GetResult(ctx context.Context, key models.CandidateKey) (*models.MatchResult, error) {
	return s.results.Get(ctx, key)
}

func (s *SQLStore) ListResults(ctx context.Context, filter ResultFilter) ([]*models.MatchResult, error) {
	return s.results.List(ctx, filter)
}

func (s *SQLStore) ListAliases(ctx context.Context) ([]*models.Alias, error) {
	return s.aliases.List(ctx)
}

func (s *SQLStore) SaveDecision(ctx context.Context, a *models.Alias, result *models.MatchResult) (*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.SQLStore.SaveDecision")
	defer span.End()

	var previous *models.Alias
	err := database.WithTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		if previous, err = s.aliases.Upsert(ctx, a); err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		return s.results.Decide(ctx, result)
	})
	return previous, err
}

func (s *SQLStore) DeleteAlias(ctx context.Context, key models.CandidateKey) (*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "staging.SQLStore.DeleteAlias")
	defer span.End()

	var removed *models.Alias
	err := database.WithTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		if removed, err = s.aliases.Get(ctx, key); err != nil {
			return err
		}
		if err := s.aliases.Delete(ctx, key); err != nil {
			return err
		}
		return s.results.DeleteManual(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *SQLStore) ReplaceRankEntries(ctx context.Context, keys []models.RankKey, entries []*models.RankEntry) error {
	return s.ranks.Replace(ctx, keys, entries)
}

func (s *SQLStore) ListRankEntries(ctx context.Context, filter RankFilter) ([]*models.RankEntry, error) {
	return s.ranks.List(ctx, filter)
}
