package matchresult

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "match_results"

// batchSize keeps multi-row inserts under driver parameter limits
const batchSize = 500

var columns = []string{
	"state", "raw_name", "college_id", "college_name", "college_state", "pass", "method",
	"confidence", "score", "ambiguous", "needs_review", "manual", "matched_variation",
	"strategy", "record_count", "fingerprint", "matched_at",
}

// updateColumns are replaced on conflict; the key columns stay
var updateColumns = columns[2:]

// upsertGuard keeps manual rows away from batch writes and skips rows whose
// outcome did not change. Only Decide replaces a manual row.
const upsertGuard = "match_results.manual = FALSE AND match_results.fingerprint <> EXCLUDED.fingerprint"

// Filter narrows List results
type Filter struct {
	State       string
	NeedsReview *bool
	Matched     *bool
	MinPass     models.MatchPass
	Limit       int
	Offset      int
}

// Repository handles match result persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match result repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch writes results in one transaction and returns how many rows
// changed. Manual rows and rows whose outcome did not change are left alone.
func (r *Repository) UpsertBatch(ctx context.Context, results []*models.MatchResult) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.UpsertBatch")
	defer span.End()

	if len(results) == 0 {
		return 0, nil
	}

	written := 0
	err := database.WithTx(ctx, r.db, func(ctx context.Context) error {
		for start := 0; start < len(results); start += batchSize {
			end := start + batchSize
			if end > len(results) {
				end = len(results)
			}
			n, err := r.upsert(ctx, results[start:end], upsertGuard)
			if err != nil {
				return err
			}
			written += n
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(results)).Error("Failed to upsert match results batch")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert match results")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(results), "written": written}).Debug("Upserted match results batch")
	return written, nil
}

// Decide writes a reviewer's result over whatever is stored, manual or not
func (r *Repository) Decide(ctx context.Context, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.Decide")
	defer span.End()

	if _, err := r.upsert(ctx, []*models.MatchResult{result}, ""); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"state":    result.State,
			"raw_name": result.RawName,
		}).Error("Failed to write decided match result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write decided match result")
	}
	return nil
}

func (r *Repository) upsert(ctx context.Context, results []*models.MatchResult, guard string) (int, error) {
	ib := database.NewInsertBuilder(r.db.Flavor()).InsertInto(table).Cols(columns...)
	for _, m := range results {
		ib.Values(m.State, m.RawName, m.CollegeID, m.CollegeName, m.CollegeState, int(m.Pass), string(m.Method),
			m.Confidence, m.Score, m.Ambiguous, m.NeedsReview, m.Manual, m.MatchedVariation,
			m.Strategy, m.RecordCount, m.Fingerprint, m.MatchedAt)
	}
	ib.OnConflictUpdate([]string{"state", "raw_name"}, updateColumns, guard)

	query, args := ib.Build()
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Get retrieves the current result of a candidate
func (r *Repository) Get(ctx context.Context, key models.CandidateKey) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.Get")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("state", key.State),
		sb.Equal("raw_name", key.RawName),
	)

	query, args := sb.Build()
	var result models.MatchResult
	if err := r.db.Executor(ctx).GetContext(ctx, &result, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "no match result for %s", key)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match result")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match result")
	}

	return &result, nil
}

// DeleteManual removes the manual result of a candidate so the next run
// matches it again. Automatic rows are kept.
func (r *Repository) DeleteManual(ctx context.Context, key models.CandidateKey) error {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.DeleteManual")
	defer span.End()

	db := r.db.Flavor().NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		db.Equal("state", key.State),
		db.Equal("raw_name", key.RawName),
		db.Equal("manual", true),
	)

	query, args := db.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete manual match result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete manual match result")
	}
	return nil
}

// List returns results ordered by impact (record count), then key
func (r *Repository) List(ctx context.Context, filter Filter) ([]*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.List")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)

	var where []string
	if filter.State != "" {
		where = append(where, sb.Equal("state", filter.State))
	}
	if filter.NeedsReview != nil {
		where = append(where, sb.Equal("needs_review", *filter.NeedsReview))
	}
	if filter.Matched != nil {
		if *filter.Matched {
			where = append(where, sb.IsNotNull("college_id"))
		} else {
			where = append(where, sb.IsNull("college_id"))
		}
	}
	if filter.MinPass > 0 {
		where = append(where, sb.GreaterEqualThan("pass", int(filter.MinPass)))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("record_count DESC", "state", "raw_name")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	var results []*models.MatchResult
	if err := r.db.Executor(ctx).SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match results")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match results")
	}

	return results, nil
}
