package rankentry

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "rank_entries"

const batchSize = 500

var columns = []string{
	"college_id", "course", "category", "quota", "round", "year", "college_name",
	"opening_rank", "closing_rank", "seats", "record_count", "anomaly", "computed_at",
}

// Filter narrows List results
type Filter struct {
	CollegeID   string
	Year        int
	AnomalyOnly bool
}

// Repository handles rank entry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new rank entry repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Replace deletes the entries at keys and inserts entries in one transaction.
// Entries at other keys are kept.
func (r *Repository) Replace(ctx context.Context, keys []models.RankKey, entries []*models.RankEntry) error {
	ctx, span := tracing.StartSpan(ctx, "rankentry.Repository.Replace")
	defer span.End()

	err := database.WithTx(ctx, r.db, func(ctx context.Context) error {
		for start := 0; start < len(keys); start += batchSize {
			end := start + batchSize
			if end > len(keys) {
				end = len(keys)
			}

			db := r.db.Flavor().NewDeleteBuilder()
			db.DeleteFrom(table)
			conds := make([]string, 0, end-start)
			for _, k := range keys[start:end] {
				conds = append(conds, db.And(
					db.Equal("college_id", k.CollegeID),
					db.Equal("course", k.Course),
					db.Equal("category", k.Category),
					db.Equal("quota", k.Quota),
					db.Equal("round", k.Round),
					db.Equal("year", k.Year),
				))
			}
			db.Where(db.Or(conds...))

			query, args := db.Build()
			if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		for start := 0; start < len(entries); start += batchSize {
			end := start + batchSize
			if end > len(entries) {
				end = len(entries)
			}

			ib := database.NewInsertBuilder(r.db.Flavor()).InsertInto(table).Cols(columns...)
			for _, e := range entries[start:end] {
				ib.Values(e.CollegeID, e.Course, e.Category, e.Quota, e.Round, e.Year, e.CollegeName,
					e.OpeningRank, e.ClosingRank, e.Seats, e.RecordCount, e.Anomaly, e.ComputedAt)
			}

			query, args := ib.Build()
			if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(entries)).Error("Failed to replace rank entries")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace rank entries")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(entries), "keys": len(keys)}).Info("Replaced rank entries")
	return nil
}

// List returns entries ordered by key
func (r *Repository) List(ctx context.Context, filter Filter) ([]*models.RankEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "rankentry.Repository.List")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)

	var where []string
	if filter.CollegeID != "" {
		where = append(where, sb.Equal("college_id", filter.CollegeID))
	}
	if filter.Year != 0 {
		where = append(where, sb.Equal("year", filter.Year))
	}
	if filter.AnomalyOnly {
		where = append(where, sb.Equal("anomaly", true))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("year", "college_id", "course", "category", "quota", "round")

	query, args := sb.Build()
	var entries []*models.RankEntry
	if err := r.db.Executor(ctx).SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list rank entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list rank entries")
	}
	return entries, nil
}
