package alias

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "aliases"

var columns = []string{
	"id", "state", "raw_name", "college_id", "college_name", "no_match",
	"action", "reviewer", "note", "created_at", "updated_at",
}

var updateColumns = []string{"college_id", "college_name", "no_match", "action", "reviewer", "note", "updated_at"}

// Repository handles alias persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alias repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores the alias for its key, replacing any earlier decision. The
// replaced alias is returned so callers can report conflicts.
func (r *Repository) Upsert(ctx context.Context, alias *models.Alias) (*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Upsert")
	defer span.End()

	previous, err := r.find(ctx, alias.Key())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read existing alias")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert alias")
	}

	now := time.Now().UTC()
	if previous != nil {
		alias.ID = previous.ID
		alias.CreatedAt = previous.CreatedAt
	} else {
		if alias.ID == "" {
			alias.ID = uuid.New().String()
		}
		alias.CreatedAt = now
	}
	alias.UpdatedAt = now

	ib := database.NewInsertBuilder(r.db.Flavor()).InsertInto(table).Cols(columns...)
	ib.Values(alias.ID, alias.State, alias.RawName, alias.CollegeID, alias.CollegeName, alias.NoMatch,
		string(alias.Action), alias.Reviewer, alias.Note, alias.CreatedAt, alias.UpdatedAt)
	ib.OnConflictUpdate([]string{"state", "raw_name"}, updateColumns, "")

	query, args := ib.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"state":    alias.State,
			"raw_name": alias.RawName,
		}).Error("Failed to upsert alias")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert alias")
	}

	return previous, nil
}

// Get retrieves the alias of a candidate key
func (r *Repository) Get(ctx context.Context, key models.CandidateKey) (*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Get")
	defer span.End()

	alias, err := r.find(ctx, key)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get alias")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get alias")
	}
	if alias == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "no alias for %s", key)
	}
	return alias, nil
}

// List returns every alias ordered by key
func (r *Repository) List(ctx context.Context) ([]*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.List")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("state", "raw_name")

	query, args := sb.Build()
	var aliases []*models.Alias
	if err := r.db.Executor(ctx).SelectContext(ctx, &aliases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aliases")
	}
	return aliases, nil
}

// Delete removes the alias of a key
func (r *Repository) Delete(ctx context.Context, key models.CandidateKey) error {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Delete")
	defer span.End()

	db := r.db.Flavor().NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		db.Equal("state", key.State),
		db.Equal("raw_name", key.RawName),
	)

	query, args := db.Build()
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete alias")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "no alias for %s", key)
	}
	return nil
}

func (r *Repository) find(ctx context.Context, key models.CandidateKey) (*models.Alias, error) {
	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("state", key.State),
		sb.Equal("raw_name", key.RawName),
	)

	query, args := sb.Build()
	var alias models.Alias
	if err := r.db.Executor(ctx).GetContext(ctx, &alias, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &alias, nil
}
