package matchresult

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/dbtest"
	"github.com/Ramsey-B/clover/pkg/models"
)

func newResult(state, raw string, pass models.MatchPass, records int, at time.Time) *models.MatchResult {
	id := "goa"
	r := &models.MatchResult{
		State:        state,
		RawName:      raw,
		CollegeID:    &id,
		CollegeName:  "Goa Medical College",
		CollegeState: state,
		Pass:         pass,
		Method:       models.MethodMediumFuzzy,
		Confidence:   0.85,
		Score:        0.85,
		Strategy:     models.StrategyProgressive,
		RecordCount:  records,
		MatchedAt:    at,
	}
	if pass == models.PassUnmatched {
		r.CollegeID = nil
		r.CollegeName = ""
		r.CollegeState = ""
		r.Method = models.MethodUnmatched
		r.Confidence = 0
	}
	r.NeedsReview = r.RequiresReview()
	r.Fingerprint = r.ComputeFingerprint()
	return r
}

func upsertOne(t *testing.T, repo *Repository, r *models.MatchResult) bool {
	t.Helper()
	n, err := repo.UpsertBatch(context.Background(), []*models.MatchResult{r})
	require.NoError(t, err)
	return n > 0
}

func TestRepository_UpsertIsIdempotent(t *testing.T) {
	repo := NewRepository(dbtest.NewSQLite(t), dbtest.NopLogger())
	ctx := context.Background()
	first := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	written := upsertOne(t, repo, newResult("GOA", "Goa Med Coll", models.PassMediumFuzzy, 3, first))
	assert.True(t, written)

	written = upsertOne(t, repo, newResult("GOA", "Goa Med Coll", models.PassMediumFuzzy, 3, first.Add(time.Hour)))
	assert.False(t, written)

	stored, err := repo.Get(ctx, models.CandidateKey{State: "GOA", RawName: "Goa Med Coll"})
	require.NoError(t, err)
	assert.WithinDuration(t, first, stored.MatchedAt, time.Millisecond)
	assert.Equal(t, models.PassMediumFuzzy, stored.Pass)
	assert.True(t, stored.NeedsReview)
	require.NotNil(t, stored.CollegeID)
	assert.Equal(t, "goa", *stored.CollegeID)

	changed := newResult("GOA", "Goa Med Coll", models.PassMediumFuzzy, 4, first.Add(2*time.Hour))
	written = upsertOne(t, repo, changed)
	assert.True(t, written)

	stored, err = repo.Get(ctx, changed.Key())
	require.NoError(t, err)
	assert.Equal(t, 4, stored.RecordCount)
	assert.Equal(t, changed.Fingerprint, stored.Fingerprint)
}

func TestRepository_ManualRowsWin(t *testing.T) {
	repo := NewRepository(dbtest.NewSQLite(t), dbtest.NopLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	manual := newResult("GOA", "XYZ Unknown Institute", models.PassManual, 2, now)
	manual.Method = models.MethodManualAlias
	manual.Confidence = 1
	manual.Manual = true
	manual.NeedsReview = manual.RequiresReview()
	manual.Fingerprint = manual.ComputeFingerprint()

	require.NoError(t, repo.Decide(ctx, manual))

	written := upsertOne(t, repo, newResult("GOA", "XYZ Unknown Institute", models.PassUnmatched, 2, now))
	assert.False(t, written)

	n, err := repo.UpsertBatch(ctx, []*models.MatchResult{
		newResult("GOA", "XYZ Unknown Institute", models.PassLowFuzzy, 2, now),
		newResult("GOA", "Another", models.PassLowFuzzy, 1, now),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := repo.Get(ctx, manual.Key())
	require.NoError(t, err)
	assert.True(t, stored.Manual)
	assert.Equal(t, models.PassManual, stored.Pass)
	assert.Equal(t, 1.0, stored.Confidence)
	assert.False(t, stored.NeedsReview)

	noMatch := newResult("GOA", "XYZ Unknown Institute", models.PassUnmatched, 2, now)
	noMatch.Method = models.MethodManualNoMatch
	noMatch.Manual = true
	noMatch.NeedsReview = noMatch.RequiresReview()
	noMatch.Fingerprint = noMatch.ComputeFingerprint()

	// a batch carrying an older manual outcome leaves the decided row alone
	written = upsertOne(t, repo, noMatch)
	assert.False(t, written)

	require.NoError(t, repo.Decide(ctx, noMatch))
	stored, err = repo.Get(ctx, manual.Key())
	require.NoError(t, err)
	assert.Equal(t, models.MethodManualNoMatch, stored.Method)
	assert.Nil(t, stored.CollegeID)

	n, err = repo.UpsertBatch(ctx, []*models.MatchResult{manual})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stored, err = repo.Get(ctx, manual.Key())
	require.NoError(t, err)
	assert.Equal(t, models.MethodManualNoMatch, stored.Method)
}

func TestRepository_List(t *testing.T) {
	repo := NewRepository(dbtest.NewSQLite(t), dbtest.NopLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.UpsertBatch(ctx, []*models.MatchResult{
		newResult("GOA", "small", models.PassLowFuzzy, 1, now),
		newResult("GOA", "big", models.PassUnmatched, 9, now),
		newResult("KERALA", "mid", models.PassMediumFuzzy, 5, now),
		newResult("KERALA", "good", models.PassExact, 50, now),
	})
	require.NoError(t, err)

	review := true
	unmatched := false
	tests := []struct {
		name   string
		filter Filter
		keys   []string
	}{
		{name: "all by impact", filter: Filter{}, keys: []string{"good", "big", "mid", "small"}},
		{name: "review queue", filter: Filter{NeedsReview: &review}, keys: []string{"big", "mid", "small"}},
		{name: "state", filter: Filter{State: "GOA"}, keys: []string{"big", "small"}},
		{name: "unmatched", filter: Filter{Matched: &unmatched}, keys: []string{"big"}},
		{name: "min pass", filter: Filter{MinPass: models.PassLowFuzzy}, keys: []string{"big", "small"}},
		{name: "page", filter: Filter{Limit: 2, Offset: 1}, keys: []string{"big", "mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			var keys []string
			for _, r := range results {
				keys = append(keys, r.RawName)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := NewRepository(dbtest.NewSQLite(t), dbtest.NopLogger())

	_, err := repo.Get(context.Background(), models.CandidateKey{State: "GOA", RawName: "nothing"})
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestRepository_DeleteManual(t *testing.T) {
	repo := NewRepository(dbtest.NewSQLite(t), dbtest.NopLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	manual := newResult("GOA", "XYZ Unknown Institute", models.PassManual, 2, now)
	manual.Method = models.MethodManualAlias
	manual.Manual = true
	manual.Fingerprint = manual.ComputeFingerprint()
	require.NoError(t, repo.Decide(ctx, manual))
	auto := newResult("GOA", "Goa Med Coll", models.PassMediumFuzzy, 3, now)
	require.True(t, upsertOne(t, repo, auto))

	require.NoError(t, repo.DeleteManual(ctx, manual.Key()))
	require.NoError(t, repo.DeleteManual(ctx, auto.Key()))

	_, err := repo.Get(ctx, manual.Key())
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	_, err = repo.Get(ctx, auto.Key())
	assert.NoError(t, err)
}
