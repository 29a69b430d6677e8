package staging

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/dbtest"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/registry"
)

var reviewColleges = []models.CanonicalCollege{
	{ID: "grant", Name: "Grant Medical College", State: "Maharashtra"},
	{ID: "seth", Name: "Seth GS Medical College", State: "Maharashtra"},
	{ID: "goa", Name: "Goa Medical College", State: "Goa"},
}

func reviewRegistry(t *testing.T, colleges []models.CanonicalCollege) *registry.Registry {
	t.Helper()
	reg, err := registry.New(colleges, normalizers.Default())
	require.NoError(t, err)
	return reg
}

func TestReviewService_Queue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	errored := autoResult("GOA", "Flaky Name", "", models.PassUnmatched, 1)
	errored.Method = models.MethodError
	matching.Finalize(errored)

	_, err := store.UpsertResults(ctx, []*models.MatchResult{
		autoResult("GOA", "Goa Medical College", "goa", models.PassExact, 40),
		autoResult("GOA", "XYZ Unknown Institute", "", models.PassUnmatched, 4),
		autoResult("MAHARASHTRA", "Grant Med Coll", "grant", models.PassLowFuzzy, 9),
		errored,
	})
	require.NoError(t, err)

	svc := NewReviewService(store, reviewRegistry(t, reviewColleges), dbtest.NopLogger())
	items, err := svc.Queue(ctx, QueueFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Grant Med Coll", items[0].RawName)
	assert.Equal(t, ReasonLowConfidence, items[0].Reason)
	assert.Equal(t, ReasonUnmatched, items[1].Reason)
	assert.Equal(t, ReasonError, items[2].Reason)

	goa, err := svc.Queue(ctx, QueueFilter{State: "GOA"})
	require.NoError(t, err)
	assert.Len(t, goa, 2)
}

func TestReviewService_AcceptedSuggestionIsDurable(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := reviewRegistry(t, reviewColleges)
			key := models.CandidateKey{State: "MAHARASHTRA", RawName: "Grant Med Coll Mumbai"}

			_, err := store.UpsertResults(ctx, []*models.MatchResult{autoResult(key.State, key.RawName, "grant", models.PassLowFuzzy, 7)})
			require.NoError(t, err)

			svc := NewReviewService(store, reg, dbtest.NopLogger())
			result, err := svc.Decide(ctx, models.ReviewDecision{Key: key, Action: models.ReviewActionAccept, Reviewer: "asha"})
			require.NoError(t, err)
			assert.Equal(t, models.PassManual, result.Pass)
			assert.Equal(t, models.MethodManualAlias, result.Method)
			assert.InDelta(t, 1.0, result.Confidence, 1e-9)
			assert.False(t, result.NeedsReview)

			// the registry entry is renamed and the batch re-runs
			renamed := []models.CanonicalCollege{
				{ID: "grant", Name: "Grant Government Medical College", State: "Maharashtra"},
				{ID: "seth", Name: "Seth GS Medical College", State: "Maharashtra"},
			}
			aliases, err := store.ListAliases(ctx)
			require.NoError(t, err)
			engine := matching.NewEngine(dbtest.NopLogger(), reviewRegistry(t, renamed), matching.NewAliasSet(aliases), matching.DefaultConfig())

			rerun := engine.Match(ctx, &models.UniqueCollegeCandidate{Key: key, RawState: "Maharashtra", RecordCount: 7})
			assert.Equal(t, models.PassManual, rerun.Pass)
			assert.Equal(t, "grant", *rerun.CollegeID)

			_, err = store.UpsertResults(ctx, []*models.MatchResult{rerun})
			require.NoError(t, err)
			_, err = store.UpsertResults(ctx, []*models.MatchResult{autoResult(key.State, key.RawName, "", models.PassUnmatched, 7)})
			require.NoError(t, err)

			stored, err := store.GetResult(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, models.PassManual, stored.Pass)
			assert.InDelta(t, 1.0, stored.Confidence, 1e-9)
			assert.Equal(t, "grant", *stored.CollegeID)

			queue, err := svc.Queue(ctx, QueueFilter{})
			require.NoError(t, err)
			assert.Empty(t, queue)
		})
	}
}

func TestReviewService_Decide(t *testing.T) {
	ctx := context.Background()
	key := models.CandidateKey{State: "MAHARASHTRA", RawName: "Grant Med Coll"}
	unknown := models.CandidateKey{State: "GOA", RawName: "XYZ Unknown Institute"}

	tests := []struct {
		name       string
		decision   models.ReviewDecision
		wantStatus int
		wantID     string
		wantPass   models.MatchPass
		wantMethod models.MatchMethod
	}{
		{
			name:       "reassign to another college in the state",
			decision:   models.ReviewDecision{Key: key, Action: models.ReviewActionReassign, CollegeID: "seth"},
			wantID:     "seth",
			wantPass:   models.PassManual,
			wantMethod: models.MethodManualAlias,
		},
		{
			name:       "no match",
			decision:   models.ReviewDecision{Key: unknown, Action: models.ReviewActionNoMatch},
			wantPass:   models.PassUnmatched,
			wantMethod: models.MethodManualNoMatch,
		},
		{
			name:       "reassign across states is rejected",
			decision:   models.ReviewDecision{Key: key, Action: models.ReviewActionReassign, CollegeID: "goa"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "reassign to unknown college",
			decision:   models.ReviewDecision{Key: key, Action: models.ReviewActionReassign, CollegeID: "missing"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "reassign without a college",
			decision:   models.ReviewDecision{Key: key, Action: models.ReviewActionReassign},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "accept without a suggestion",
			decision:   models.ReviewDecision{Key: unknown, Action: models.ReviewActionAccept},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown action",
			decision:   models.ReviewDecision{Key: key, Action: "maybe"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown candidate",
			decision:   models.ReviewDecision{Key: models.CandidateKey{State: "GOA", RawName: "nobody"}, Action: models.ReviewActionNoMatch},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			_, err := store.UpsertResults(ctx, []*models.MatchResult{
				autoResult(key.State, key.RawName, "grant", models.PassLowFuzzy, 3),
				autoResult(unknown.State, unknown.RawName, "", models.PassUnmatched, 2),
			})
			require.NoError(t, err)

			svc := NewReviewService(store, reviewRegistry(t, reviewColleges), dbtest.NopLogger())
			result, err := svc.Decide(ctx, tt.decision)
			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, httperror.GetStatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPass, result.Pass)
			assert.Equal(t, tt.wantMethod, result.Method)
			assert.True(t, result.Manual)
			if tt.wantID != "" {
				require.NotNil(t, result.CollegeID)
				assert.Equal(t, tt.wantID, *result.CollegeID)
			} else {
				assert.Nil(t, result.CollegeID)
			}
		})
	}
}

func TestReviewService_ConflictingDecisionWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := models.CandidateKey{State: "MAHARASHTRA", RawName: "Grant Med Coll"}
	_, err := store.UpsertResults(ctx, []*models.MatchResult{autoResult(key.State, key.RawName, "grant", models.PassLowFuzzy, 3)})
	require.NoError(t, err)

	svc := NewReviewService(store, reviewRegistry(t, reviewColleges), dbtest.NopLogger())
	_, err = svc.Decide(ctx, models.ReviewDecision{Key: key, Action: models.ReviewActionAccept, Reviewer: "asha"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, models.ReviewDecision{Key: key, Action: models.ReviewActionNoMatch, Reviewer: "ravi"})
	require.NoError(t, err)

	aliases, err := store.ListAliases(ctx)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.True(t, aliases[0].NoMatch)
	assert.Equal(t, "ravi", aliases[0].Reviewer)

	stored, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.MethodManualNoMatch, stored.Method)
	assert.Nil(t, stored.CollegeID)
}

func TestReviewService_RemoveAlias(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := models.CandidateKey{State: "MAHARASHTRA", RawName: "Grant Med Coll"}
			_, err := store.UpsertResults(ctx, []*models.MatchResult{autoResult(key.State, key.RawName, "grant", models.PassLowFuzzy, 3)})
			require.NoError(t, err)

			svc := NewReviewService(store, reviewRegistry(t, reviewColleges), dbtest.NopLogger())
			_, err = svc.Decide(ctx, models.ReviewDecision{Key: key, Action: models.ReviewActionReassign, CollegeID: "seth"})
			require.NoError(t, err)

			removed, err := svc.RemoveAlias(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, "seth", removed.Target())

			aliases, err := store.ListAliases(ctx)
			require.NoError(t, err)
			assert.Empty(t, aliases)

			_, err = store.GetResult(ctx, key)
			assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

			// the next batch write stages an automatic result again
			written, err := store.UpsertResults(ctx, []*models.MatchResult{autoResult(key.State, key.RawName, "grant", models.PassLowFuzzy, 3)})
			require.NoError(t, err)
			assert.Equal(t, 1, written)
		})
	}
}

func TestReviewService_RemoveAliasErrors(t *testing.T) {
	svc := NewReviewService(NewMemoryStore(), nil, dbtest.NopLogger())

	tests := []struct {
		name   string
		key    models.CandidateKey
		status int
	}{
		{name: "missing raw name", key: models.CandidateKey{State: "GOA"}, status: http.StatusBadRequest},
		{name: "missing state", key: models.CandidateKey{RawName: "XYZ"}, status: http.StatusBadRequest},
		{name: "no alias", key: models.CandidateKey{State: "GOA", RawName: "XYZ"}, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RemoveAlias(context.Background(), tt.key)
			require.Error(t, err)
			assert.Equal(t, tt.status, httperror.GetStatusCode(err))
		})
	}
}

func TestReviewService_ImportAliases(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			staged := models.CandidateKey{State: "MAHARASHTRA", RawName: "Grant Med Coll"}
			_, err := store.UpsertResults(ctx, []*models.MatchResult{autoResult(staged.State, staged.RawName, "", models.PassUnmatched, 5)})
			require.NoError(t, err)

			csv := strings.Join([]string{
				"state,raw_name,college_id,no_match,note",
				"Maharashtra,Grant Med Coll,grant,,from sheet",
				"goa,GMC Bambolim,goa,,",
				"Goa,XYZ Unknown Institute,,true,",
				"Goa,Someone Else,,,",
				"Goa,Wrong State,seth,,",
				",No State,goa,,",
			}, "\n")

			svc := NewReviewService(store, reviewRegistry(t, reviewColleges), dbtest.NopLogger())
			summary, err := svc.ImportAliases(ctx, strings.NewReader(csv), "bulk")
			require.NoError(t, err)
			assert.Equal(t, 3, summary.Imported)
			assert.Equal(t, 0, summary.Conflicts)
			assert.Equal(t, map[string]int{"missing_college_id": 1, "invalid_college_id": 1, "missing_key": 1}, summary.Rejected)

			stored, err := store.GetResult(ctx, staged)
			require.NoError(t, err)
			assert.True(t, stored.Manual)
			assert.Equal(t, "grant", *stored.CollegeID)

			aliases, err := store.ListAliases(ctx)
			require.NoError(t, err)
			assert.Len(t, aliases, 3)

			again, err := svc.ImportAliases(ctx, strings.NewReader("state,raw_name,college_id\nGoa,GMC Bambolim,,\nGoa,XYZ Unknown Institute,goa\n"), "bulk")
			require.NoError(t, err)
			assert.Equal(t, 1, again.Imported)
			assert.Equal(t, 1, again.Conflicts)
		})
	}
}

func TestReviewService_ImportRequiresKeyColumns(t *testing.T) {
	svc := NewReviewService(NewMemoryStore(), nil, dbtest.NopLogger())
	_, err := svc.ImportAliases(context.Background(), strings.NewReader("raw_name,college_id\nx,y\n"), "bulk")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
