package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reporting"
	"github.com/Ramsey-B/clover/pkg/staging"
)

const testRegistry = `- id: goa
  name: Goa Medical College
  state: Goa
- id: grant
  name: Grant Medical College
  state: Maharashtra
`

const testRecords = "Rank,Quota,Institute,State,Course,Category,Round\n" +
	"120,AIQ,Goa Medical College,Goa,MBBS,GEN,1\n" +
	"340,AIQ,Goa Medical College,Goa,MBBS,GEN,1\n" +
	"900,AIQ,XYZ Unknown Institute,Goa,MBBS,GEN,1\n"

func newTestApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()

	regPath := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(regPath, []byte(testRegistry), 0o644))
	input := filepath.Join(dir, "AIQ-UG-2024.csv")
	require.NoError(t, os.WriteFile(input, []byte(testRecords), 0o644))

	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REGISTRY_PATH", regPath)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ADDR", "")

	a := New("test")
	out := &bytes.Buffer{}
	a.out = out
	return a, out, input
}

func TestApp_RunReviewReport(t *testing.T) {
	ctx := context.Background()
	a, out, input := newTestApp(t)

	require.NoError(t, a.Execute(ctx, []string{"run", input, "-o", "json"}))
	var summary reporting.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 2, summary.Candidates)
	assert.Equal(t, 1, summary.MatchedCandidates)
	assert.Equal(t, 1, summary.NeedsReview)
	assert.Equal(t, 3, summary.Records)

	out.Reset()
	require.NoError(t, a.Execute(ctx, []string{"review", "list", "-o", "json"}))
	var queue []reporting.WorklistItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, "XYZ Unknown Institute", queue[0].RawName)
	assert.Equal(t, "unmatched", queue[0].Reason)

	out.Reset()
	require.NoError(t, a.Execute(ctx, []string{
		"review", "decide",
		"--state", queue[0].State,
		"--raw-name", queue[0].RawName,
		"--action", "reassign",
		"--college-id", "goa",
		"--reviewer", "tester",
	}))
	var decided models.MatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decided))
	require.NotNil(t, decided.CollegeID)
	assert.Equal(t, "goa", *decided.CollegeID)
	assert.True(t, decided.Manual)

	out.Reset()
	require.NoError(t, a.Execute(ctx, []string{"report", "-o", "json"}))
	summary = reporting.Summary{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 2, summary.MatchedCandidates)
	assert.Equal(t, 0, summary.NeedsReview)

	out.Reset()
	require.NoError(t, a.Execute(ctx, []string{"worklist"}))
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("\n")), "header only")
}

func TestApp_RejectedDecision(t *testing.T) {
	ctx := context.Background()
	a, _, input := newTestApp(t)
	require.NoError(t, a.Execute(ctx, []string{"run", input, "-o", "json"}))

	err := a.Execute(ctx, []string{
		"review", "decide",
		"--state", "GOA",
		"--raw-name", "XYZ Unknown Institute",
		"--action", "reassign",
		"--college-id", "grant",
	})
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestApp_UnknownStrategy(t *testing.T) {
	a, _, input := newTestApp(t)
	err := a.Execute(context.Background(), []string{"run", input, "--strategy", "nope"})
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

func TestApp_RelinkingCommandsExplainRankRecompute(t *testing.T) {
	a := New("test")
	root := a.rootCommand()

	for _, path := range [][]string{{"review", "decide"}, {"aliases", "import"}, {"aliases", "delete"}} {
		t.Run(path[0]+" "+path[1], func(t *testing.T) {
			cmd, _, err := root.Find(path)
			require.NoError(t, err)
			assert.Contains(t, cmd.Long, rankDeferral)
		})
	}
}

func TestApp_DecisionLeavesRanksUntilNextRun(t *testing.T) {
	ctx := context.Background()
	a, _, input := newTestApp(t)
	require.NoError(t, a.Execute(ctx, []string{"run", input}))

	require.NoError(t, a.Execute(ctx, []string{
		"review", "decide",
		"--state", "GOA",
		"--raw-name", "XYZ Unknown Institute",
		"--action", "reassign",
		"--college-id", "goa",
	}))
	entries, err := a.store.ListRankEntries(ctx, staging.RankFilter{CollegeID: "goa"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 340, entries[0].ClosingRank)

	require.NoError(t, a.Execute(ctx, []string{"run", input}))
	entries, err = a.store.ListRankEntries(ctx, staging.RankFilter{CollegeID: "goa"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 900, entries[0].ClosingRank)
}

func TestApp_DeleteAlias(t *testing.T) {
	ctx := context.Background()
	a, out, input := newTestApp(t)
	require.NoError(t, a.Execute(ctx, []string{"run", input}))
	require.NoError(t, a.Execute(ctx, []string{
		"review", "decide",
		"--state", "GOA",
		"--raw-name", "XYZ Unknown Institute",
		"--action", "reassign",
		"--college-id", "goa",
	}))

	out.Reset()
	require.NoError(t, a.Execute(ctx, []string{"aliases", "delete", "--state", "GOA", "--raw-name", "XYZ Unknown Institute"}))
	var removed models.Alias
	require.NoError(t, json.Unmarshal(out.Bytes(), &removed))
	assert.Equal(t, "goa", removed.Target())

	err := a.Execute(ctx, []string{"aliases", "delete", "--state", "GOA", "--raw-name", "XYZ Unknown Institute"})
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	// the candidate goes back to the review queue on the next run
	require.NoError(t, a.Execute(ctx, []string{"run", input}))
	stored, err := a.store.GetResult(ctx, models.CandidateKey{State: "GOA", RawName: "XYZ Unknown Institute"})
	require.NoError(t, err)
	assert.False(t, stored.Manual)
	assert.True(t, stored.NeedsReview)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "bad request", err: httperror.NewHTTPErrorf(http.StatusBadRequest, "bad"), want: 2},
		{name: "not found", err: httperror.NewHTTPErrorf(http.StatusNotFound, "missing"), want: 2},
		{name: "server", err: httperror.NewHTTPErrorf(http.StatusInternalServerError, "down"), want: 1},
		{name: "format", err: reporting.ErrUnsupportedFormat, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
