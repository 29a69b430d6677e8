package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/reporting"
	"github.com/Ramsey-B/clover/pkg/staging"
)

func (a *App) reportCommand() *cobra.Command {
	var (
		state string
		top   int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the staged match results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd.Context(), state, top)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only candidates of this state")
	cmd.Flags().IntVar(&top, "top", 10, "rows in the top matched and unmatched lists")
	return cmd
}

func (a *App) report(ctx context.Context, state string, top int) error {
	format, err := a.outputFormat(reporting.FormatTable)
	if err != nil {
		return err
	}
	if err := a.require(ctx, depDatabase); err != nil {
		return err
	}

	results, err := a.store.ListResults(ctx, staging.ResultFilter{State: state})
	if err != nil {
		return err
	}
	anomalies, err := a.store.ListRankEntries(ctx, staging.RankFilter{AnomalyOnly: true})
	if err != nil {
		return err
	}

	return reporting.WriteSummary(a.out, format, reporting.Build(reporting.Input{
		Results:   results,
		Anomalies: anomalies,
		TopN:      top,
	}))
}

func (a *App) worklistCommand() *cobra.Command {
	var (
		state  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "worklist",
		Short: "Export the unmatched and low-confidence candidates for offline review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.worklist(cmd.Context(), state, output)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only candidates of this state")
	cmd.Flags().StringVar(&output, "out", "", "write to this file instead of stdout")
	return cmd
}

func (a *App) worklist(ctx context.Context, state, output string) error {
	format, err := a.outputFormat(reporting.FormatCSV)
	if err != nil {
		return err
	}
	if err := a.require(ctx, depDatabase); err != nil {
		return err
	}

	needsReview := true
	results, err := a.store.ListResults(ctx, staging.ResultFilter{State: state, NeedsReview: &needsReview})
	if err != nil {
		return err
	}
	items := reporting.Worklist(results)

	if output == "" {
		return reporting.WriteWorklist(a.out, format, items)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := reporting.WriteWorklist(f, format, items); err != nil {
		_ = f.Close()
		return err
	}
	a.logger.WithContext(ctx).WithFields(map[string]any{
		"path":  output,
		"items": len(items),
	}).Info("Wrote review worklist")
	return f.Close()
}
