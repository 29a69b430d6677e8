package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reporting"
	"github.com/Ramsey-B/clover/pkg/staging"
)

func (a *App) reviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Work the review queue",
	}
	cmd.AddCommand(a.reviewListCommand(), a.reviewDecideCommand())
	return cmd
}

func (a *App) reviewListCommand() *cobra.Command {
	filter := staging.QueueFilter{}
	var minPass int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List results waiting for a decision, highest record count first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.MinPass = models.MatchPass(minPass)
			return a.reviewList(cmd.Context(), filter)
		},
	}
	cmd.Flags().StringVar(&filter.State, "state", "", "only candidates of this state")
	cmd.Flags().IntVar(&minPass, "min-pass", 0, "only results at or above this pass")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum items")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "items to skip")
	return cmd
}

func (a *App) reviewList(ctx context.Context, filter staging.QueueFilter) error {
	format, err := a.outputFormat(reporting.FormatTable)
	if err != nil {
		return err
	}
	if err := a.require(ctx, depDatabase); err != nil {
		return err
	}

	// the queue does not consult the registry
	queue, err := staging.NewReviewService(a.store, nil, a.logger).Queue(ctx, filter)
	if err != nil {
		return err
	}
	return reporting.WriteWorklist(a.out, format, reporting.QueueWorklist(queue))
}

// rankDeferral is shown by every command that relinks candidates
const rankDeferral = `Rank entries are not recomputed here. The next run over the inputs that
hold the candidate recomputes them.`

func (a *App) reviewDecideCommand() *cobra.Command {
	decision := models.ReviewDecision{}
	var action string
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Record a decision for one candidate",
		Long: `Record a reviewer decision. The decision is stored as an alias and wins
over automatic matching on every later run.

` + rankDeferral + `

Actions:
  accept    keep the suggested college
  reassign  point the candidate at --college-id
  no-match  mark the candidate as not in the registry
  import    same as reassign, used by bulk alias imports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			decision.Action = models.ReviewAction(action)
			if decision.Reviewer == "" {
				decision.Reviewer = os.Getenv("USER")
			}
			return a.reviewDecide(cmd.Context(), decision)
		},
	}
	cmd.Flags().StringVar(&decision.Key.State, "state", "", "candidate state as it appears in the source")
	cmd.Flags().StringVar(&decision.Key.RawName, "raw-name", "", "candidate college name as it appears in the source")
	cmd.Flags().StringVar(&action, "action", "", "accept, reassign, no-match or import")
	cmd.Flags().StringVar(&decision.CollegeID, "college-id", "", "registry college for reassign and import")
	cmd.Flags().StringVar(&decision.Reviewer, "reviewer", "", "reviewer name (default $USER)")
	cmd.Flags().StringVar(&decision.Note, "note", "", "free text stored with the alias")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("raw-name")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func (a *App) reviewDecide(ctx context.Context, decision models.ReviewDecision) error {
	format, err := a.outputFormat(reporting.FormatJSON)
	if err != nil {
		return err
	}
	if err := a.require(ctx, depDatabase, depRegistry); err != nil {
		return err
	}

	result, err := staging.NewReviewService(a.store, a.registry, a.logger).Decide(ctx, decision)
	if err != nil {
		return err
	}
	return a.writeValue(format, result)
}

// writeValue prints a single value as json or yaml
func (a *App) writeValue(format reporting.Format, v any) error {
	switch format {
	case reporting.FormatYAML:
		data, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = a.out.Write(data)
		return err
	case reporting.FormatJSON, reporting.FormatTable:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("%w: %s", reporting.ErrUnsupportedFormat, format)
	}
}
