package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reporting"
	"github.com/Ramsey-B/clover/pkg/staging"
)

func (a *App) aliasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Manage reviewer aliases",
	}
	cmd.AddCommand(a.aliasesImportCommand(), a.aliasesListCommand(), a.aliasesDeleteCommand())
	return cmd
}

func (a *App) aliasesImportCommand() *cobra.Command {
	var reviewer string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import reviewed aliases from a CSV with state, raw_name, college_id, no_match and note columns",
		Long: `Import reviewed aliases from a CSV with state, raw_name, college_id, no_match
and note columns. Staged candidates get their manual result right away.

` + rankDeferral,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reviewer == "" {
				reviewer = os.Getenv("USER")
			}
			return a.importAliases(cmd.Context(), args[0], reviewer)
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer recorded on every alias (default $USER)")
	return cmd
}

func (a *App) importAliases(ctx context.Context, path, reviewer string) error {
	format, err := a.outputFormat(reporting.FormatJSON)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.require(ctx, depDatabase, depRegistry); err != nil {
		return err
	}

	summary, err := staging.NewReviewService(a.store, a.registry, a.logger).ImportAliases(ctx, f, reviewer)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return a.writeValue(format, summary)
}

func (a *App) aliasesDeleteCommand() *cobra.Command {
	var key models.CandidateKey
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Withdraw the alias of one candidate",
		Long: `Withdraw the alias of one candidate. Its manual result is removed as well,
so the next run matches the candidate automatically again.

` + rankDeferral,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat(reporting.FormatJSON)
			if err != nil {
				return err
			}
			if err := a.require(cmd.Context(), depDatabase); err != nil {
				return err
			}
			removed, err := staging.NewReviewService(a.store, nil, a.logger).RemoveAlias(cmd.Context(), key)
			if err != nil {
				return err
			}
			return a.writeValue(format, removed)
		},
	}
	cmd.Flags().StringVar(&key.State, "state", "", "candidate state as it appears in the source")
	cmd.Flags().StringVar(&key.RawName, "raw-name", "", "candidate raw college name")
	return cmd
}

func (a *App) aliasesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat(reporting.FormatJSON)
			if err != nil {
				return err
			}
			if err := a.require(cmd.Context(), depDatabase); err != nil {
				return err
			}
			aliases, err := a.store.ListAliases(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeValue(format, aliases)
		},
	}
}
