package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/reporting"
)

// Execute runs the command line with the given arguments
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if stopErr := a.teardown(context.WithoutCancel(ctx)); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "clover",
		Short:   "Resolve admission record college names against the canonical registry",
		Version: a.version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file, environment variables take precedence")
	root.PersistentFlags().StringVarP(&a.format, "format", "o", "", "output format: table, json, yaml, csv")

	root.AddCommand(
		a.runCommand(),
		a.reviewCommand(),
		a.aliasesCommand(),
		a.reportCommand(),
		a.worklistCommand(),
		a.indexCommand(),
		a.migrateCommand(),
	)
	return root
}

func (a *App) outputFormat(fallback reporting.Format) (reporting.Format, error) {
	if a.format == "" {
		return fallback, nil
	}
	return reporting.ParseFormat(a.format)
}

// ExitCode maps an error to the process exit status. Rejected input exits with
// 2, everything else with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, reporting.ErrUnsupportedFormat) {
		return 2
	}
	if httperror.IsHTTPError(err) {
		switch httperror.GetStatusCode(err) {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
			return 2
		}
	}
	return 1
}
