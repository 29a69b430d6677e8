package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/indexmatch"
	"github.com/Ramsey-B/clover/pkg/ingest"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/reporting"
)

type runOptions struct {
	strategy string
	runID    string
	top      int
}

func (a *App) runCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <file|dir>...",
		Short: "Match the colleges of admission record files and stage the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "matching strategy: progressive or index (default MATCH_STRATEGY)")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "override the run id derived from the inputs")
	cmd.Flags().IntVar(&opts.top, "top", 10, "rows in the top matched and unmatched lists")
	return cmd
}

func (a *App) run(ctx context.Context, inputs []string, opts *runOptions) error {
	format, err := a.outputFormat(reporting.FormatTable)
	if err != nil {
		return err
	}

	strategy := opts.strategy
	if strategy == "" {
		strategy = a.cfg.MatchStrategy
	}
	deps := []string{depDatabase, depRegistry, depCheckpoints, depEvents, depGraph}
	switch strategy {
	case models.StrategyProgressive:
	case models.StrategyIndex:
		deps = append(deps, depSearch)
	default:
		return fmt.Errorf("unknown match strategy %q", strategy)
	}

	paths, err := ingest.ExpandPaths(inputs)
	if err != nil {
		return err
	}
	if err := a.require(ctx, deps...); err != nil {
		return err
	}

	var server *metrics.Server
	if a.cfg.MetricsAddr != "" {
		server = metrics.NewServer(a.cfg.MetricsAddr, a.cfg.Version, a.healthChecks(), a.logger)
		go func() {
			if err := server.Start(); err != nil {
				a.logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		server.SetReady(true)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	var sinks []processor.Sink
	if a.emitter != nil {
		sinks = append(sinks, a.emitter.EmitResults)
	}
	if a.projector != nil {
		sinks = append(sinks, a.projector.ProjectResults)
	}

	proc := processor.NewProcessor(a.logger, a.registry, a.store, a.checkpoints, a.strategyFactory(strategy), processor.Config{
		Workers:            a.cfg.Workers,
		CheckpointInterval: a.cfg.CheckpointInterval,
		LockTTL:            a.cfg.PartitionLockTTL,
		RunID:              opts.runID,
	}, sinks...)

	run, err := proc.RunFiles(ctx, paths)
	if err != nil {
		return err
	}

	summary := reporting.Build(reporting.Input{
		RunID:      run.ID,
		Strategy:   run.Strategy,
		Results:    run.Results,
		Candidates: run.Candidates,
		Quality:    run.Quality,
		Anomalies:  run.Ranks.Anomalies,
		TopN:       opts.top,
	})

	if a.emitter != nil {
		_ = a.emitter.EmitRunCompleted(ctx, events.RunCompletedEvent{
			BaseEvent:   events.BaseEvent{RunID: run.ID},
			Records:     summary.Records,
			Candidates:  summary.Candidates,
			Matched:     summary.MatchedCandidates,
			NeedsReview: summary.NeedsReview,
			Written:     run.Written,
		})
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":   run.ID,
		"written":  run.Written,
		"resumed":  run.Resumed,
		"duration": run.Duration.String(),
	}).Info("Batch run complete")

	return reporting.WriteSummary(a.out, format, summary)
}

func (a *App) strategyFactory(name string) processor.StrategyFactory {
	if name == models.StrategyIndex {
		cfg := indexmatch.Config{
			Limit:           a.cfg.SearchLimit,
			MaxRetries:      uint64(a.cfg.SearchMaxRetries),
			InitialInterval: a.cfg.SearchInitialInterval,
			MaxInterval:     a.cfg.SearchMaxInterval,
			FuzzyConfidence: a.cfg.IndexFuzzyConfidence,
		}
		return func(aliases matching.AliasLookup) matching.Strategy {
			return indexmatch.NewMatcher(a.logger, a.registry, aliases, a.search, cfg)
		}
	}

	cfg := matching.EngineConfig{
		NormalizedExactConfidence: a.cfg.NormalizedExactConfidence,
		HighThreshold:             a.cfg.HighFuzzyThreshold,
		MediumThreshold:           a.cfg.MediumFuzzyThreshold,
		LowThreshold:              a.cfg.LowFuzzyThreshold,
	}
	return func(aliases matching.AliasLookup) matching.Strategy {
		return matching.NewEngine(a.logger, a.registry, aliases, cfg)
	}
}
