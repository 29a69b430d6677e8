// Package processor runs one batch: extract candidates, match them per state
// partition, stage the results and recompute ranks.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/clover/pkg/checkpoint"
	"github.com/Ramsey-B/clover/pkg/extractor"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/ingest"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/ranks"
	"github.com/Ramsey-B/clover/pkg/registry"
	"github.com/Ramsey-B/clover/pkg/staging"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrPartitionLocked is returned when another run holds a state partition
var ErrPartitionLocked = errors.New("partition locked by another run")

// StrategyFactory builds the matching strategy for a run from the alias
// snapshot taken when the run starts
type StrategyFactory func(aliases matching.AliasLookup) matching.Strategy

// Sink receives every staged batch. Sink failures are logged and do not stop the run.
type Sink func(ctx context.Context, runID string, results []*models.MatchResult) error

// Config contains batch settings
type Config struct {
	Workers            int
	CheckpointInterval int
	LockTTL            time.Duration
	// RunID overrides the id derived from the inputs
	RunID string
}

// DefaultConfig returns the default batch settings
func DefaultConfig() Config {
	return Config{
		Workers:            4,
		CheckpointInterval: 200,
		LockTTL:            10 * time.Minute,
	}
}

// Run is the outcome of one batch
type Run struct {
	ID         string                           `json:"run_id"`
	Strategy   string                           `json:"strategy"`
	Quality    *ingest.QualityReport            `json:"quality,omitempty"`
	Extraction extractor.Stats                  `json:"extraction"`
	Candidates []*models.UniqueCollegeCandidate `json:"-"`
	Results    []*models.MatchResult            `json:"-"`
	Written    int                              `json:"written"`
	Resumed    int                              `json:"resumed"`
	Ranks      *ranks.Summary                   `json:"-"`
	Duration   time.Duration                    `json:"duration"`
}

// Processor orchestrates a batch run
type Processor struct {
	logger      ectologger.Logger
	loader      *ingest.Loader
	registry    *registry.Registry
	store       staging.Store
	checkpoints checkpoint.Store
	newStrategy StrategyFactory
	aggregator  *ranks.Aggregator
	sinks       []Sink
	config      Config
}

// NewProcessor creates a processor. Sinks are optional side outputs.
func NewProcessor(
	logger ectologger.Logger,
	reg *registry.Registry,
	store staging.Store,
	checkpoints checkpoint.Store,
	newStrategy StrategyFactory,
	config Config,
	sinks ...Sink,
) *Processor {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.CheckpointInterval <= 0 {
		config.CheckpointInterval = defaults.CheckpointInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}

	return &Processor{
		logger:      logger,
		loader:      ingest.NewLoader(logger),
		registry:    reg,
		store:       store,
		checkpoints: checkpoints,
		newStrategy: newStrategy,
		aggregator:  ranks.NewAggregator(logger),
		sinks:       sinks,
		config:      config,
	}
}

// RunFiles loads the source files and processes their records
func (p *Processor) RunFiles(ctx context.Context, paths []string) (*Run, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.RunFiles")
	defer span.End()

	records, quality := p.loader.LoadFiles(ctx, paths)
	metrics.RecordsLoaded.Add(float64(quality.Valid))
	for reason, n := range quality.Dropped {
		metrics.RecordsDropped.WithLabelValues(reason).Add(float64(n))
	}

	run, err := p.Process(ctx, records)
	if run != nil {
		run.Quality = quality
	}
	return run, err
}

// Process matches the records' candidates and stages the results. A run that
// stopped part way resumes from the last checkpoint of each partition.
func (p *Processor) Process(ctx context.Context, records []*models.RawAdmissionRecord) (run *Run, err error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.Process")
	defer span.End()

	start := time.Now()

	aliases, err := p.store.ListAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	strategy := p.newStrategy(matching.NewAliasSet(aliases))

	candidates, stats := extractor.New(p.registry.Normalizer()).Extract(records)
	run = &Run{
		ID:         p.runID(strategy.Name(), candidates),
		Strategy:   strategy.Name(),
		Extraction: stats,
		Candidates: candidates,
	}

	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		run.Duration = time.Since(start)
		metrics.RunDuration.WithLabelValues(run.Strategy, status).Observe(run.Duration.Seconds())
	}()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":   run.ID,
		"strategy": run.Strategy,
	})
	log.WithFields(map[string]any{
		"records":    stats.Records,
		"candidates": stats.Candidates,
		"states":     stats.States,
		"reduction":  stats.Reduction,
		"aliases":    len(aliases),
	}).Info("Starting batch run")

	previous, err := p.currentResults(ctx, candidates)
	if err != nil {
		return run, err
	}

	partitions := extractor.PartitionByState(candidates)
	outcomes := make([]partitionOutcome, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i, part := range partitions {
		g.Go(func() error {
			out, err := p.processPartition(gctx, run.ID, strategy, part)
			outcomes[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return run, err
	}

	for _, out := range outcomes {
		run.Written += out.written
		run.Resumed += out.resumed
	}

	if err := p.checkpoints.Clear(ctx, run.ID); err != nil {
		log.WithError(err).Warn("Failed to clear checkpoints")
	}

	run.Results, err = p.currentResults(ctx, candidates)
	if err != nil {
		return run, err
	}

	run.Ranks = p.aggregator.Aggregate(ctx, candidates, ranks.MapLookup(run.Results))
	scope := ranks.Keys(candidates, ranks.MapLookup(previous), ranks.MapLookup(run.Results))
	if err := p.store.ReplaceRankEntries(ctx, scope, run.Ranks.Entries); err != nil {
		return run, fmt.Errorf("stage rank entries: %w", err)
	}
	metrics.RankAnomalies.Set(float64(len(run.Ranks.Anomalies)))

	log.WithFields(map[string]any{
		"written":   run.Written,
		"resumed":   run.Resumed,
		"entries":   len(run.Ranks.Entries),
		"anomalies": len(run.Ranks.Anomalies),
	}).Info("Finished batch run")

	return run, nil
}

type partitionOutcome struct {
	written int
	resumed int
}

func (p *Processor) processPartition(ctx context.Context, runID string, strategy matching.Strategy, part *extractor.Partition) (partitionOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.processPartition")
	defer span.End()

	var out partitionOutcome
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": runID,
		"state":  part.State,
	})

	lock, err := p.checkpoints.Lock(ctx, part.State, p.config.LockTTL)
	if errors.Is(err, checkpoint.ErrLockNotAcquired) {
		return out, fmt.Errorf("state %s: %w", part.State, ErrPartitionLocked)
	}
	if err != nil {
		return out, fmt.Errorf("lock state %s: %w", part.State, err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("Failed to release partition lock")
		}
	}()

	metrics.PartitionsInFlight.Inc()
	defer metrics.PartitionsInFlight.Dec()

	offset, err := p.checkpoints.Offset(ctx, runID, part.State)
	if err != nil {
		return out, err
	}
	if offset > len(part.Candidates) {
		offset = len(part.Candidates)
	}
	if offset > 0 {
		out.resumed = offset
		log.WithField("offset", offset).Info("Resuming partition from checkpoint")
	}

	batch := make([]*models.MatchResult, 0, p.config.CheckpointInterval)
	flush := func(next int) error {
		written, err := p.store.UpsertResults(ctx, batch)
		if err != nil {
			return fmt.Errorf("stage results for %s: %w", part.State, err)
		}
		out.written += written
		metrics.ResultsWritten.WithLabelValues(part.State).Add(float64(written))
		p.publish(ctx, runID, batch)

		if err := p.checkpoints.Save(ctx, runID, part.State, next); err != nil {
			return fmt.Errorf("checkpoint %s: %w", part.State, err)
		}
		if err := lock.Extend(ctx, p.config.LockTTL); err != nil {
			return fmt.Errorf("extend lock for %s: %w", part.State, err)
		}
		batch = batch[:0]
		return nil
	}

	for i := offset; i < len(part.Candidates); i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		started := time.Now()
		result := strategy.Match(ctx, part.Candidates[i])
		metrics.MatchDuration.WithLabelValues(strategy.Name()).Observe(time.Since(started).Seconds())
		metrics.CandidatesMatched.WithLabelValues(part.State, result.Pass.String(), string(result.Method)).Inc()

		batch = append(batch, result)
		if len(batch) >= p.config.CheckpointInterval {
			if err := flush(i + 1); err != nil {
				return out, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(len(part.Candidates)); err != nil {
			return out, err
		}
	}

	log.WithFields(map[string]any{
		"candidates": len(part.Candidates),
		"written":    out.written,
	}).Debug("Finished partition")

	return out, nil
}

func (p *Processor) publish(ctx context.Context, runID string, results []*models.MatchResult) {
	for _, sink := range p.sinks {
		if err := sink(ctx, runID, results); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Warn("Failed to publish staged results")
		}
	}
}

// currentResults reads back the staged result of every candidate of the run,
// which includes manual decisions that guarded writes kept in place
func (p *Processor) currentResults(ctx context.Context, candidates []*models.UniqueCollegeCandidate) ([]*models.MatchResult, error) {
	staged, err := p.store.ListResults(ctx, staging.ResultFilter{})
	if err != nil {
		return nil, fmt.Errorf("read staged results: %w", err)
	}

	inRun := make(map[models.CandidateKey]struct{}, len(candidates))
	for _, c := range candidates {
		inRun[c.Key] = struct{}{}
	}

	results := make([]*models.MatchResult, 0, len(candidates))
	for _, r := range staged {
		if _, ok := inRun[r.Key()]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// runID is stable for the same inputs so a restarted run finds its checkpoints
func (p *Processor) runID(strategy string, candidates []*models.UniqueCollegeCandidate) string {
	if p.config.RunID != "" {
		return p.config.RunID
	}

	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		keys = append(keys, fmt.Sprintf("%s#%d", c.Key, c.RecordCount))
	}
	sort.Strings(keys)

	return fingerprint.Generate(map[string]any{
		"strategy":   strategy,
		"registry":   p.registry.Len(),
		"candidates": keys,
	})[:16]
}
