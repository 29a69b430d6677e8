// Package app wires configuration, logging and the batch dependencies behind
// the clover command line.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/db"
	"github.com/Ramsey-B/clover/pkg/checkpoint"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/indexmatch"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/registry"
	"github.com/Ramsey-B/clover/pkg/staging"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

// Dependency names used with the startup manager
const (
	depDatabase    = "database"
	depRegistry    = "registry"
	depCheckpoints = "checkpoints"
	depSearch      = "search"
	depEvents      = "events"
	depGraph       = "graph"
)

// App holds the configuration and the dependencies started for a command
type App struct {
	version    string
	configFile string
	format     string
	out        io.Writer

	cfg             *config.Config
	logger          ectologger.Logger
	startup         *startup.Startup
	shutdownTracing func(context.Context) error

	db          database.DB
	store       staging.Store
	registry    *registry.Registry
	checkpoints checkpoint.Store
	search      indexmatch.Backend
	emitter     *events.Emitter
	producer    *kafka.Producer
	graph       *graph.Client
	projector   *graph.Projector
}

// New creates the application
func New(version string) *App {
	return &App{
		version: version,
		out:     os.Stdout,
	}
}

// setup loads configuration and builds the logger and tracer. It runs before
// every command.
func (a *App) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.version != "" && a.version != "dev" {
		cfg.Version = a.version
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(logging.Config{
		AppName: cfg.AppName,
		Level:   cfg.LogLevel,
		Pretty:  cfg.PrettyLogs,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger

	shutdown, err := tracing.Setup(ctx, cfg.AppName, exporters.OTLPConfig{
		Endpoint: cfg.OTelEndpoint,
		Insecure: cfg.OTelInsecure,
		Timeout:  cfg.OTelTimeout,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	a.shutdownTracing = shutdown

	a.startup = startup.NewStartup(logger, cfg.StartupMaxAttempts)
	return nil
}

// teardown stops every started dependency and flushes spans
func (a *App) teardown(ctx context.Context) error {
	var firstErr error
	if a.startup != nil {
		firstErr = a.startup.Stop(ctx)
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// require starts the named dependencies and whatever they depend on
func (a *App) require(ctx context.Context, names ...string) error {
	for _, name := range names {
		a.startup.AddDependency(a.dependency(name))
	}
	return a.startup.Start(ctx)
}

func (a *App) dependency(name string) *startup.Func {
	switch name {
	case depDatabase:
		return &startup.Func{Name: depDatabase, StartFunc: a.startStore, StopFunc: a.stopStore}
	case depRegistry:
		return &startup.Func{Name: depRegistry, StartFunc: a.loadRegistry}
	case depCheckpoints:
		return &startup.Func{Name: depCheckpoints, StartFunc: a.startCheckpoints, StopFunc: a.stopCheckpoints}
	case depSearch:
		return &startup.Func{Name: depSearch, Requires: []string{depRegistry}, StartFunc: a.startSearch}
	case depEvents:
		return &startup.Func{Name: depEvents, StartFunc: a.startEvents, StopFunc: a.stopEvents}
	case depGraph:
		return &startup.Func{Name: depGraph, Requires: []string{depRegistry}, StartFunc: a.startGraph, StopFunc: a.stopGraph}
	}
	return nil
}

func (a *App) startStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if a.cfg.DatabaseDriver == "memory" {
		a.store = staging.NewMemoryStore()
		return nil
	}

	conn, err := database.Open(ctx, database.ConnectionConfig{
		Driver:          a.cfg.DatabaseDriver,
		Host:            a.cfg.DatabaseHost,
		Port:            a.cfg.DatabasePort,
		UserName:        a.cfg.DatabaseUserName,
		Password:        a.cfg.DatabasePassword,
		Name:            a.cfg.DatabaseName,
		SSLMode:         a.cfg.DatabaseSSLMode,
		Path:            a.cfg.DatabasePath,
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return err
	}

	if a.cfg.DatabaseAutoMigrate {
		if err := a.migrate(conn); err != nil {
			_ = conn.Close()
			return err
		}
	}

	a.db = conn
	a.store = staging.NewSQLStore(conn, a.logger)
	return nil
}

func (a *App) migrate(conn database.DB) error {
	version := a.cfg.DatabaseMigrationVersion
	if version < 0 {
		version = 0
	}
	return database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Embedded:            db.Migrations,
		Version:             uint(version),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	}).Migrate(conn)
}

func (a *App) stopStore(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) loadRegistry(ctx context.Context) error {
	if a.registry != nil {
		return nil
	}

	normalizer := normalizers.Default()
	if a.cfg.NormalizationTables != "" {
		tables, err := normalizers.LoadTablesFile(a.cfg.NormalizationTables)
		if err != nil {
			return fmt.Errorf("load normalization tables: %w", err)
		}
		normalizer = normalizers.NewNameNormalizer(tables)
	}
	for _, defect := range normalizer.Defects() {
		a.logger.WithContext(ctx).WithField("defect", defect.String()).Warn("Ignoring state alias defect")
	}

	colleges, err := registry.LoadFile(a.cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("load registry %s: %w", a.cfg.RegistryPath, err)
	}
	reg, err := registry.New(colleges, normalizer)
	if err != nil {
		return err
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"path":     a.cfg.RegistryPath,
		"colleges": reg.Len(),
		"states":   len(reg.States()),
	}).Info("Loaded college registry")
	a.registry = reg
	return nil
}

func (a *App) startCheckpoints(ctx context.Context) error {
	if a.checkpoints != nil {
		return nil
	}
	if !a.cfg.RedisEnabled {
		a.checkpoints = checkpoint.NewMemoryStore()
		return nil
	}
	store, err := checkpoint.NewRedisStore(checkpoint.RedisConfig{
		Host:      a.cfg.RedisHost,
		Port:      a.cfg.RedisPort,
		Password:  a.cfg.RedisPassword,
		DB:        a.cfg.RedisDB,
		KeyPrefix: a.cfg.RedisKeyPrefix,
		TTL:       a.cfg.CheckpointTTL,
	}, a.logger)
	if err != nil {
		return err
	}
	a.checkpoints = store
	return nil
}

func (a *App) stopCheckpoints(ctx context.Context) error {
	if store, ok := a.checkpoints.(*checkpoint.RedisStore); ok {
		return store.Close()
	}
	return nil
}

// startSearch connects the index backend. The in-process backend is filled
// from the registry since it does not outlive the command.
func (a *App) startSearch(ctx context.Context) error {
	if a.search != nil {
		return nil
	}
	switch a.cfg.SearchBackend {
	case "meilisearch":
		a.search = indexmatch.NewMeiliBackend(indexmatch.MeiliConfig{
			Host:   a.cfg.MeilisearchHost,
			APIKey: a.cfg.MeilisearchAPIKey,
			Index:  a.cfg.MeilisearchIndex,
		}, a.logger)
	case "memory", "":
		backend := indexmatch.NewMemoryBackend()
		if err := backend.Load(ctx, indexmatch.BuildDocuments(a.registry)); err != nil {
			return err
		}
		a.search = backend
	default:
		return fmt.Errorf("unknown search backend %q", a.cfg.SearchBackend)
	}
	return nil
}

func (a *App) startEvents(ctx context.Context) error {
	if !a.cfg.KafkaEnabled || a.emitter != nil {
		return nil
	}
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaOutputTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: millis(a.cfg.KafkaBatchTimeout),
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	a.emitter = events.NewEmitter(a.producer, a.logger)
	return nil
}

func (a *App) stopEvents(ctx context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

// startGraph connects to the graph database and projects the registry
func (a *App) startGraph(ctx context.Context) error {
	if !a.cfg.GraphEnabled || a.projector != nil {
		return nil
	}
	client, err := graph.NewClient(graph.Config{
		Host:     a.cfg.GraphDBHost,
		Port:     a.cfg.GraphDBPort,
		Username: a.cfg.GraphDBUser,
		Password: a.cfg.GraphDBPassword,
	}, a.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return err
	}

	projector := graph.NewProjector(client, a.logger)
	if err := projector.ProjectRegistry(ctx, a.registry); err != nil {
		_ = client.Close(ctx)
		return err
	}
	a.graph = client
	a.projector = projector
	return nil
}

func (a *App) stopGraph(ctx context.Context) error {
	if a.graph == nil {
		return nil
	}
	return a.graph.Close(ctx)
}

// healthChecks returns a check per started external dependency
func (a *App) healthChecks() map[string]metrics.Check {
	checks := map[string]metrics.Check{}
	if a.db != nil {
		checks[depDatabase] = func(ctx context.Context) error {
			return a.db.Raw().PingContext(ctx)
		}
	}
	if store, ok := a.checkpoints.(*checkpoint.RedisStore); ok {
		checks["redis"] = store.Ping
	}
	if a.graph != nil {
		checks[depGraph] = a.graph.VerifyConnectivity
	}
	return checks
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
