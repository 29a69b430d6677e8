package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"clover"`
	Version    string `env:"APP_VERSION" env-default:"dev"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	StartupMaxAttempts int `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Tracing. Spans are dropped when no endpoint is set.
	OTelEndpoint string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	OTelInsecure bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	OTelTimeout  time.Duration `env:"OTEL_EXPORTER_OTLP_TIMEOUT" env-default:"10s"`

	// Staging database: postgres, sqlite or memory
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"sqlite"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabasePath                  string        `env:"DB_PATH" env-default:"clover.db"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:""`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	DatabaseAutoMigrate           bool          `env:"DB_AUTO_MIGRATE" env-default:"true"`

	// Checkpoints and partition locks. Memory checkpoints when disabled.
	RedisEnabled   bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost      string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int           `env:"REDIS_DB" env-default:"0"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" env-default:"clover:"`
	CheckpointTTL  time.Duration `env:"CHECKPOINT_TTL" env-default:"168h"`

	// Resolution events
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"college-resolutions"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Graph projection (Memgraph)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Search index
	SearchBackend         string        `env:"SEARCH_BACKEND" env-default:"memory"`
	MeilisearchHost       string        `env:"MEILISEARCH_HOST" env-default:"http://localhost:7700"`
	MeilisearchAPIKey     string        `env:"MEILISEARCH_API_KEY" env-default:""`
	MeilisearchIndex      string        `env:"MEILISEARCH_INDEX" env-default:"colleges"`
	SearchLimit           int           `env:"SEARCH_LIMIT" env-default:"5"`
	SearchMaxRetries      int           `env:"SEARCH_MAX_RETRIES" env-default:"3"`
	SearchInitialInterval time.Duration `env:"SEARCH_INITIAL_INTERVAL" env-default:"200ms"`
	SearchMaxInterval     time.Duration `env:"SEARCH_MAX_INTERVAL" env-default:"2s"`

	// Processing
	MatchStrategy             string        `env:"MATCH_STRATEGY" env-default:"progressive"`
	Workers                   int           `env:"WORKERS" env-default:"4"`
	CheckpointInterval        int           `env:"CHECKPOINT_INTERVAL" env-default:"200"`
	PartitionLockTTL          time.Duration `env:"PARTITION_LOCK_TTL" env-default:"10m"`
	NormalizedExactConfidence float64       `env:"NORMALIZED_EXACT_CONFIDENCE" env-default:"0.95"`
	HighFuzzyThreshold        float64       `env:"HIGH_FUZZY_THRESHOLD" env-default:"0.90"`
	MediumFuzzyThreshold      float64       `env:"MEDIUM_FUZZY_THRESHOLD" env-default:"0.80"`
	LowFuzzyThreshold         float64       `env:"LOW_FUZZY_THRESHOLD" env-default:"0.70"`
	IndexFuzzyConfidence      float64       `env:"INDEX_FUZZY_CONFIDENCE" env-default:"0.80"`

	// Inputs
	RegistryPath        string `env:"REGISTRY_PATH" env-default:"data/registry.yaml"`
	NormalizationTables string `env:"NORMALIZATION_TABLES" env-default:""`

	// Metrics server, disabled when empty
	MetricsAddr string `env:"METRICS_ADDR" env-default:""`
}

// Load reads .env, then an optional YAML config file, then the environment.
// Environment variables win over the file; tag defaults fill the rest.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load(".env")

	if configFile != "" {
		if err := exportFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, fmt.Errorf("bind config: %w", err)
	}
	return cfg, nil
}

// exportFile sets every key of the config file that the environment leaves
// empty, so the file sits between the environment and the tag defaults
func exportFile(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", configFile, err)
	}

	for _, key := range v.AllKeys() {
		env := strings.ToUpper(key)
		if os.Getenv(env) != "" {
			continue
		}

		value := v.GetString(key)
		if _, ok := v.Get(key).([]any); ok {
			value = strings.Join(v.GetStringSlice(key), ",")
		}
		if err := os.Setenv(env, value); err != nil {
			return fmt.Errorf("export %s: %w", env, err)
		}
	}
	return nil
}
