// Package config defines the JSON configuration of the migration tool and
// how it is assembled: built-in defaults, then an optional JSON file, then an
// optional .env file, then CINE_-prefixed environment variables.
//
// Example:
//
//	{
//	  "job":    "imdb-nightly",
//	  "source": { "kind": "sqlite", "dsn": "data/imdb.db" },
//	  "mongo":  { "uri": "mongodb://localhost:27017", "database": "cineexplorer", "timeout": "2s" },
//	  "runtime": { "batch_size": 500 }
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override, e.g. CINE_MONGO_URI.
const EnvPrefix = "CINE_"

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job labels metrics and log lines of a run.
	Job         string      `json:"job" env:"JOB"`
	Source      Source      `json:"source" envPrefix:"SOURCE_"`
	Mongo       Mongo       `json:"mongo" envPrefix:"MONGO_"`
	Collections Collections `json:"collections" envPrefix:"COLLECTION_"`
	Runtime     Runtime     `json:"runtime" envPrefix:"RUNTIME_"`
	Metrics     Metrics     `json:"metrics" envPrefix:"METRICS_"`
	Log         Log         `json:"log" envPrefix:"LOG_"`
	HTTP        HTTP        `json:"http" envPrefix:"HTTP_"`
}

// Source selects the relational catalog.
type Source struct {
	// Kind is a registered backend: sqlite, postgres, mysql or mssql.
	Kind string `json:"kind" env:"KIND"`
	DSN  string `json:"dsn" env:"DSN"`
}

// Mongo holds the document-store connection settings.
type Mongo struct {
	URI         string   `json:"uri" env:"URI"`
	Database    string   `json:"database" env:"DATABASE"`
	Timeout     Duration `json:"timeout" env:"TIMEOUT"`
	ReplicaSet  string   `json:"replica_set" env:"REPLICA_SET"`
	MaxPoolSize uint64   `json:"max_pool_size" env:"MAX_POOL_SIZE"`
}

// Collections names the target collections.
type Collections struct {
	Movies string `json:"movies" env:"MOVIES"`
	Locks  string `json:"locks" env:"LOCKS"`
}

// Runtime controls batching and run locking.
type Runtime struct {
	BatchSize int      `json:"batch_size" env:"BATCH_SIZE"`
	IDBatch   int      `json:"id_batch" env:"ID_BATCH"`
	LockTTL   Duration `json:"lock_ttl" env:"LOCK_TTL"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is none, prometheus or datadog.
	Backend        string `json:"backend" env:"BACKEND"`
	PushgatewayURL string `json:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	DatadogAddr    string `json:"datadog_addr" env:"DATADOG_ADDR"`
}

// Log configures logrus and the optional rotating file.
type Log struct {
	Level      string `json:"level" env:"LEVEL"`
	Format     string `json:"format" env:"FORMAT"`
	File       string `json:"file" env:"FILE"`
	MaxSizeMB  int    `json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `json:"max_backups" env:"MAX_BACKUPS"`
}

// HTTP configures the read API.
type HTTP struct {
	Addr string `json:"addr" env:"ADDR"`
}

// Duration is a time.Duration that reads "2s"-style strings from JSON and
// the environment.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\" or nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Job:         "cineexplorer",
		Source:      Source{Kind: "sqlite"},
		Mongo:       Mongo{URI: "mongodb://localhost:27017", Database: "cineexplorer", Timeout: Duration{2 * time.Second}},
		Collections: Collections{Movies: "movies_complete", Locks: "run_locks"},
		Runtime:     Runtime{BatchSize: 500, IDBatch: 1000, LockTTL: Duration{30 * time.Minute}},
		Metrics:     Metrics{Backend: "none"},
		Log:         Log{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 3},
		HTTP:        HTTP{Addr: ":8000"},
	}
}

// Load assembles the configuration. path and envFile are optional; a
// missing envFile is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}
