package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 500, cfg.Runtime.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Mongo.Timeout.Duration)
	assert.Equal(t, "movies_complete", cfg.Collections.Movies)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	p := writeFile(t, "cfg.json", `{
		"job": "nightly",
		"source": {"kind": "postgres", "dsn": "postgres://u@h/db"},
		"mongo": {"timeout": "5s", "replica_set": "rs0"},
		"runtime": {"batch_size": 1000, "lock_ttl": 60000000000}
	}`)

	cfg, err := Load(p, "")
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.Job)
	assert.Equal(t, "postgres", cfg.Source.Kind)
	assert.Equal(t, 5*time.Second, cfg.Mongo.Timeout.Duration)
	assert.Equal(t, "rs0", cfg.Mongo.ReplicaSet)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, 1000, cfg.Runtime.BatchSize)
	assert.Equal(t, time.Minute, cfg.Runtime.LockTTL.Duration)
	assert.Equal(t, 1000, cfg.Runtime.IDBatch)
}

func TestLoadEnvironmentWins(t *testing.T) {
	p := writeFile(t, "cfg.json", `{"mongo": {"database": "from_file"}}`)
	dotenv := writeFile(t, ".env", "CINE_MONGO_URI=mongodb://dotenv:27017\nCINE_RUNTIME_BATCH_SIZE=42\n")
	t.Setenv("CINE_MONGO_DATABASE", "from_env")
	t.Setenv("CINE_MONGO_TIMEOUT", "750ms")
	// godotenv never overrides variables that are already set.
	t.Setenv("CINE_RUNTIME_BATCH_SIZE", "7")
	t.Cleanup(func() { os.Unsetenv("CINE_MONGO_URI") })

	cfg, err := Load(p, dotenv)
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Mongo.Database)
	assert.Equal(t, "mongodb://dotenv:27017", cfg.Mongo.URI)
	assert.Equal(t, 750*time.Millisecond, cfg.Mongo.Timeout.Duration)
	assert.Equal(t, 7, cfg.Runtime.BatchSize)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")
	assert.ErrorContains(t, err, "config: read")

	_, err = Load(writeFile(t, "bad.json", `{"mongo": {"timeout": "soon"}}`), "")
	assert.ErrorContains(t, err, "config: decode")

	t.Setenv("CINE_RUNTIME_BATCH_SIZE", "many")
	_, err = Load("", "")
	assert.ErrorContains(t, err, "config: environment")
}
