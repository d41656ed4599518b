package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SKYDELAY_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SKYDELAY_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 160.0, cfg.Economics.SeatsPerFlight)
	assert.Equal(t, 0.87, cfg.Economics.LoadFactor)
	assert.Equal(t, 30, cfg.Aggregation.MinRouteFlights)
	assert.Equal(t, 20, cfg.Cascade.TurnaroundMinMinutes)
	assert.Equal(t, 180, cfg.Cascade.TurnaroundMaxMinutes)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skydelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`server:
  address: ":6000"
  gracefulTimeout: 3s
scoring:
  delayRate: 1
  cancellationRate: 0
  connectivity: 0
  cascadePropagation: 0
`), 0644))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SKYDELAY_INPUT_PATH=/data/from-dotenv.csv\n"), 0644))
	t.Setenv("SKYDELAY_ENV_FILE", envFile)
	t.Setenv("SKYDELAY_MYSQL_PORT", "3307")
	t.Setenv("SKYDELAY_INPUT_PATH", "")
	os.Unsetenv("SKYDELAY_INPUT_PATH")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.Address)
	assert.Equal(t, 3*time.Second, cfg.Server.GracefulTimeout)
	assert.Equal(t, 1.0, cfg.Scoring.DelayRate)
	assert.Zero(t, cfg.Scoring.Connectivity)
	assert.Equal(t, 3307, cfg.Store.Port, "env port override")
	assert.Equal(t, "/data/from-dotenv.csv", cfg.Input.Path, ".env input path")
}

func TestValidateRejectsBadWindow(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cascade.TurnaroundMinMinutes = 200
	assert.Error(t, cfg.Validate(), "inverted turnaround window")

	cfg = defaultConfig()
	cfg.Scoring = ScoringConfig{}
	assert.Error(t, cfg.Validate(), "all-zero weights")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SKYDELAY_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
