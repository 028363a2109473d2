package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dqengine/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.Parallelism)
	assert.Equal(t, 5, cfg.Engine.SampleSize)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)
	assert.True(t, cfg.Gate.FailOnCritical)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Database.URL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DQ_PARALLELISM", "8")
	t.Setenv("DQ_FAIL_ON_CRITICAL", "false")
	t.Setenv("DQ_MIN_QUALITY_SCORE", "0.9")
	t.Setenv("DQ_TIMEOUT", "5s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.Parallelism)
	assert.False(t, cfg.Gate.FailOnCritical)
	assert.Equal(t, 0.9, cfg.Gate.MinQualityScore)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	t.Setenv("DQ_MIN_QUALITY_SCORE", "1.5")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DQ_SUITES_DIR=/etc/dq/suites\n"), 0o600))
	t.Setenv("DQ_SUITES_DIR", "")
	os.Unsetenv("DQ_SUITES_DIR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/dq/suites", cfg.Suites.Dir)
}

func TestLoadWithoutEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
