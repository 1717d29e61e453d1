package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/bits/clog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "config", cfg.Name)
	assert.Equal(t, []string{".", "./config"}, cfg.Paths)
	assert.Equal(t, "yaml", cfg.FileType)
	assert.Equal(t, "BITS", cfg.EnvPrefix)

	cfg = &Config{Name: "../etc/passwd"}
	assert.Error(t, cfg.validate())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bits.yaml", `
snowflake:
  datacenter_id: 1
  worker_id: 15
  epoch: "2023-01-01T00:00:00Z"
`)

	loader, err := New(&Config{Name: "bits", Paths: []string{dir}, EnvPrefix: "BITSTEST"}, WithLogger(clog.Discard()))
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, 15, loader.Get("snowflake.worker_id"))
	assert.Equal(t, filepath.Join(dir, "bits.yaml"), loader.ConfigFileUsed())

	var node struct {
		DatacenterID int64  `mapstructure:"datacenter_id"`
		WorkerID     int64  `mapstructure:"worker_id"`
		Epoch        string `mapstructure:"epoch"`
	}
	require.NoError(t, loader.UnmarshalKey("snowflake", &node))
	assert.Equal(t, int64(1), node.DatacenterID)
	assert.Equal(t, int64(15), node.WorkerID)
	assert.Equal(t, "2023-01-01T00:00:00Z", node.Epoch)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	loader, err := New(&Config{
		Name:      "missing",
		Paths:     []string{t.TempDir()},
		EnvPrefix: "BITSTEST",
		Defaults:  map[string]any{"snowflake.worker_id": 3},
	})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, 3, loader.Get("snowflake.worker_id"))
	assert.Empty(t, loader.ConfigFileUsed())
}

func TestLoadEmptyFails(t *testing.T) {
	loader, err := New(&Config{Name: "missing", Paths: []string{t.TempDir()}, EnvPrefix: "BITSEMPTY"})
	require.NoError(t, err)

	err = loader.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("BITSENV_SNOWFLAKE_WORKER_ID", "9")

	loader, err := New(&Config{
		Name:      "missing",
		Paths:     []string{t.TempDir()},
		EnvPrefix: "bitsenv",
		Defaults:  map[string]any{"snowflake.worker_id": 3},
	})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, "9", loader.Get("snowflake.worker_id"))

	// Unmarshal 走 AllSettings，环境变量会覆盖嵌套的默认值
	var root struct {
		Snowflake struct {
			WorkerID int64 `mapstructure:"worker_id"`
		} `mapstructure:"snowflake"`
	}
	require.NoError(t, loader.Unmarshal(&root))
	assert.Equal(t, int64(9), root.Snowflake.WorkerID)
}

func TestEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bits.yaml", "snowflake:\n  worker_id: 1\n  datacenter_id: 2\n")
	writeFile(t, dir, "bits.prod.yaml", "snowflake:\n  worker_id: 7\n")
	t.Setenv("BITSOVL_ENV", "prod")

	loader, err := New(&Config{Name: "bits", Paths: []string{dir}, EnvPrefix: "BITSOVL"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, 7, loader.Get("snowflake.worker_id"))
	assert.Equal(t, 2, loader.Get("snowflake.datacenter_id"))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bits.yaml", "log:\n  level: info\n")

	loader, err := New(&Config{Name: "bits", Paths: []string{dir}, EnvPrefix: "BITSWATCH"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	_, err = loader.Watch(context.Background(), "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := loader.Watch(ctx, "log.level")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case event := <-ch:
		assert.Equal(t, "log.level", event.Key)
		assert.Equal(t, "debug", event.Value)
		assert.Equal(t, "info", event.OldValue)
		assert.Equal(t, "file", event.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for config change event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(&Config{Name: "missing", Paths: []string{t.TempDir()}, EnvPrefix: "BITSPANIC"})
	})
}
