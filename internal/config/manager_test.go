package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brbranch/websearch_mcp/internal/model"
)

// clearEnv はテスト中の環境変数上書きを無効化する
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvOllamaURL, EnvOllamaModel, EnvStoreType, EnvDataDir, EnvLogLevel, EnvRedisURL} {
		t.Setenv(key, "")
	}
}

func TestManager_Load_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.GetConfig()
	assert.Equal(t, model.TransportStdio, cfg.TransportDefaults.DefaultTransport)
	assert.Equal(t, "llama3.1:8b", cfg.Summarizer.Model)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Summarizer.URL)
	assert.Equal(t, 6000, cfg.Summarizer.MaxChars)
	assert.Equal(t, model.StoreTypeSQLite, cfg.Store.Type)
	assert.Equal(t, model.CacheBackendMemory, cfg.Search.CacheBackend)
	assert.Equal(t, path, cfg.Paths.ConfigPath)
}

// TestManager_Load_PartialFileKeepsDefaults はファイルに無い項目がデフォルトのまま残ることをテスト
func TestManager_Load_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"summarizer":{"enabled":true,"model":"qwen2.5:7b"},"store":{"type":"memory"}}`), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.GetConfig()
	assert.Equal(t, "qwen2.5:7b", cfg.Summarizer.Model)
	assert.Equal(t, model.StoreTypeMemory, cfg.Store.Type)
	assert.Equal(t, 4, cfg.Crawler.Concurrency)
	assert.Equal(t, 600, cfg.Search.CacheTTLSeconds)
}

func TestManager_Load_InvalidJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store":`), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Error(t, m.Load())
}

func TestManager_Load_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvOllamaURL, "http://gpu-box:11434/api/generate")
	t.Setenv(EnvOllamaModel, "mistral")
	t.Setenv(EnvStoreType, "QDRANT")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvRedisURL, "redis://cache:6379/1")

	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.GetConfig()
	assert.Equal(t, "http://gpu-box:11434/api/generate", cfg.Summarizer.URL)
	assert.Equal(t, "mistral", cfg.Summarizer.Model)
	assert.Equal(t, model.StoreTypeQdrant, cfg.Store.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, model.CacheBackendRedis, cfg.Search.CacheBackend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Search.RedisURL)
}

func TestManager_SaveAndReload(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())
	require.NoError(t, m.UpdateDim(768))
	require.NoError(t, m.Save())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 768, reloaded.GetConfig().Embedder.Dim)
}

// TestManager_GetConfig_ReturnsCopy は返り値の変更が内部状態に影響しないことをテスト
func TestManager_GetConfig_ReturnsCopy(t *testing.T) {
	m := NewManagerWithConfig(DefaultConfig("/tmp/c.json", "/tmp/data"))

	cfg := m.GetConfig()
	cfg.Store.Type = model.StoreTypeMemory

	assert.Equal(t, model.StoreTypeSQLite, m.GetConfig().Store.Type)
	assert.Equal(t, "/tmp/c.json", m.GetConfigPath())
}
