package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/brbranch/websearch_mcp/internal/model"
)

// Manager は設定の読み書きを管理する
type Manager struct {
	mu         sync.RWMutex
	config     *model.Config
	configPath string
}

// NewManager は新しいManagerを作成する
// configPathが空文字の場合、デフォルトパス（~/.local-mcp-websearch/config.json）を使用
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	expanded, err := ExpandTilde(configPath)
	if err != nil {
		return nil, err
	}
	configPath = expanded

	dataDir, err := GetDefaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get default data dir: %w", err)
	}

	return &Manager{
		config:     DefaultConfig(configPath, dataDir),
		configPath: configPath,
	}, nil
}

// Load は設定ファイルを読み込み、環境変数の上書きを適用する
// ファイルが存在しない場合はデフォルト設定を使用（エラーなし）
// ファイルに無いフィールドはデフォルト値のまま残る
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.config

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		// デフォルト設定のまま
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	ApplyEnvOverrides(&cfg)

	dataDir, err := ExpandTilde(cfg.Paths.DataDir)
	if err != nil {
		return err
	}
	cfg.Paths.DataDir = dataDir
	cfg.Paths.ConfigPath = m.configPath

	m.config = &cfg
	return nil
}

// Save は設定ファイルを保存する
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.config, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := EnsureDir(filepath.Dir(m.configPath)); err != nil {
		return err
	}

	// fsync後にrenameで置き換える
	if err := renameio.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfig は現在の設定のコピーを返す
func (m *Manager) GetConfig() *model.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// GetConfigPath は設定ファイルパスを返す
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// UpdateDim は埋め込み次元を更新する（初回埋め込み時に使用）
func (m *Manager) UpdateDim(dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config.Embedder.Dim = dim
	return nil
}

// NewManagerWithConfig は指定した設定でManagerを作成する（テスト用）
func NewManagerWithConfig(cfg *model.Config) *Manager {
	return &Manager{
		config:     cfg,
		configPath: cfg.Paths.ConfigPath,
	}
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig(configPath, dataDir string) *model.Config {
	return &model.Config{
		TransportDefaults: model.TransportDefaults{
			DefaultTransport: model.TransportStdio,
		},
		Search: model.SearchConfig{
			Endpoint:        "https://html.duckduckgo.com/html/",
			TimeoutSeconds:  20,
			RatePerSecond:   1,
			RateBurst:       2,
			CacheTTLSeconds: 600,
			CacheBackend:    model.CacheBackendMemory,
		},
		Crawler: model.CrawlerConfig{
			Concurrency:    4,
			TimeoutSeconds: 20,
			MaxBodyBytes:   2 << 20,
		},
		Summarizer: model.SummarizerConfig{
			Enabled:        true,
			URL:            "http://localhost:11434/api/generate",
			Model:          "llama3.1:8b",
			TimeoutSeconds: 60,
			MaxChars:       6000,
		},
		Embedder: model.EmbedderConfig{
			Provider: model.ProviderLocal,
			Model:    "hash",
			Dim:      256,
		},
		Store: model.StoreConfig{
			Type: model.StoreTypeSQLite,
		},
		HTTP: model.HTTPConfig{
			RequestsPerMinute: 60,
		},
		Log: model.LogConfig{
			Level: "info",
		},
		Paths: model.PathsConfig{
			ConfigPath: configPath,
			DataDir:    dataDir,
		},
	}
}
