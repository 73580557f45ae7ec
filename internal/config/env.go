package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/brbranch/websearch_mcp/internal/model"
)

// 環境変数名の定数
const (
	EnvOllamaURL   = "OLLAMA_URL"
	EnvOllamaModel = "OLLAMA_MODEL"
	EnvStoreType   = "MCP_WEBSEARCH_STORE"
	EnvDataDir     = "MCP_WEBSEARCH_DATA_DIR"
	EnvLogLevel    = "LOG_LEVEL"
	EnvRedisURL    = "MCP_WEBSEARCH_REDIS_URL"
)

// LoadDotEnv はpathの.envファイルを環境変数に読み込む
// ファイルが無い場合は何もしない。既存の環境変数は上書きしない
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnvOverrides は環境変数による設定上書きを適用する
// config を直接変更する
func ApplyEnvOverrides(config *model.Config) {
	if v := os.Getenv(EnvOllamaURL); v != "" {
		config.Summarizer.URL = v
	}
	if v := os.Getenv(EnvOllamaModel); v != "" {
		config.Summarizer.Model = v
	}
	if v := strings.ToLower(os.Getenv(EnvStoreType)); v != "" {
		config.Store.Type = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		config.Paths.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Log.Level = v
	}
	// URLが指定されたらRedisキャッシュに切り替える
	if v := os.Getenv(EnvRedisURL); v != "" {
		config.Search.RedisURL = v
		config.Search.CacheBackend = model.CacheBackendRedis
	}
}
