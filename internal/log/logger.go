// Package log configures the zerolog logger shared by mcp-websearch.
//
// stdoutはstdio transportのJSON-RPCチャネルなので、ログは常にstderrへ出力する。
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSizeMB = 10

// Config はロガーの設定
type Config struct {
	Level   string    // "debug" | "info" | "warn" | "error"（空ならLOG_LEVEL、なければinfo）
	Output  io.Writer // 省略時はFile、それも空ならos.Stderr
	File    string    // ローテーション付きのログファイル
	MaxSize int       // Fileのローテーションサイズ（MB）
	Service string    // 全ログに付与するサービス名
	Version string
}

var (
	mu   sync.RWMutex
	base = newLogger(Config{}, os.Stderr)
	file *lumberjack.Logger
)

// Configure はグローバルロガーを差し替える
// 以前に開いたログファイルは閉じる
func Configure(cfg Config) {
	writer := cfg.Output
	var rotating *lumberjack.Logger
	if writer == nil && cfg.File != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = defaultMaxSizeMB
		}
		rotating = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: 3,
		}
		writer = rotating
	}
	if writer == nil {
		writer = os.Stderr
	}

	l := newLogger(cfg, writer)
	mu.Lock()
	prev := file
	base = l
	file = rotating
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

func newLogger(cfg Config, writer io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	service := cfg.Service
	if service == "" {
		service = "mcp-websearch"
	}

	ctx := zerolog.New(writer).Level(level).With().Timestamp().Str("service", service)
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}
	return ctx.Logger()
}

// Base は設定済みのロガーを返す
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent はcomponentフィールド付きの子ロガーを返す
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
