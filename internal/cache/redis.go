package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brbranch/websearch_mcp/internal/log"
)

const (
	// DefaultRedisPrefix は全キーに付与するプレフィックス
	DefaultRedisPrefix = "mcp-websearch:"

	pingTimeout = 5 * time.Second
	opTimeout   = 2 * time.Second
)

// Redis はRedisを使うCache実装
// 複数のサーバープロセスで検索結果を共有する
type Redis struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedis はredis:// URLからRedisを作成し、接続を確認する
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = pingTimeout
	opts.ReadTimeout = opTimeout
	opts.WriteTimeout = opTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	r := &Redis{
		client: client,
		prefix: DefaultRedisPrefix,
		logger: log.WithComponent("cache"),
	}
	r.logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis cache")
	return r, nil
}

// Get は値を取得する（無い場合・失敗時はミス）
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("redis get failed")
		return nil, false
	}
	return val, true
}

// Set はTTL付きで値を保存する
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("redis set failed")
	}
}

// Close は接続を閉じる
func (r *Redis) Close() error {
	return r.client.Close()
}
