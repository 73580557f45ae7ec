// Package bootstrap provides common initialization logic for mcp-websearch.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/brbranch/websearch_mcp/internal/cache"
	"github.com/brbranch/websearch_mcp/internal/config"
	"github.com/brbranch/websearch_mcp/internal/crawler"
	"github.com/brbranch/websearch_mcp/internal/embedder"
	"github.com/brbranch/websearch_mcp/internal/jsonrpc"
	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/model"
	"github.com/brbranch/websearch_mcp/internal/service"
	"github.com/brbranch/websearch_mcp/internal/store"
	"github.com/brbranch/websearch_mcp/internal/summarizer"
	"github.com/brbranch/websearch_mcp/internal/upstream"
	"github.com/brbranch/websearch_mcp/internal/websearch"
)

const (
	defaultQdrantURL = "http://localhost:6333"
	defaultRedisURL  = "redis://localhost:6379/0"
)

// Services は初期化されたサービス群を保持
type Services struct {
	WebSearchService service.WebSearchService
	MemoryService    service.MemoryService
	ConfigService    service.ConfigService
	Handler          *jsonrpc.Handler
	Config           *model.Config
	Namespace        string
}

// Initialize は設定を読み込み、必要なサービスを初期化する
// 戻り値のcleanupはキャッシュとストアを閉じる
func Initialize(ctx context.Context, configPath string) (*Services, func(), error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configManager, err := config.NewManager(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if err := configManager.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configManager.GetConfig()

	logFile, err := config.ExpandTilde(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	log.Configure(log.Config{Level: cfg.Log.Level, File: logFile, MaxSize: cfg.Log.MaxSizeMB})
	logger := log.WithComponent("bootstrap")

	// 1. Web検索パイプライン
	searchCache, err := newSearchCache(ctx, cfg.Search)
	if err != nil {
		return nil, nil, err
	}
	webSearchService := service.NewWebSearchService(
		newSearchClient(cfg.Search),
		newCrawler(cfg.Crawler),
		newExtractor(cfg.Summarizer),
		service.WithCacheTTL(seconds(cfg.Search.CacheTTLSeconds)),
		service.WithCache(searchCache),
	)

	// 2. Embedder初期化
	emb, err := newEmbedder(ctx, configManager)
	if err != nil {
		searchCache.Close()
		return nil, nil, err
	}
	cfg = configManager.GetConfig()
	namespace := config.GenerateNamespace(cfg.Embedder.Provider, cfg.Embedder.Model, emb.GetDimension())

	// 3. Store初期化
	st, err := newStore(cfg)
	if err != nil {
		searchCache.Close()
		return nil, nil, err
	}
	if err := st.Initialize(ctx, namespace); err != nil {
		st.Close()
		searchCache.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// 4. Services初期化
	memoryService := service.NewMemoryService(emb, st, namespace)
	configService := service.NewConfigService(configManager, namespace)

	logger.Info().
		Str("namespace", namespace).
		Str("store", cfg.Store.Type).
		Str("cache", cfg.Search.CacheBackend).
		Bool("summarizer", cfg.Summarizer.Enabled).
		Msg("services initialized")

	cleanup := func() {
		if err := searchCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close search cache")
		}
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close store")
		}
	}

	return &Services{
		WebSearchService: webSearchService,
		MemoryService:    memoryService,
		ConfigService:    configService,
		Handler:          jsonrpc.New(webSearchService, memoryService, configService),
		Config:           cfg,
		Namespace:        namespace,
	}, cleanup, nil
}

// newSearchCache は検索結果キャッシュを作成する
func newSearchCache(ctx context.Context, cfg model.SearchConfig) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case model.CacheBackendMemory, "":
		return cache.NewMemory(), nil
	case model.CacheBackendRedis:
		url := cfg.RedisURL
		if url == "" {
			url = defaultRedisURL
		}
		c, err := cache.NewRedis(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.CacheBackend)
	}
}

func newSearchClient(cfg model.SearchConfig) *websearch.Client {
	opts := []websearch.Option{
		websearch.WithRateLimit(cfg.RatePerSecond, cfg.RateBurst),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, websearch.WithEndpoint(cfg.Endpoint))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, websearch.WithHTTPClient(upstream.NewHTTPClient(seconds(cfg.TimeoutSeconds))))
	}
	return websearch.New(opts...)
}

func newCrawler(cfg model.CrawlerConfig) *crawler.Crawler {
	opts := []crawler.Option{}
	if cfg.Concurrency > 0 {
		opts = append(opts, crawler.WithConcurrency(cfg.Concurrency))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, crawler.WithTimeout(seconds(cfg.TimeoutSeconds)))
	}
	if cfg.MaxBodyBytes > 0 {
		opts = append(opts, crawler.WithMaxBodyBytes(cfg.MaxBodyBytes))
	}
	return crawler.New(opts...)
}

// newExtractor は要点抽出器を作成（無効ならNoop）
func newExtractor(cfg model.SummarizerConfig) summarizer.Extractor {
	if !cfg.Enabled {
		return summarizer.Noop{}
	}
	opts := []summarizer.Option{}
	if cfg.URL != "" {
		opts = append(opts, summarizer.WithURL(cfg.URL))
	}
	if cfg.Model != "" {
		opts = append(opts, summarizer.WithModel(cfg.Model))
	}
	if cfg.MaxChars > 0 {
		opts = append(opts, summarizer.WithMaxChars(cfg.MaxChars))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, summarizer.WithHTTPClient(upstream.NewHTTPClient(seconds(cfg.TimeoutSeconds))))
	}
	return summarizer.New(opts...)
}

// newEmbedder はEmbedderを作成する
// ollamaで次元が未確定の場合は1回埋め込んで次元を確定し、設定に保存する
func newEmbedder(ctx context.Context, mgr *config.Manager) (embedder.Embedder, error) {
	cfg := mgr.GetConfig()
	emb, err := embedder.NewEmbedder(&cfg.Embedder, mgr)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if emb.GetDimension() > 0 {
		return emb, nil
	}

	if _, err := emb.Embed(ctx, "dimension probe"); err != nil {
		return nil, fmt.Errorf("failed to determine embedding dimension: %w", err)
	}
	if err := mgr.Save(); err != nil {
		logger := log.WithComponent("bootstrap")
		logger.Warn().Err(err).Msg("failed to persist embedding dimension")
	}
	return emb, nil
}

func newStore(cfg *model.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case model.StoreTypeSQLite:
		dbPath := filepath.Join(cfg.Paths.DataDir, "memory.db")
		if cfg.Store.Path != nil && *cfg.Store.Path != "" {
			expanded, err := config.ExpandTilde(*cfg.Store.Path)
			if err != nil {
				return nil, err
			}
			dbPath = expanded
		}
		if err := config.EnsureDir(filepath.Dir(dbPath)); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
		return st, nil
	case model.StoreTypeQdrant:
		url := defaultQdrantURL
		if cfg.Store.URL != nil && *cfg.Store.URL != "" {
			url = *cfg.Store.URL
		}
		st, err := store.NewQdrantStore(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create qdrant store: %w", err)
		}
		return st, nil
	case model.StoreTypeMemory, "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
