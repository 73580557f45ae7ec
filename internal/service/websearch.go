package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/brbranch/websearch_mcp/internal/cache"
	"github.com/brbranch/websearch_mcp/internal/crawler"
	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/metrics"
	"github.com/brbranch/websearch_mcp/internal/summarizer"
	"github.com/brbranch/websearch_mcp/internal/websearch"
)

const (
	// MaxResults は1回の検索でクロールする最大件数
	MaxResults = 3
	// DefaultCacheTTL は検索結果キャッシュの保持期間
	DefaultCacheTTL = 10 * time.Minute
	// SearchTimeout は共有される1回の検索（検索・クロール・抽出）の上限
	SearchTimeout = 3 * time.Minute
)

// ClampTopK はtopKを[1, MaxResults]に丸める
func ClampTopK(topK int) int {
	return max(1, min(topK, MaxResults))
}

// webSearchService はWebSearchServiceの実装
type webSearchService struct {
	searcher  websearch.Searcher
	fetcher   crawler.Fetcher
	extractor summarizer.Extractor
	cache     cache.Cache
	cacheTTL  time.Duration
	logger    zerolog.Logger

	group singleflight.Group
}

// WebSearchOption はwebSearchServiceのオプション
type WebSearchOption func(*webSearchService)

// WithCacheTTL は検索結果のキャッシュ期間を設定（0以下で無効）
func WithCacheTTL(ttl time.Duration) WebSearchOption {
	return func(s *webSearchService) {
		s.cacheTTL = ttl
	}
}

// WithCache はキャッシュの保存先を差し替える（デフォルトはプロセス内）
func WithCache(c cache.Cache) WebSearchOption {
	return func(s *webSearchService) {
		s.cache = c
	}
}

// NewWebSearchService はWebSearchServiceの新しいインスタンスを作成
// extractorがnilの場合は要点抽出を行わない
func NewWebSearchService(searcher websearch.Searcher, fetcher crawler.Fetcher, extractor summarizer.Extractor, opts ...WebSearchOption) WebSearchService {
	if extractor == nil {
		extractor = summarizer.Noop{}
	}
	s := &webSearchService{
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		cacheTTL:  DefaultCacheTTL,
		logger:    log.WithComponent("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	return s
}

// Search はDuckDuckGoで検索し、上位ページをクロールして要点を抽出する
// 個々のページのクロール/抽出失敗は結果に記録し、検索全体は失敗させない
func (s *webSearchService) Search(ctx context.Context, query string, topK int) (*WebSearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	topK = ClampTopK(topK)
	key := fmt.Sprintf("%d:%s", topK, query)

	if resp, ok := s.cached(ctx, key); ok {
		metrics.RecordSearch("cache", 0)
		return resp, nil
	}

	// 共有される検索は呼び出し元のキャンセルから切り離し、各呼び出し元は自身のctxで待つ
	ch := s.group.DoChan(key, func() (any, error) {
		searchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SearchTimeout)
		defer cancel()

		start := time.Now()
		resp, err := s.search(searchCtx, query, topK)
		if err != nil {
			return nil, err
		}
		metrics.RecordSearch("upstream", time.Since(start))
		s.store(searchCtx, key, resp)
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordSearch("error", 0)
			return nil, res.Err
		}
		if res.Shared {
			metrics.RecordSearch("shared", 0)
		}
		return cloneResponse(res.Val.(*WebSearchResponse)), nil
	}
}

func (s *webSearchService) search(ctx context.Context, query string, topK int) (*WebSearchResponse, error) {
	hits, err := s.searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	urls := make([]string, len(hits))
	for i, hit := range hits {
		urls[i] = hit.URL
	}
	pages := s.fetcher.Crawl(ctx, urls)

	facts := make([]string, len(hits))
	var g errgroup.Group
	for i := range hits {
		if i >= len(pages) {
			break
		}
		page := pages[i]
		metrics.RecordCrawl(page.Err == nil)
		if page.Err != nil {
			s.logger.Debug().Err(page.Err).Str("url", page.URL).Msg("crawl failed")
			continue
		}
		g.Go(func() error {
			text, err := s.extractor.ExtractFacts(ctx, page.Content, query)
			switch {
			case err != nil:
				metrics.RecordExtraction("failure")
				s.logger.Warn().Err(err).Str("url", page.URL).Msg("fact extraction failed")
			case text == "":
				metrics.RecordExtraction("empty")
			default:
				metrics.RecordExtraction("success")
				facts[i] = text
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := &WebSearchResponse{Results: make([]WebSearchResult, 0, len(hits))}
	for i, hit := range hits {
		entry := WebSearchResult{Title: hit.Title, URL: hit.URL, Facts: facts[i]}
		if i < len(pages) {
			entry.Error = pages[i].ErrorMessage()
		}
		resp.Results = append(resp.Results, entry)
	}

	s.logger.Info().
		Str("query", query).
		Int("results", len(resp.Results)).
		Msg("web search completed")
	return resp, nil
}

func (s *webSearchService) cached(ctx context.Context, key string) (*WebSearchResponse, bool) {
	if s.cacheTTL <= 0 {
		return nil, false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var resp WebSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt cache entry")
		return nil, false
	}
	if resp.Results == nil {
		resp.Results = []WebSearchResult{}
	}
	return &resp, true
}

func (s *webSearchService) store(ctx context.Context, key string, resp *WebSearchResponse) {
	if s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode search response for cache")
		return
	}
	s.cache.Set(ctx, key, data, s.cacheTTL)
}

func cloneResponse(resp *WebSearchResponse) *WebSearchResponse {
	out := &WebSearchResponse{Results: make([]WebSearchResult, len(resp.Results))}
	copy(out.Results, resp.Results)
	return out
}
