// Package websearch implements a DuckDuckGo HTML search client.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/upstream"
)

const (
	// DefaultEndpoint はJavaScript不要のDuckDuckGo HTML版
	DefaultEndpoint = "https://html.duckduckgo.com/html/"
	// DefaultTimeout は検索リクエストのタイムアウト
	DefaultTimeout = 20 * time.Second
	// DefaultUserAgent はHTML版がブロックしないデスクトップブラウザのUA
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// エラー定義
var (
	ErrQueryRequired = errors.New("query is required")
)

// Result は検索結果の1件
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher はWeb検索のインターフェース
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Client はDuckDuckGo HTML版を使用するSearcher実装
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option はClientのオプション
type Option func(*Client)

// WithEndpoint は検索エンドポイントを設定（テスト用）
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient はHTTPクライアントを設定
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithUserAgent はUser-Agentを設定
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimit はDuckDuckGoへのリクエスト間隔を設定
// perSecondが0以下なら制限しない
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New は新しいClientを作成
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: upstream.NewHTTPClient(DefaultTimeout),
		endpoint:   DefaultEndpoint,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(rate.Limit(1), 2),
		logger:     log.WithComponent("websearch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search はqueryで検索し、最大limit件の結果を返す
// limitが1未満の場合は1件として扱う
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}
	if limit < 1 {
		limit = 1
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("q", query)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckStatus(resp); err != nil {
		return nil, err
	}

	results, err := ParseResults(resp.Body, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrInvalidResponse, err)
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("duckduckgo search")

	return results, nil
}
