// Package crawler fetches web pages concurrently and extracts their readable
// content as markdown-like text.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/brbranch/websearch_mcp/internal/htmltext"
	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/upstream"
	"github.com/brbranch/websearch_mcp/internal/websearch"
)

const (
	DefaultConcurrency  = 4
	DefaultTimeout      = 20 * time.Second
	DefaultMaxBodyBytes = 2 << 20 // 2MiB
)

// エラー定義
var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Page は1ページ分の取得結果
// Errが非nilの場合Contentは空
type Page struct {
	URL     string
	Title   string
	Content string
	Err     error
}

// ErrorMessage はエラー文字列を返す（エラーなしならnil）
func (p Page) ErrorMessage() *string {
	if p.Err == nil {
		return nil
	}
	msg := p.Err.Error()
	return &msg
}

// Fetcher は複数URLを取得するインターフェース
type Fetcher interface {
	Crawl(ctx context.Context, urls []string) []Page
}

// Crawler はHTTPでページを取得するFetcher実装
type Crawler struct {
	httpClient   *http.Client
	concurrency  int
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
	logger       zerolog.Logger
}

// Option はCrawlerのオプション
type Option func(*Crawler)

// WithHTTPClient はHTTPクライアントを設定
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.httpClient = client
	}
}

// WithConcurrency は同時取得数を設定
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout は1ページあたりのタイムアウトを設定
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodyBytes は読み込むボディの上限を設定
func WithMaxBodyBytes(n int64) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithUserAgent はUser-Agentを設定
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		c.userAgent = ua
	}
}

// New は新しいCrawlerを作成
func New(opts ...Option) *Crawler {
	c := &Crawler{
		httpClient:   &http.Client{},
		concurrency:  DefaultConcurrency,
		timeout:      DefaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		userAgent:    websearch.DefaultUserAgent,
		logger:       log.WithComponent("crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl はurlsを並行取得する
// 戻り値はurlsと同じ順序・同じ長さで、失敗したページはErrに理由を持つ
func (c *Crawler) Crawl(ctx context.Context, urls []string) []Page {
	pages := make([]Page, len(urls))
	if len(urls) == 0 {
		return pages
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			pages[i] = c.fetch(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return pages
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) Page {
	page := Page{URL: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		page.Err = fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
		return page
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	title, content, err := c.get(ctx, u.String())
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("crawl failed")
		page.Err = err
		return page
	}

	c.logger.Debug().
		Str("url", rawURL).
		Int("chars", len(content)).
		Dur("elapsed", time.Since(start)).
		Msg("crawled")

	page.Title = title
	page.Content = content
	return page
}

func (c *Crawler) get(ctx context.Context, target string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", upstream.ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckStatus(resp); err != nil {
		return "", "", err
	}

	decoded, release, err := decodeBody(resp)
	if err != nil {
		return "", "", err
	}
	defer release()
	body := io.LimitReader(decoded, c.maxBodyBytes)

	switch kind := contentKind(resp.Header.Get("Content-Type")); kind {
	case kindHTML:
		doc, err := htmltext.Extract(body)
		if err != nil {
			return "", "", fmt.Errorf("failed to parse html: %w", err)
		}
		return doc.Title, doc.Content, nil
	case kindText:
		b, err := io.ReadAll(body)
		if err != nil {
			return "", "", fmt.Errorf("failed to read body: %w", err)
		}
		return "", strings.TrimSpace(string(b)), nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedContent, resp.Header.Get("Content-Type"))
	}
}

type bodyKind int

const (
	kindUnsupported bodyKind = iota
	kindHTML
	kindText
)

// contentKind はContent-Typeから本文の扱いを決める
// Content-Typeが無い場合はHTMLとして扱う
func contentKind(contentType string) bodyKind {
	if contentType == "" {
		return kindHTML
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kindUnsupported
	}
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return kindHTML
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		mediaType == "application/xml",
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"):
		return kindText
	default:
		return kindUnsupported
	}
}
