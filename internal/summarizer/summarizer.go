// Package summarizer extracts query-relevant facts from page content with a
// local Ollama model.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/upstream"
)

const (
	DefaultURL      = "http://localhost:11434/api/generate"
	DefaultModel    = "llama3.1:8b"
	DefaultMaxChars = 6000
	DefaultTimeout  = 60 * time.Second

	tagsTimeout = 10 * time.Second
)

// エラー定義
var (
	ErrModelUnavailable = errors.New("summarizer model unavailable")
)

// Extractor はページ本文から要点を抽出するインターフェース
type Extractor interface {
	ExtractFacts(ctx context.Context, content, query string) (string, error)
}

// ModelStatus はOllamaモデルの存在確認結果
type ModelStatus struct {
	Checked   bool   `json:"checked"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Client はOllama APIを使用するExtractor実装
type Client struct {
	httpClient  *http.Client
	generateURL string
	model       string
	maxChars    int
	logger      zerolog.Logger

	mu     sync.Mutex
	status ModelStatus
	checks singleflight.Group
}

// Option はClientのオプション
type Option func(*Client)

// WithURL はgenerateエンドポイントを設定
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.generateURL = u
		}
	}
}

// WithModel はモデル名を設定
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxChars はプロンプトに含める本文の最大文字数を設定
func WithMaxChars(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithHTTPClient はHTTPクライアントを設定
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New は新しいClientを作成
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:  upstream.NewHTTPClient(DefaultTimeout),
		generateURL: DefaultURL,
		model:       DefaultModel,
		maxChars:    DefaultMaxChars,
		logger:      log.WithComponent("summarizer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model は使用するモデル名を返す
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// ExtractFacts はcontentからqueryに関連する要点を箇条書きで抽出する
// contentが空の場合はOllamaを呼ばずに空文字を返す
func (c *Client) ExtractFacts(ctx context.Context, content, query string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	status, err := c.EnsureModel(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if !status.Available {
		return "", fmt.Errorf("%w: %s", ErrModelUnavailable, status.Error)
	}

	reqJSON, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: BuildPrompt(Truncate(content, c.maxChars), query),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", upstream.ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckStatus(resp); err != nil {
		return "", err
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", upstream.ErrInvalidResponse, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", upstream.ErrAPIRequestFailed, out.Error)
	}

	c.logger.Debug().
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Msg("facts extracted")

	return strings.TrimSpace(out.Response), nil
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// EnsureModel はOllamaにモデルが存在するかを確認する
// 結果（存在/非存在）はキャッシュし、通信失敗はエラーとして返して次回呼び出しで再確認する
// 同時に呼ばれた確認は1回の /api/tags 取得にまとめる
func (c *Client) EnsureModel(ctx context.Context) (ModelStatus, error) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	if status.Checked {
		return status, nil
	}

	ch := c.checks.DoChan("tags", func() (any, error) {
		names, err := c.listModels(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to list ollama models")
			return nil, err
		}

		status := ModelStatus{Checked: true, Available: hasModel(names, c.model)}
		if !status.Available {
			status.Error = "Model not found: " + c.model
			c.logger.Warn().Str("model", c.model).Msg("ollama model not pulled")
		}
		c.mu.Lock()
		c.status = status
		c.mu.Unlock()
		return status, nil
	})

	select {
	case <-ctx.Done():
		return ModelStatus{Error: ctx.Err().Error()}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ModelStatus{Error: res.Err.Error()}, res.Err
		}
		return res.Val.(ModelStatus), nil
	}
}

func (c *Client) listModels(ctx context.Context) ([]string, error) {
	tagsURL, err := TagsURL(c.generateURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, tagsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tagsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckStatus(resp); err != nil {
		return nil, err
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrInvalidResponse, err)
	}

	names := make([]string, 0, len(tags.Models)*2)
	for _, m := range tags.Models {
		names = append(names, m.Name, m.Model)
	}
	return names, nil
}

// hasModel はタグ省略時に ":latest" を補って比較する
func hasModel(names []string, model string) bool {
	want := model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		if n == model || n == want {
			return true
		}
	}
	return false
}

// TagsURL はgenerateエンドポイントと同じホストの /api/tags を返す
func TagsURL(generateURL string) (string, error) {
	u, err := url.Parse(generateURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid ollama url %q", generateURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/api/tags"}).String(), nil
}

// BuildPrompt は要点抽出用のプロンプトを組み立てる
func BuildPrompt(content, query string) string {
	var b strings.Builder
	if query != "" {
		fmt.Fprintf(&b, "Extract the facts from the following web page content that help answer the query %q. ", query)
	} else {
		b.WriteString("Summarize the following web page content. ")
	}
	b.WriteString("Respond with 4-6 bullet points. ")
	b.WriteString("Focus on key facts, avoid boilerplate, and keep it under 120 words.\n\n")
	b.WriteString(content)
	return b.String()
}

// Truncate はsを先頭maxCharsルーンに切り詰める
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}

// Noop は要点抽出を行わないExtractor
// summarizer.enabled=false の場合に使用する
type Noop struct{}

// ExtractFacts は常に空文字を返す
func (Noop) ExtractFacts(ctx context.Context, content, query string) (string, error) {
	return "", nil
}
