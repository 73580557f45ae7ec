package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brbranch/websearch_mcp/internal/upstream"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "nomic-embed-text"
)

// OllamaEmbedder はOllama /api/embeddings を使用するEmbedder実装
type OllamaEmbedder struct {
	httpClient *http.Client
	baseURL    string
	model      string
	dimUpdater DimUpdater

	mu  sync.RWMutex
	dim int
}

// OllamaOption はOllamaEmbedderのオプション
type OllamaOption func(*OllamaEmbedder)

// WithOllamaBaseURL はベースURLを設定
func WithOllamaBaseURL(url string) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.baseURL = strings.TrimRight(url, "/")
	}
}

// WithOllamaModel はモデルを設定
func WithOllamaModel(model string) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.model = model
	}
}

// WithOllamaDim は既知の次元を設定
func WithOllamaDim(dim int) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.dim = dim
	}
}

// WithOllamaDimUpdater は次元更新コールバックを設定
func WithOllamaDimUpdater(updater DimUpdater) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.dimUpdater = updater
	}
}

// WithOllamaHTTPClient はHTTPクライアントを設定
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.httpClient = client
	}
}

// NewOllamaEmbedder は新しいOllamaEmbedderを作成
func NewOllamaEmbedder(opts ...OllamaOption) *OllamaEmbedder {
	e := &OllamaEmbedder{
		httpClient: upstream.NewHTTPClient(30 * time.Second),
		baseURL:    DefaultOllamaBaseURL,
		model:      DefaultOllamaModel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed はテキストを埋め込みベクトルに変換
// 初回成功時に次元を確定し、以降は次元が変わればErrDimMismatchを返す
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqJSON, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckStatus(resp); err != nil {
		return nil, err
	}

	var out ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrInvalidResponse, err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	if err := e.recordDim(len(out.Embedding)); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

func (e *OllamaEmbedder) recordDim(dim int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.dim == 0:
		e.dim = dim
		if e.dimUpdater != nil {
			if err := e.dimUpdater.UpdateDim(dim); err != nil {
				return fmt.Errorf("failed to update dim: %w", err)
			}
		}
	case e.dim != dim:
		return fmt.Errorf("%w: expected %d, got %d", ErrDimMismatch, e.dim, dim)
	}
	return nil
}

// GetDimension は次元を返す（未確定なら0）
func (e *OllamaEmbedder) GetDimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}
