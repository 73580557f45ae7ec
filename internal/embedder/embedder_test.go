package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brbranch/websearch_mcp/internal/model"
	"github.com/brbranch/websearch_mcp/internal/upstream"
)

// dimRecorder はUpdateDimの呼び出しを記録する
type dimRecorder struct {
	dims []int
}

func (r *dimRecorder) UpdateDim(dim int) error {
	r.dims = append(r.dims, dim)
	return nil
}

func newOllamaServer(t *testing.T, vectors ...[]float32) *httptest.Server {
	t.Helper()
	var call atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		v := vectors[int(call.Add(1)-1)%len(vectors)]
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": v})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := newOllamaServer(t, []float32{0.1, 0.2, 0.3})
	rec := &dimRecorder{}
	emb := NewOllamaEmbedder(WithOllamaBaseURL(srv.URL+"/"), WithOllamaDimUpdater(rec))

	assert.Equal(t, 0, emb.GetDimension())

	v, err := emb.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	assert.Equal(t, 3, emb.GetDimension())

	_, err = emb.Embed(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, rec.dims)
}

// TestOllamaEmbedder_DimMismatch は次元変化を検出することをテスト
func TestOllamaEmbedder_DimMismatch(t *testing.T) {
	srv := newOllamaServer(t, []float32{0.1, 0.2}, []float32{0.1, 0.2, 0.3})
	emb := NewOllamaEmbedder(WithOllamaBaseURL(srv.URL))

	_, err := emb.Embed(context.Background(), "one")
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "two")
	assert.ErrorIs(t, err, ErrDimMismatch)
}

func TestOllamaEmbedder_EmptyEmbedding(t *testing.T) {
	srv := newOllamaServer(t, []float32{})
	emb := NewOllamaEmbedder(WithOllamaBaseURL(srv.URL))

	_, err := emb.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestOllamaEmbedder_HTTPError(t *testing.T) {
	srv := newOllamaServer(t, []float32{1})
	emb := NewOllamaEmbedder(WithOllamaBaseURL(srv.URL))

	// 空プロンプトはテストサーバーが400を返す
	_, err := emb.Embed(context.Background(), "")
	assert.ErrorIs(t, err, upstream.ErrAPIRequestFailed)
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	emb := NewLocalEmbedder(0)
	assert.Equal(t, DefaultLocalDim, emb.GetDimension())

	a, err := emb.Embed(context.Background(), "DuckDuckGo HTML search")
	require.NoError(t, err)
	b, err := emb.Embed(context.Background(), "duckduckgo html SEARCH")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

// TestLocalEmbedder_Similarity は語彙が重なる文の方が近くなることをテスト
func TestLocalEmbedder_Similarity(t *testing.T) {
	emb := NewLocalEmbedder(512)
	ctx := context.Background()

	query, _ := emb.Embed(ctx, "ollama model pull")
	near, _ := emb.Embed(ctx, "run ollama model pull before searching")
	far, _ := emb.Embed(ctx, "neovim colorscheme settings")

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestLocalEmbedder_Empty(t *testing.T) {
	_, err := NewLocalEmbedder(16).Embed(context.Background(), " !? ")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestFeatures(t *testing.T) {
	assert.Equal(t, []string{"go", "1", "go 1", "24", "1 24"}, Features("Go 1.24"))
	assert.Equal(t, []string{"検索", "索結", "検索 索結"}, Features("検索結"))
	assert.Equal(t, []string{"zoxide", "と", "zoxide と"}, Features("zoxideと"))
}

func TestNewEmbedder(t *testing.T) {
	baseURL := "http://ollama:11434"

	emb, err := NewEmbedder(&model.EmbedderConfig{Provider: model.ProviderOllama, Model: "mxbai-embed-large", Dim: 1024, BaseURL: &baseURL}, nil)
	require.NoError(t, err)
	ollama, ok := emb.(*OllamaEmbedder)
	require.True(t, ok)
	assert.Equal(t, "mxbai-embed-large", ollama.model)
	assert.Equal(t, baseURL, ollama.baseURL)
	assert.Equal(t, 1024, ollama.GetDimension())

	emb, err = NewEmbedder(&model.EmbedderConfig{Provider: model.ProviderLocal, Dim: 64}, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, emb.GetDimension())

	_, err = NewEmbedder(&model.EmbedderConfig{Provider: "openai"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
