//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brbranch/websearch_mcp/internal/config"
	"github.com/brbranch/websearch_mcp/internal/crawler"
	"github.com/brbranch/websearch_mcp/internal/embedder"
	"github.com/brbranch/websearch_mcp/internal/jsonrpc"
	"github.com/brbranch/websearch_mcp/internal/model"
	"github.com/brbranch/websearch_mcp/internal/service"
	"github.com/brbranch/websearch_mcp/internal/store"
	"github.com/brbranch/websearch_mcp/internal/summarizer"
	"github.com/brbranch/websearch_mcp/internal/websearch"
)

const testModel = "llama3.1:8b"

// upstream はDuckDuckGo・Webページ・Ollamaをまとめて模擬するテスト用サーバー
type upstream struct {
	server        *httptest.Server
	searchCalls   atomic.Int32
	generateCalls atomic.Int32
	tagsCalls     atomic.Int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	u := &upstream{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /html/", func(w http.ResponseWriter, r *http.Request) {
		u.searchCalls.Add(1)
		base := u.server.URL
		wrapped := "https://duckduckgo.com/l/?uddg=" + url.QueryEscape(base+"/page/go")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body>
			<div class="result">
			  <a class="result__a" href="https://duckduckgo.com/y.js?ad_domain=example.com">Ad</a>
			  <a class="result__snippet">sponsored</a>
			</div>
			<div class="result">
			  <a class="result__a" href="%s">The Go Programming Language</a>
			  <a class="result__snippet">Go is an open source language</a>
			</div>
			<div class="result">
			  <a class="result__a" href="%s/page/notes.txt">Plain notes</a>
			  <a class="result__snippet">text file</a>
			</div>
			<div class="result">
			  <a class="result__a" href="%s/page/missing">Missing page</a>
			  <a class="result__snippet">gone</a>
			</div>
			<div class="result">
			  <a class="result__a" href="%s/page/extra">Extra</a>
			  <a class="result__snippet">beyond the limit</a>
			</div>
		</body></html>`, wrapped, base, base, base)
	})

	mux.HandleFunc("GET /page/go", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Go</title><script>track()</script></head><body>
			<nav>menu</nav>
			<h1>The Go Programming Language</h1>
			<p>Go is expressive, concise, clean, and efficient.</p>
			<ul><li>goroutines</li><li>channels</li></ul>
			<footer>copyright</footer>
		</body></html>`)
	})

	mux.HandleFunc("GET /page/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "release notes: go 1.24 adds generic type aliases")
	})

	mux.HandleFunc("GET /page/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		u.tagsCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": testModel}},
		})
	})

	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		u.generateCalls.Add(1)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		facts := "- no relevant facts"
		switch {
		case strings.Contains(req.Prompt, "goroutines"):
			facts = "- Go has goroutines and channels"
		case strings.Contains(req.Prompt, "generic type aliases"):
			facts = "- Go 1.24 adds generic type aliases"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "response": "  " + facts + "\n", "done": true})
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

// setupTestHandler は実クライアントとモックupstreamでHandlerを構築
func setupTestHandler(t *testing.T, up *upstream, st store.Store) *jsonrpc.Handler {
	t.Helper()

	searcher := websearch.New(
		websearch.WithEndpoint(up.server.URL+"/html/"),
		websearch.WithRateLimit(0, 0),
	)
	fetcher := crawler.New(crawler.WithConcurrency(2))
	extractor := summarizer.New(
		summarizer.WithURL(up.server.URL+"/api/generate"),
		summarizer.WithModel(testModel),
	)
	webSearchService := service.NewWebSearchService(searcher, fetcher, extractor)

	emb := embedder.NewLocalEmbedder(128)
	namespace := config.GenerateNamespace(model.ProviderLocal, "hash", emb.GetDimension())
	if st == nil {
		st = store.NewMemoryStore()
	}
	require.NoError(t, st.Initialize(context.Background(), namespace))

	memoryService := service.NewMemoryService(emb, st, namespace)

	cfg := config.DefaultConfig("/tmp/mcp-websearch-e2e/config.json", "/tmp/mcp-websearch-e2e")
	cfg.Store.Type = model.StoreTypeMemory
	configService := service.NewConfigService(config.NewManagerWithConfig(cfg), namespace)

	return jsonrpc.New(webSearchService, memoryService, configService)
}

// RawResponse はJSON-RPCレスポンスの汎用形
type RawResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result"`
	Error   *RPCError `json:"error"`
}

// RPCError はJSON-RPCエラー
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// call はメソッドを呼び出してレスポンスを返す
func call(t *testing.T, h *jsonrpc.Handler, method string, params any) RawResponse {
	t.Helper()

	reqBytes, err := json.Marshal(model.Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	require.NoError(t, err)

	respBytes := h.Handle(context.Background(), reqBytes)
	require.NotNil(t, respBytes)

	var resp RawResponse
	require.NoError(t, json.Unmarshal(respBytes, &resp))
	return resp
}

// callResult は成功を前提にresultをtargetへデコードする
func callResult(t *testing.T, h *jsonrpc.Handler, method string, params any, target any) {
	t.Helper()

	resp := call(t, h, method, params)
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)

	b, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, target))
}

// callTool はtools/callを呼び出し、テキストコンテンツとisErrorを返す
func callTool(t *testing.T, h *jsonrpc.Handler, name string, args map[string]any) (string, bool) {
	t.Helper()

	var result model.ToolsCallResult
	callResult(t, h, "tools/call", map[string]any{"name": name, "arguments": args}, &result)
	require.Len(t, result.Content, 1)
	return result.Content[0].Text, result.IsError
}

// SearchOutput はweb.searchの結果
type SearchOutput struct {
	Results []struct {
		Title string  `json:"title"`
		URL   string  `json:"url"`
		Error *string `json:"error"`
		Facts *string `json:"facts"`
	} `json:"results"`
}

// MemoryOutput はmemory系メソッドが返す1件
type MemoryOutput struct {
	ID        string         `json:"id"`
	Scope     string         `json:"scope"`
	Kind      string         `json:"kind"`
	Text      string         `json:"text"`
	Tags      []string       `json:"tags"`
	Source    *string        `json:"source"`
	CreatedAt string         `json:"createdAt"`
	Metadata  map[string]any `json:"metadata"`
	Score     float64        `json:"score"`
}
