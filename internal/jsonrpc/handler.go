// Package jsonrpc implements JSON-RPC 2.0 handlers for mcp-websearch.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/brbranch/websearch_mcp/internal/embedder"
	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/model"
	"github.com/brbranch/websearch_mcp/internal/service"
	"github.com/brbranch/websearch_mcp/internal/summarizer"
	"github.com/brbranch/websearch_mcp/internal/upstream"
	"github.com/brbranch/websearch_mcp/internal/websearch"
)

// Handler はJSON-RPCリクエストを処理する
type Handler struct {
	webSearchService service.WebSearchService
	memoryService    service.MemoryService
	configService    service.ConfigService
	logger           zerolog.Logger
}

// New は新しいHandlerを生成
func New(
	webSearchService service.WebSearchService,
	memoryService service.MemoryService,
	configService service.ConfigService,
) *Handler {
	return &Handler{
		webSearchService: webSearchService,
		memoryService:    memoryService,
		configService:    configService,
		logger:           log.WithComponent("jsonrpc"),
	}
}

// Handle はJSON-RPCリクエストをパースしてディスパッチ
// 戻り値は *model.Response または *model.ErrorResponse のJSON bytes
// 通知（notifications/*）の場合はnilを返し、transportは何も書き込まない
func (h *Handler) Handle(ctx context.Context, requestBytes []byte) []byte {
	// 1. パース
	var req model.Request
	if err := json.Unmarshal(requestBytes, &req); err != nil {
		return encode(model.NewParseError(err.Error()))
	}

	// 2. バージョン確認
	if req.JSONRPC != model.JSONRPCVersion {
		return encode(model.NewInvalidRequest(req.ID, "jsonrpc must be 2.0"))
	}

	// 3. method確認
	if req.Method == "" {
		return encode(model.NewInvalidRequest(req.ID, "method is required"))
	}

	// 4. 通知は応答しない
	if req.IsNotification() {
		h.logger.Debug().Str("method", req.Method).Msg("notification received")
		return nil
	}

	// 5. ディスパッチ
	result, err := h.dispatch(ctx, req.Method, req.Params)
	if err != nil {
		resp := h.mapError(req.ID, err)
		h.logger.Debug().
			Str("method", req.Method).
			Int("code", resp.Error.Code).
			Err(err).
			Msg("request failed")
		return encode(resp)
	}

	// 6. 成功レスポンス
	return encode(model.NewResponse(req.ID, result))
}

// dispatch はメソッドに応じて適切なハンドラーを呼び出す
func (h *Handler) dispatch(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "initialize":
		return h.handleInitialize(ctx, params)
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return h.handleToolsList(ctx, params)
	case "tools/call":
		return h.handleToolsCall(ctx, params)
	}
	return h.dispatchInternal(ctx, method, params)
}

// dispatchInternal は内部メソッドを呼び出す（直接呼び出しとtools/callで共用）
func (h *Handler) dispatchInternal(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "web.search":
		return h.handleWebSearch(ctx, params)
	case "memory.store":
		return h.handleMemoryStore(ctx, params)
	case "memory.find":
		return h.handleMemoryFind(ctx, params)
	case "memory.get":
		return h.handleMemoryGet(ctx, params)
	case "memory.delete":
		return h.handleMemoryDelete(ctx, params)
	case "memory.list_recent":
		return h.handleMemoryListRecent(ctx, params)
	case "config.get":
		return h.handleConfigGet(ctx)
	default:
		return nil, &methodNotFoundError{method: method}
	}
}

// mapError はサービスエラーをJSON-RPCエラーに変換
func (h *Handler) mapError(id any, err error) *model.ErrorResponse {
	// method not found
	var mnfErr *methodNotFoundError
	if errors.As(err, &mnfErr) {
		return model.NewMethodNotFound(id, mnfErr.method)
	}

	// invalid params
	if errors.Is(err, errInvalidParams) ||
		errors.Is(err, service.ErrMissingQuery) ||
		errors.Is(err, service.ErrQueryRequired) ||
		errors.Is(err, websearch.ErrQueryRequired) ||
		errors.Is(err, service.ErrScopeRequired) ||
		errors.Is(err, service.ErrTextRequired) ||
		errors.Is(err, service.ErrIDRequired) ||
		errors.Is(err, service.ErrInvalidKind) ||
		errors.Is(err, service.ErrInvalidTopK) ||
		errors.Is(err, service.ErrInvalidLimit) {
		return model.NewInvalidParams(id, err.Error())
	}

	// not found
	if errors.Is(err, service.ErrMemoryNotFound) {
		return model.NewErrorResponse(id, model.ErrCodeNotFound, "Memory not found", nil)
	}

	// Ollamaモデル未取得
	if errors.Is(err, summarizer.ErrModelUnavailable) {
		return model.NewErrorResponse(id, model.ErrCodeModelUnavailable, err.Error(), nil)
	}

	// upstream (DuckDuckGo / Ollama)
	if errors.Is(err, upstream.ErrAPIRequestFailed) ||
		errors.Is(err, upstream.ErrInvalidResponse) ||
		errors.Is(err, embedder.ErrEmptyEmbedding) ||
		errors.Is(err, embedder.ErrDimMismatch) {
		return model.NewErrorResponse(id, model.ErrCodeProviderError, err.Error(), nil)
	}

	// internal error
	return model.NewInternalError(id, err.Error())
}

func encode(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// methodNotFoundError はメソッド未検出エラー
type methodNotFoundError struct {
	method string
}

func (e *methodNotFoundError) Error() string {
	return "method not found: " + e.method
}

// errInvalidParams はパラメータの形式不正
var errInvalidParams = errors.New("invalid params")
