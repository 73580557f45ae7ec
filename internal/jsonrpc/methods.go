package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brbranch/websearch_mcp/internal/service"
)

// handleWebSearch は web.search を処理
// パラメータはワンショットのリクエストと同じ（query|q, top_k|limit）
func (h *Handler) handleWebSearch(ctx context.Context, params any) (any, error) {
	var raw map[string]any
	if err := mapParams(params, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}

	query, topK, err := service.ParseRequest(raw)
	if err != nil {
		return nil, err
	}
	return h.webSearchService.Search(ctx, query, topK)
}

// handleMemoryStore は memory.store を処理
func (h *Handler) handleMemoryStore(ctx context.Context, params any) (any, error) {
	var p StoreParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := h.memoryService.Store(ctx, p.ToRequest())
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"id":        resp.ID,
		"scope":     resp.Scope,
		"namespace": resp.Namespace,
	}, nil
}

// handleMemoryFind は memory.find を処理
func (h *Handler) handleMemoryFind(ctx context.Context, params any) (any, error) {
	var p FindParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := h.memoryService.Find(ctx, p.ToRequest())
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, len(resp.Results))
	for i, r := range resp.Results {
		item := memoryItemToMap(&r.MemoryItem)
		item["score"] = r.Score
		results[i] = item
	}

	return map[string]any{
		"namespace": resp.Namespace,
		"results":   results,
	}, nil
}

// handleMemoryGet は memory.get を処理
func (h *Handler) handleMemoryGet(ctx context.Context, params any) (any, error) {
	var p IDParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	item, err := h.memoryService.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return memoryItemToMap(item), nil
}

// handleMemoryDelete は memory.delete を処理
func (h *Handler) handleMemoryDelete(ctx context.Context, params any) (any, error) {
	var p IDParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	if err := h.memoryService.Delete(ctx, p.ID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

// handleMemoryListRecent は memory.list_recent を処理
func (h *Handler) handleMemoryListRecent(ctx context.Context, params any) (any, error) {
	var p ListRecentParams
	if err := mapParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := h.memoryService.ListRecent(ctx, p.ToRequest())
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, len(resp.Items))
	for i := range resp.Items {
		items[i] = memoryItemToMap(&resp.Items[i])
	}

	return map[string]any{
		"namespace": resp.Namespace,
		"items":     items,
	}, nil
}

// handleConfigGet は config.get を処理
func (h *Handler) handleConfigGet(ctx context.Context) (any, error) {
	resp, err := h.configService.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"namespace":  resp.Namespace,
		"search":     resp.Search,
		"crawler":    resp.Crawler,
		"summarizer": resp.Summarizer,
		"embedder":   resp.Embedder,
		"store":      resp.Store,
		"paths":      resp.Paths,
	}, nil
}

func memoryItemToMap(item *service.MemoryItem) map[string]any {
	return map[string]any{
		"id":        item.ID,
		"scope":     item.Scope,
		"kind":      item.Kind,
		"text":      item.Text,
		"tags":      item.Tags,
		"source":    item.Source,
		"createdAt": item.CreatedAt,
		"metadata":  item.Metadata,
	}
}

// mapParams はparamsを構造体にマッピングする
// 形式が合わない場合は errInvalidParams を返す
func mapParams(params any, target any) error {
	if params == nil {
		return nil
	}

	// anyをJSONに変換してから構造体にアンマーシャル
	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}
