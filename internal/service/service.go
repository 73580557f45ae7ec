// Package service implements the web search and memory operations exposed as MCP tools.
package service

import (
	"context"
	"errors"
)

// WebSearchService はWeb検索→クロール→要点抽出を提供
type WebSearchService interface {
	Search(ctx context.Context, query string, topK int) (*WebSearchResponse, error)
}

// MemoryService はメモリの保存・検索を提供
type MemoryService interface {
	Store(ctx context.Context, req *StoreRequest) (*StoreResponse, error)
	Find(ctx context.Context, req *FindRequest) (*FindResponse, error)
	Get(ctx context.Context, id string) (*MemoryItem, error)
	Delete(ctx context.Context, id string) error
	ListRecent(ctx context.Context, req *ListRecentRequest) (*ListRecentResponse, error)
}

// ConfigService は設定の取得を提供
type ConfigService interface {
	GetConfig(ctx context.Context) (*GetConfigResponse, error)
}

// エラー定義
var (
	ErrQueryRequired  = errors.New("query is required")
	ErrScopeRequired  = errors.New("scope is required")
	ErrTextRequired   = errors.New("text is required")
	ErrIDRequired     = errors.New("id is required")
	ErrInvalidKind    = errors.New("kind must match ^[a-zA-Z0-9_-]+$")
	ErrInvalidTopK    = errors.New("topK must be between 1 and 50")
	ErrInvalidLimit   = errors.New("limit must be positive")
	ErrMemoryNotFound = errors.New("memory not found")
)
