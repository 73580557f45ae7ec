// Package store provides memory persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/brbranch/websearch_mcp/internal/model"
)

// Store はメモリストアの抽象インターフェース
type Store interface {
	// Memory操作
	Add(ctx context.Context, memory *model.Memory, embedding []float32) error
	Get(ctx context.Context, id string) (*model.Memory, error)
	Delete(ctx context.Context, id string) error

	// ベクトル検索（スコア降順）
	Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]SearchResult, error)

	// 最新一覧取得（createdAt降順）
	ListRecent(ctx context.Context, opts ListOptions) ([]*model.Memory, error)

	// 初期化・終了
	Initialize(ctx context.Context, namespace string) error
	Close() error
}
