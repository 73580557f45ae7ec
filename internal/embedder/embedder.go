// Package embedder turns memory text into vectors for similarity search.
package embedder

import (
	"context"
	"errors"
)

// Embedder はテキストから埋め込みベクトルを生成するインターフェース
type Embedder interface {
	// Embed はテキストを埋め込みベクトルに変換する
	Embed(ctx context.Context, text string) ([]float32, error)

	// GetDimension はこのEmbedderが生成するベクトルの次元数を返す
	// 初回埋め込み前（dim未確定時）は 0 を返す
	GetDimension() int
}

// DimUpdater は次元数が確定した際に呼び出されるコールバック
type DimUpdater interface {
	UpdateDim(dim int) error
}

// エラー定義
var (
	ErrEmptyEmbedding  = errors.New("empty embedding returned")
	ErrUnknownProvider = errors.New("unknown embedder provider")
	ErrDimMismatch     = errors.New("embedding dimension changed")
)
