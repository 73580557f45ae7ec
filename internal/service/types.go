package service

import "github.com/brbranch/websearch_mcp/internal/model"

// WebSearchResponse はsearch_webの結果
type WebSearchResponse struct {
	Results []WebSearchResult `json:"results"`
}

// WebSearchResult は検索結果1件分
// Errorはクロール失敗時のみ非nil、Factsは抽出成功時のみ設定
type WebSearchResult struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Error *string `json:"error"`
	Facts string  `json:"facts,omitempty"`
}

// StoreRequest はメモリ保存リクエスト
type StoreRequest struct {
	Scope    string
	Kind     string // 空ならnote
	Text     string
	Tags     []string
	Source   *string
	Metadata map[string]any
}

// StoreResponse はメモリ保存レスポンス
type StoreResponse struct {
	ID        string
	Scope     string
	Namespace string
}

// FindRequest はメモリ検索リクエスト
type FindRequest struct {
	Scope string
	Query string
	Kind  *string  // nilなら全kind
	TopK  *int     // default 5, max 50
	Tags  []string // AND検索
}

// FindResponse はメモリ検索レスポンス
type FindResponse struct {
	Namespace string
	Results   []FoundMemory
}

// FoundMemory は検索でヒットしたメモリ
type FoundMemory struct {
	MemoryItem
	Score float64 // 0-1正規化
}

// MemoryItem はレスポンス用のメモリ表現
type MemoryItem struct {
	ID        string
	Scope     string
	Kind      string
	Text      string
	Tags      []string
	Source    *string
	CreatedAt string
	Metadata  map[string]any
}

// ListRecentRequest は最近のメモリ取得リクエスト
type ListRecentRequest struct {
	Scope string
	Kind  *string
	Limit *int // default 10
	Tags  []string
}

// ListRecentResponse は最近のメモリ取得レスポンス
type ListRecentResponse struct {
	Namespace string
	Items     []MemoryItem
}

// GetConfigResponse は設定取得レスポンス
type GetConfigResponse struct {
	Namespace  string
	Search     model.SearchConfig
	Crawler    model.CrawlerConfig
	Summarizer model.SummarizerConfig
	Embedder   model.EmbedderConfig
	Store      model.StoreConfig
	Paths      model.PathsConfig
}

func toMemoryItem(m *model.Memory) MemoryItem {
	createdAt := ""
	if m.CreatedAt != nil {
		createdAt = *m.CreatedAt
	}
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return MemoryItem{
		ID:        m.ID,
		Scope:     m.Scope,
		Kind:      m.Kind,
		Text:      m.Text,
		Tags:      tags,
		Source:    m.Source,
		CreatedAt: createdAt,
		Metadata:  m.Metadata,
	}
}
