package jsonrpc

import "github.com/brbranch/websearch_mcp/internal/service"

// StoreParams は memory.store のパラメータ
type StoreParams struct {
	Scope    string         `json:"scope"`
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Tags     []string       `json:"tags"`
	Source   *string        `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

// ToRequest はサービスリクエストに変換
func (p *StoreParams) ToRequest() *service.StoreRequest {
	return &service.StoreRequest{
		Scope:    p.Scope,
		Kind:     p.Kind,
		Text:     p.Text,
		Tags:     p.Tags,
		Source:   p.Source,
		Metadata: p.Metadata,
	}
}

// FindParams は memory.find のパラメータ
type FindParams struct {
	Scope string   `json:"scope"`
	Query string   `json:"query"`
	Kind  *string  `json:"kind"`
	TopK  *int     `json:"topK"`
	Tags  []string `json:"tags"`
}

// ToRequest はサービスリクエストに変換
func (p *FindParams) ToRequest() *service.FindRequest {
	return &service.FindRequest{
		Scope: p.Scope,
		Query: p.Query,
		Kind:  p.Kind,
		TopK:  p.TopK,
		Tags:  p.Tags,
	}
}

// IDParams は memory.get / memory.delete のパラメータ
type IDParams struct {
	ID string `json:"id"`
}

// ListRecentParams は memory.list_recent のパラメータ
type ListRecentParams struct {
	Scope string   `json:"scope"`
	Kind  *string  `json:"kind"`
	Limit *int     `json:"limit"`
	Tags  []string `json:"tags"`
}

// ToRequest はサービスリクエストに変換
func (p *ListRecentParams) ToRequest() *service.ListRecentRequest {
	return &service.ListRecentRequest{
		Scope: p.Scope,
		Kind:  p.Kind,
		Limit: p.Limit,
		Tags:  p.Tags,
	}
}
