package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantQuery string
		wantTopK  int
		wantErr   error
	}{
		{name: "missing query", raw: `{}`, wantErr: ErrMissingQuery},
		{name: "empty query", raw: `{"query": ""}`, wantErr: ErrMissingQuery},
		{name: "whitespace query", raw: `{"query": "  \t "}`, wantErr: ErrMissingQuery},
		{name: "whitespace query falls back to q", raw: `{"query": " ", "q": "golang"}`, wantQuery: "golang", wantTopK: MaxResults},
		{name: "q alias", raw: `{"q": "golang"}`, wantQuery: "golang", wantTopK: MaxResults},
		{name: "query wins over q", raw: `{"query": "a", "q": "b"}`, wantQuery: "a", wantTopK: MaxResults},
		{name: "numeric top_k", raw: `{"query": "x", "top_k": 2}`, wantQuery: "x", wantTopK: 2},
		{name: "string top_k", raw: `{"query": "x", "top_k": "2"}`, wantQuery: "x", wantTopK: 2},
		{name: "limit alias", raw: `{"query": "x", "limit": 1}`, wantQuery: "x", wantTopK: 1},
		{name: "float top_k truncates", raw: `{"query": "x", "top_k": 2.7}`, wantQuery: "x", wantTopK: 2},
		{name: "zero top_k falls back to limit", raw: `{"query": "x", "top_k": 0, "limit": 2}`, wantQuery: "x", wantTopK: 2},
		{name: "zero top_k uses default", raw: `{"query": "x", "top_k": 0}`, wantQuery: "x", wantTopK: MaxResults},
		{name: "invalid top_k", raw: `{"query": "x", "top_k": "many"}`, wantQuery: "x", wantTopK: 5},
		{name: "object top_k", raw: `{"query": "x", "top_k": {"n": 1}}`, wantQuery: "x", wantTopK: 5},
		{name: "numeric query", raw: `{"query": 42}`, wantQuery: "42", wantTopK: MaxResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &raw))

			query, topK, err := ParseRequest(raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantTopK, topK)
		})
	}
}

func TestHandleRequest_MissingQuery(t *testing.T) {
	out := HandleRequest(context.Background(), NewWebSearchService(&mockSearcher{}, newFetcher(), nil), map[string]any{})

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Missing query"}`, string(data))
}

func TestHandleRequest_WhitespaceQuery(t *testing.T) {
	searcher := &mockSearcher{}
	out := HandleRequest(context.Background(), NewWebSearchService(searcher, newFetcher(), nil), map[string]any{"query": "   "})

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Missing query"}`, string(data))
	assert.Zero(t, searcher.calls.Load())
}

func TestHandleRequest_Search(t *testing.T) {
	searcher := &mockSearcher{results: twoHits()}
	svc := NewWebSearchService(searcher, newFetcher(), &mockExtractor{})

	out := HandleRequest(context.Background(), svc, map[string]any{"query": "x", "top_k": "2"})

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[
		{"title":"One","url":"https://example.com/1","error":null,"facts":"facts"},
		{"title":"Two","url":"https://example.com/2","error":"fail"}
	]}`, string(data))
	assert.EqualValues(t, 2, searcher.lastLimit.Load())
}
