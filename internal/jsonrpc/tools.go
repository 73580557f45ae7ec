package jsonrpc

import "github.com/brbranch/websearch_mcp/internal/model"

func intPtr(n int) *int { return &n }

// toolNameToMethod はMCPツール名から内部メソッド名への対応
var toolNameToMethod = map[string]string{
	"search_web":         "web.search",
	"memory_store":       "memory.store",
	"memory_find":        "memory.find",
	"memory_delete":      "memory.delete",
	"memory_list_recent": "memory.list_recent",
}

var (
	scopeProp = model.JSONSchema{
		Type:        "string",
		Description: "Where the memory belongs: a project path (~ and relative paths are canonicalized) or a free-form topic such as \"terminal\"",
	}
	kindProp = model.JSONSchema{
		Type:        "string",
		Description: "Memory category made of letters, digits, - and _ (e.g. note, preference, decision)",
	}
	tagsProp = model.JSONSchema{
		Type:        "array",
		Items:       &model.JSONSchema{Type: "string"},
		Description: "Tags; filters match memories carrying all given tags",
	}
)

// mcpTools はtools/listで公開するツール定義
var mcpTools = []model.Tool{
	{
		Name:        "search_web",
		Description: "Search the web with DuckDuckGo, crawl the top pages and extract facts relevant to the query with a local Ollama model.",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"query": {Type: "string", Description: "Search query"},
				"top_k": {
					Type:        "integer",
					Description: "Number of results to crawl",
					Minimum:     intPtr(1),
					Maximum:     intPtr(3),
					Default:     3,
				},
			},
			Required: []string{"query"},
		},
	},
	{
		Name:        "memory_store",
		Description: "Store a durable memory (fact, preference, decision) for later recall.",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"scope":    scopeProp,
				"text":     {Type: "string", Description: "Memory text"},
				"kind":     kindProp,
				"tags":     tagsProp,
				"source":   {Type: "string", Description: "Optional origin of the memory such as a URL"},
				"metadata": {Type: "object", Description: "Optional free-form metadata"},
			},
			Required: []string{"scope", "text"},
		},
	},
	{
		Name:        "memory_find",
		Description: "Find stored memories similar to a query within a scope.",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"scope": scopeProp,
				"query": {Type: "string", Description: "What to look for"},
				"kind":  kindProp,
				"tags":  tagsProp,
				"topK": {
					Type:        "integer",
					Description: "Maximum number of results",
					Minimum:     intPtr(1),
					Maximum:     intPtr(50),
					Default:     5,
				},
			},
			Required: []string{"scope", "query"},
		},
	},
	{
		Name:        "memory_delete",
		Description: "Delete a stored memory by id.",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"id": {Type: "string", Description: "Memory id returned by memory_store or memory_find"},
			},
			Required: []string{"id"},
		},
	},
	{
		Name:        "memory_list_recent",
		Description: "List the most recently stored memories in a scope.",
		InputSchema: model.JSONSchema{
			Type: "object",
			Properties: map[string]model.JSONSchema{
				"scope": scopeProp,
				"kind":  kindProp,
				"tags":  tagsProp,
				"limit": {
					Type:        "integer",
					Description: "Maximum number of memories",
					Minimum:     intPtr(1),
					Default:     10,
				},
			},
			Required: []string{"scope"},
		},
	},
}
