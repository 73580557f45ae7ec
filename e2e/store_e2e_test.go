//go:build e2e

package e2e

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brbranch/websearch_mcp/internal/jsonrpc"
	"github.com/brbranch/websearch_mcp/internal/store"
)

// runPersistentStoreFlow は永続ストアで保存→検索→一覧→削除を検証する
// 既存データと衝突しないようscopeは毎回生成する
func runPersistentStoreFlow(t *testing.T, h *jsonrpc.Handler) {
	t.Helper()
	scope := "e2e-" + uuid.NewString()

	var first, second struct {
		ID string `json:"id"`
	}
	callResult(t, h, "memory.store", map[string]any{
		"scope":    scope,
		"text":     "DuckDuckGo results are crawled concurrently",
		"tags":     []string{"search"},
		"metadata": map[string]any{"lang": "go", "priority": 2},
	}, &first)
	callResult(t, h, "memory.store", map[string]any{
		"scope": scope,
		"kind":  "decision",
		"text":  "Facts are extracted with a local Ollama model",
	}, &second)

	var found struct {
		Results []MemoryOutput `json:"results"`
	}
	callResult(t, h, "memory.find", map[string]any{"scope": scope, "query": "crawled concurrently"}, &found)
	require.Len(t, found.Results, 2)
	assert.Equal(t, first.ID, found.Results[0].ID)
	assert.Equal(t, "go", found.Results[0].Metadata["lang"])

	var recent struct {
		Items []MemoryOutput `json:"items"`
	}
	callResult(t, h, "memory.list_recent", map[string]any{"scope": scope, "tags": []string{"search"}}, &recent)
	require.Len(t, recent.Items, 1)
	assert.Equal(t, first.ID, recent.Items[0].ID)

	callResult(t, h, "memory.delete", map[string]any{"id": first.ID}, &map[string]any{})
	callResult(t, h, "memory.delete", map[string]any{"id": second.ID}, &map[string]any{})

	callResult(t, h, "memory.list_recent", map[string]any{"scope": scope}, &recent)
	assert.Empty(t, recent.Items)
}

func TestE2E_SQLiteStore(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	runPersistentStoreFlow(t, setupTestHandler(t, newUpstream(t), st))
}

// TestE2E_QdrantStore はQDRANT_URLが設定されている場合のみ実行する
func TestE2E_QdrantStore(t *testing.T) {
	qdrantURL := os.Getenv("QDRANT_URL")
	if qdrantURL == "" {
		t.Skip("QDRANT_URL is not set, skipping qdrant e2e test")
	}

	st, err := store.NewQdrantStore(qdrantURL)
	if errors.Is(err, store.ErrConnectionFailed) {
		t.Skip("Qdrant is not available, skipping test")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	runPersistentStoreFlow(t, setupTestHandler(t, newUpstream(t), st))
}
