package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brbranch/websearch_mcp/internal/model"
)

const testNamespace = "local:hash:4"

func strPtr(s string) *string { return &s }

func newMemory(id, scope, kind, text, createdAt string, tags ...string) *model.Memory {
	if tags == nil {
		tags = []string{}
	}
	return &model.Memory{
		ID:        id,
		Scope:     scope,
		Kind:      kind,
		Text:      text,
		Tags:      tags,
		CreatedAt: strPtr(createdAt),
	}
}

// storeFactories は全バックエンド共通のテスト対象
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			t.Cleanup(func() { _ = s.Close() })
			require.NoError(t, s.Initialize(context.Background(), testNamespace))
			fn(t, s)
		})
	}
}

func TestStore_NotInitialized(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			defer s.Close()
			ctx := context.Background()

			err := s.Add(ctx, newMemory("a", "s", "note", "x", "2024-01-01T00:00:00Z"), []float32{1, 0, 0, 0})
			assert.ErrorIs(t, err, ErrNotInitialized)
			_, err = s.Get(ctx, "a")
			assert.ErrorIs(t, err, ErrNotInitialized)
			_, err = s.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{Scope: "s", TopK: 5})
			assert.ErrorIs(t, err, ErrNotInitialized)
		})
	}
}

func TestStore_AddGetDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		m := newMemory("id-1", "/repo", "decision", "use sqlite", "2024-01-01T00:00:00Z", "db", "arch")
		m.Source = strPtr("https://example.com")
		m.Metadata = map[string]any{"author": "me"}

		require.NoError(t, s.Add(ctx, m, []float32{1, 0, 0, 0}))

		got, err := s.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "/repo", got.Scope)
		assert.Equal(t, "decision", got.Kind)
		assert.Equal(t, "use sqlite", got.Text)
		assert.Equal(t, []string{"db", "arch"}, got.Tags)
		require.NotNil(t, got.Source)
		assert.Equal(t, "https://example.com", *got.Source)
		assert.Equal(t, "me", got.Metadata["author"])

		require.NoError(t, s.Delete(ctx, "id-1"))
		_, err = s.Get(ctx, "id-1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "id-1"), ErrNotFound)
	})
}

func TestStore_AddSetsCreatedAt(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		m := &model.Memory{ID: "id-1", Scope: "s", Kind: "note", Text: "x"}
		require.NoError(t, s.Add(ctx, m, []float32{1, 0, 0, 0}))
		require.NotNil(t, m.CreatedAt)

		got, err := s.Get(ctx, "id-1")
		require.NoError(t, err)
		require.NotNil(t, got.CreatedAt)
		assert.Equal(t, *m.CreatedAt, *got.CreatedAt)
	})
}

func TestStore_Search(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Add(ctx, newMemory("near", "s", "note", "a", "2024-01-01T00:00:00Z", "go"), []float32{1, 0, 0, 0}))
		require.NoError(t, s.Add(ctx, newMemory("mid", "s", "fact", "b", "2024-01-02T00:00:00Z", "go", "web"), []float32{1, 1, 0, 0}))
		require.NoError(t, s.Add(ctx, newMemory("far", "s", "note", "c", "2024-01-03T00:00:00Z"), []float32{-1, 0, 0, 0}))
		require.NoError(t, s.Add(ctx, newMemory("other", "t", "note", "d", "2024-01-04T00:00:00Z"), []float32{1, 0, 0, 0}))

		results, err := s.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{Scope: "s", TopK: 5})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "near", results[0].Memory.ID)
		assert.Equal(t, "mid", results[1].Memory.ID)
		assert.Equal(t, "far", results[2].Memory.ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.InDelta(t, 0.0, results[2].Score, 1e-6)

		results, err = s.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{Scope: "s", TopK: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "near", results[0].Memory.ID)

		results, err = s.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{Scope: "s", Kind: strPtr("fact"), TopK: 5})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "mid", results[0].Memory.ID)

		results, err = s.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{Scope: "s", Tags: []string{"go", "web"}, TopK: 5})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "mid", results[0].Memory.ID)
	})
}

func TestStore_ListRecent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Add(ctx, newMemory("old", "s", "note", "a", "2024-01-01T00:00:00Z", "x"), []float32{1, 0, 0, 0}))
		require.NoError(t, s.Add(ctx, newMemory("new", "s", "fact", "b", "2024-03-01T00:00:00Z"), []float32{1, 0, 0, 0}))
		require.NoError(t, s.Add(ctx, newMemory("mid", "s", "note", "c", "2024-02-01T00:00:00Z", "x"), []float32{1, 0, 0, 0}))
		require.NoError(t, s.Add(ctx, newMemory("elsewhere", "t", "note", "d", "2024-04-01T00:00:00Z"), []float32{1, 0, 0, 0}))

		memories, err := s.ListRecent(ctx, ListOptions{Scope: "s", Limit: 10})
		require.NoError(t, err)
		require.Len(t, memories, 3)
		assert.Equal(t, "new", memories[0].ID)
		assert.Equal(t, "mid", memories[1].ID)
		assert.Equal(t, "old", memories[2].ID)

		memories, err = s.ListRecent(ctx, ListOptions{Scope: "s", Limit: 2})
		require.NoError(t, err)
		require.Len(t, memories, 2)
		assert.Equal(t, "new", memories[0].ID)

		memories, err = s.ListRecent(ctx, ListOptions{Scope: "s", Kind: strPtr("note"), Tags: []string{"x"}, Limit: 10})
		require.NoError(t, err)
		require.Len(t, memories, 2)
		assert.Equal(t, "mid", memories[0].ID)
		assert.Equal(t, "old", memories[1].ID)
	})
}

func TestSQLiteStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Initialize(ctx, "local:hash:4"))
	require.NoError(t, first.Add(ctx, newMemory("id-1", "s", "note", "a", "2024-01-01T00:00:00Z"), []float32{1, 0, 0, 0}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Initialize(ctx, "ollama:nomic-embed-text:768"))

	_, err = second.Get(ctx, "id-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, second.Initialize(ctx, "local:hash:4"))
	got, err := second.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Text)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Initialize(ctx, testNamespace))

	m := newMemory("id-1", "s", "note", "a", "2024-01-01T00:00:00Z", "x")
	require.NoError(t, s.Add(ctx, m, []float32{1, 0, 0, 0}))
	m.Tags[0] = "mutated"

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Tags)

	got.Text = "changed"
	again, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Text)
}
