package store

import (
	"context"
	"sync"

	"github.com/brbranch/websearch_mcp/internal/model"
)

// MemoryStore はプロセス内のStore実装（再起動で消える）
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]*memoryEntry // key: memory.ID
	namespace   string
	initialized bool
}

type memoryEntry struct {
	memory    *model.Memory
	embedding []float32
}

// NewMemoryStore はMemoryStoreを作成する
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

// Initialize はストアを初期化する
func (s *MemoryStore) Initialize(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.namespace = namespace
	s.initialized = true
	return nil
}

// Close はストアをクローズする
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*memoryEntry)
	s.initialized = false
	return nil
}

// Add はメモリを追加する（同一IDは上書き）
func (s *MemoryStore) Add(ctx context.Context, memory *model.Memory, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	if memory.CreatedAt == nil {
		now := nowRFC3339()
		memory.CreatedAt = &now
	}
	if memory.Tags == nil {
		memory.Tags = []string{}
	}

	s.entries[memory.ID] = &memoryEntry{
		memory:    copyMemory(memory),
		embedding: append([]float32(nil), embedding...),
	}
	return nil
}

// Get はIDでメモリを取得する
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMemory(entry.memory), nil
}

// Delete はメモリを削除する
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Search はベクトル検索を実行する（全件スキャン）
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	results := []SearchResult{}
	for _, entry := range s.entries {
		if !matches(entry.memory, opts.Scope, opts.Kind, opts.Tags) {
			continue
		}
		results = append(results, SearchResult{
			Memory: copyMemory(entry.memory),
			Score:  DistanceToScore(CosineDistance(embedding, entry.embedding)),
		})
	}
	return sortByScore(results, opts.TopK), nil
}

// ListRecent は最新のメモリをリストする
func (s *MemoryStore) ListRecent(ctx context.Context, opts ListOptions) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	memories := []*model.Memory{}
	for _, entry := range s.entries {
		if matches(entry.memory, opts.Scope, opts.Kind, opts.Tags) {
			memories = append(memories, copyMemory(entry.memory))
		}
	}
	return sortByCreatedAt(memories, opts.Limit), nil
}
