package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brbranch/websearch_mcp/internal/config"
	"github.com/brbranch/websearch_mcp/internal/embedder"
	"github.com/brbranch/websearch_mcp/internal/metrics"
	"github.com/brbranch/websearch_mcp/internal/model"
	"github.com/brbranch/websearch_mcp/internal/store"
)

const (
	defaultFindTopK  = 5
	maxFindTopK      = 50
	defaultListLimit = 10
)

// memoryService はMemoryServiceの実装
type memoryService struct {
	embedder  embedder.Embedder
	store     store.Store
	namespace string
}

// NewMemoryService はMemoryServiceの新しいインスタンスを作成
func NewMemoryService(emb embedder.Embedder, s store.Store, namespace string) MemoryService {
	return &memoryService{
		embedder:  emb,
		store:     s,
		namespace: namespace,
	}
}

// normalizeScope は必須チェックとパス風scopeの正規化を行う
func normalizeScope(scope string) (string, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return "", ErrScopeRequired
	}
	return config.CanonicalizeScope(scope)
}

func validateKind(kind string) error {
	if err := model.ValidateKind(kind); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return nil
}

// Store はメモリを保存する
func (s *memoryService) Store(ctx context.Context, req *StoreRequest) (*StoreResponse, error) {
	scope, err := normalizeScope(req.Scope)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextRequired
	}
	kind := req.Kind
	if kind == "" {
		kind = model.DefaultMemoryKind
	}
	if err := validateKind(kind); err != nil {
		return nil, err
	}

	embedding, err := s.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)
	memory := &model.Memory{
		ID:        uuid.New().String(),
		Scope:     scope,
		Kind:      kind,
		Text:      req.Text,
		Tags:      tags,
		Source:    req.Source,
		CreatedAt: &createdAt,
		Metadata:  req.Metadata,
	}

	if err := s.store.Add(ctx, memory, embedding); err != nil {
		return nil, fmt.Errorf("failed to add memory to store: %w", err)
	}
	metrics.RecordMemoryOp("store")

	return &StoreResponse{
		ID:        memory.ID,
		Scope:     scope,
		Namespace: s.namespace,
	}, nil
}

// Find はqueryに類似するメモリを検索する
func (s *memoryService) Find(ctx context.Context, req *FindRequest) (*FindResponse, error) {
	scope, err := normalizeScope(req.Scope)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrQueryRequired
	}
	if req.Kind != nil {
		if err := validateKind(*req.Kind); err != nil {
			return nil, err
		}
	}
	topK := defaultFindTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 1 || topK > maxFindTopK {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	embedding, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	results, err := s.store.Search(ctx, embedding, store.SearchOptions{
		Scope: scope,
		Kind:  req.Kind,
		TopK:  topK,
		Tags:  req.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.RecordMemoryOp("find")

	found := make([]FoundMemory, 0, len(results))
	for _, r := range results {
		found = append(found, FoundMemory{MemoryItem: toMemoryItem(r.Memory), Score: r.Score})
	}
	return &FindResponse{Namespace: s.namespace, Results: found}, nil
}

// Get は指定されたIDのメモリを取得する
func (s *memoryService) Get(ctx context.Context, id string) (*MemoryItem, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	memory, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	metrics.RecordMemoryOp("get")

	item := toMemoryItem(memory)
	return &item, nil
}

// Delete は指定されたIDのメモリを削除する
func (s *memoryService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemoryNotFound
		}
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	metrics.RecordMemoryOp("delete")
	return nil
}

// ListRecent はscope内の最近のメモリを取得する
func (s *memoryService) ListRecent(ctx context.Context, req *ListRecentRequest) (*ListRecentResponse, error) {
	scope, err := normalizeScope(req.Scope)
	if err != nil {
		return nil, err
	}
	if req.Kind != nil {
		if err := validateKind(*req.Kind); err != nil {
			return nil, err
		}
	}
	limit := defaultListLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	memories, err := s.store.ListRecent(ctx, store.ListOptions{
		Scope: scope,
		Kind:  req.Kind,
		Limit: limit,
		Tags:  req.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memories: %w", err)
	}
	metrics.RecordMemoryOp("list_recent")

	items := make([]MemoryItem, 0, len(memories))
	for _, m := range memories {
		items = append(items, toMemoryItem(m))
	}
	return &ListRecentResponse{Namespace: s.namespace, Items: items}, nil
}
