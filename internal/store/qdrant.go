package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/brbranch/websearch_mcp/internal/config"
	xlog "github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/model"
)

// qdrantGRPCPort はQdrant gRPCのデフォルトポート（HTTPは6333）
const qdrantGRPCPort = 6334

// QdrantStore はQdrantを使用したStore実装（namespaceごとに1コレクション）
type QdrantStore struct {
	client      *qdrant.Client
	url         string
	namespace   string
	collection  string
	initialized bool
	mu          sync.RWMutex
}

// NewQdrantStore はQdrantStoreを作成し、接続を確認する
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	host, port, err := qdrantEndpoint(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   host,
		Port:                   port,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &QdrantStore{client: client, url: urlStr}, nil
}

// qdrantEndpoint はURLからgRPCのhost/portを求める
// HTTPポート(6333)が指定された場合はgRPCポートに読み替える
func qdrantEndpoint(urlStr string) (string, int, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("qdrant URL has no host: %q", urlStr)
	}

	port := qdrantGRPCPort
	if p, err := strconv.Atoi(parsed.Port()); err == nil && p != 6333 {
		port = p
	}
	return host, port, nil
}

// collectionName はQdrantで使用できないコロンを置換する
func collectionName(namespace string) string {
	return "memories_" + strings.ReplaceAll(namespace, ":", "_")
}

// Initialize はnamespace用コレクションを作成する
func (s *QdrantStore) Initialize(ctx context.Context, namespace string) error {
	if s.client == nil {
		return ErrConnectionFailed
	}

	_, _, dim, err := config.ParseNamespace(namespace)
	if err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("qdrant requires a positive vector dimension, got namespace %q", namespace)
	}

	name := collectionName(namespace)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger := xlog.WithComponent("store")
		logger.Info().Str("collection", name).Msg("created qdrant collection")
	}

	s.mu.Lock()
	s.namespace = namespace
	s.collection = name
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// Close はストアをクローズする
func (s *QdrantStore) Close() error {
	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) collectionIfReady() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection, s.initialized
}

// Add はメモリを追加する
func (s *QdrantStore) Add(ctx context.Context, memory *model.Memory, embedding []float32) error {
	collection, ok := s.collectionIfReady()
	if !ok {
		return ErrNotInitialized
	}

	if memory.CreatedAt == nil {
		now := nowRFC3339()
		memory.CreatedAt = &now
	}
	if memory.Tags == nil {
		memory.Tags = []string{}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDNum(hashID(memory.ID)),
				Vectors: qdrant.NewVectors(embedding...),
				Payload: buildPayload(memory),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Get はIDでメモリを取得する
func (s *QdrantStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	collection, ok := s.collectionIfReady()
	if !ok {
		return nil, ErrNotInitialized
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(hashID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get point: %w", err)
	}
	if len(points) == 0 {
		return nil, ErrNotFound
	}
	return payloadToMemory(points[0].Payload), nil
}

// Delete はメモリを削除する
func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	collection, ok := s.collectionIfReady()
	if !ok {
		return ErrNotInitialized
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(hashID(id))},
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if len(points) == 0 {
		return ErrNotFound
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDNum(hashID(id))),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	return nil
}

// Search はベクトル検索を実行する
func (s *QdrantStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]SearchResult, error) {
	collection, ok := s.collectionIfReady()
	if !ok {
		return nil, ErrNotInitialized
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         buildFilter(opts.Scope, opts.Kind, opts.Tags),
		Limit:          qdrant.PtrOf(uint64(opts.TopK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		// Qdrantのcosineスコアは-1〜1
		results = append(results, SearchResult{
			Memory: payloadToMemory(point.Payload),
			Score:  float64((point.Score + 1.0) / 2.0),
		})
	}
	return sortByScore(results, opts.TopK), nil
}

// ListRecent は最新のメモリをリストする
// Scrollは順序を保証しないため多めに取得してからソートする
func (s *QdrantStore) ListRecent(ctx context.Context, opts ListOptions) ([]*model.Memory, error) {
	collection, ok := s.collectionIfReady()
	if !ok {
		return nil, ErrNotInitialized
	}

	fetchLimit := opts.Limit * 10
	if fetchLimit < 1000 {
		fetchLimit = 1000
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         buildFilter(opts.Scope, opts.Kind, opts.Tags),
		Limit:          qdrant.PtrOf(uint32(fetchLimit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	memories := make([]*model.Memory, 0, len(points))
	for _, point := range points {
		memories = append(memories, payloadToMemory(point.Payload))
	}
	return sortByCreatedAt(memories, opts.Limit), nil
}

// hashID は文字列IDをQdrantの数値IDに変換する（SHA256の先頭8バイト）
func hashID(id string) uint64 {
	h := sha256.Sum256([]byte(id))
	return binary.BigEndian.Uint64(h[:8])
}

func buildFilter(scope string, kind *string, tags []string) *qdrant.Filter {
	conditions := []*qdrant.Condition{qdrant.NewMatch("scope", scope)}
	if kind != nil {
		conditions = append(conditions, qdrant.NewMatch("kind", *kind))
	}
	for _, tag := range tags {
		conditions = append(conditions, qdrant.NewMatch("tags", tag))
	}
	return &qdrant.Filter{Must: conditions}
}

func buildPayload(m *model.Memory) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value)
	payload["id"], _ = qdrant.NewValue(m.ID)
	payload["scope"], _ = qdrant.NewValue(m.Scope)
	payload["kind"], _ = qdrant.NewValue(m.Kind)
	payload["text"], _ = qdrant.NewValue(m.Text)
	if m.Source != nil {
		payload["source"], _ = qdrant.NewValue(*m.Source)
	}
	if m.CreatedAt != nil {
		payload["createdAt"], _ = qdrant.NewValue(*m.CreatedAt)
	}

	tagValues := make([]*qdrant.Value, len(m.Tags))
	for i, tag := range m.Tags {
		tagValues[i], _ = qdrant.NewValue(tag)
	}
	payload["tags"] = qdrant.NewValueList(&qdrant.ListValue{Values: tagValues})

	// metadataはJSON経由でプリミティブ型に揃えてから変換
	if m.Metadata != nil {
		if raw, err := json.Marshal(m.Metadata); err == nil {
			var metadata map[string]any
			if err := json.Unmarshal(raw, &metadata); err == nil {
				payload["metadata"], _ = qdrant.NewValue(metadata)
			}
		}
	}
	return payload
}

func payloadToMemory(payload map[string]*qdrant.Value) *model.Memory {
	m := &model.Memory{
		ID:    payload["id"].GetStringValue(),
		Scope: payload["scope"].GetStringValue(),
		Kind:  payload["kind"].GetStringValue(),
		Text:  payload["text"].GetStringValue(),
		Tags:  []string{},
	}
	if v := payload["source"].GetStringValue(); v != "" {
		m.Source = &v
	}
	if v := payload["createdAt"].GetStringValue(); v != "" {
		m.CreatedAt = &v
	}
	if list := payload["tags"].GetListValue(); list != nil {
		for _, item := range list.Values {
			if tag := item.GetStringValue(); tag != "" {
				m.Tags = append(m.Tags, tag)
			}
		}
	}
	if metadata, ok := convertQdrantValue(payload["metadata"]).(map[string]any); ok {
		m.Metadata = metadata
	}
	return m
}

// convertQdrantValue はqdrant.ValueをGoの値に戻す
func convertQdrantValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.GetStringValue()
	case *qdrant.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qdrant.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qdrant.Value_BoolValue:
		return v.GetBoolValue()
	case *qdrant.Value_StructValue:
		if sv := v.GetStructValue(); sv != nil {
			result := make(map[string]any, len(sv.Fields))
			for key, field := range sv.Fields {
				result[key] = convertQdrantValue(field)
			}
			return result
		}
	case *qdrant.Value_ListValue:
		if lv := v.GetListValue(); lv != nil {
			values := make([]any, 0, len(lv.Values))
			for _, item := range lv.Values {
				values = append(values, convertQdrantValue(item))
			}
			return values
		}
	}
	return nil
}
