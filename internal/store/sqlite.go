package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	xlog "github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/model"
)

// memoryCountWarningThreshold を超えると全件スキャンの検索が遅くなるため警告する
const memoryCountWarningThreshold = 5000

// SQLiteStore はSQLiteを使用したStore実装
// ベクトル検索はnamespace+scope内の全件スキャン
type SQLiteStore struct {
	mu          sync.RWMutex
	db          *sql.DB
	dbPath      string
	namespace   string
	initialized bool
}

// NewSQLiteStore はSQLiteStoreを作成する
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Initialize はテーブルを作成する
func (s *SQLiteStore) Initialize(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		scope TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		tags TEXT,
		source TEXT,
		created_at TEXT,
		metadata TEXT,
		embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(namespace, scope);
	CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(namespace, scope, kind);
	CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(namespace, created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create memories table: %w", err)
	}

	s.namespace = namespace
	s.initialized = true
	return nil
}

// Close はストアをクローズする
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add はメモリを追加する（同一IDは上書き）
func (s *SQLiteStore) Add(ctx context.Context, memory *model.Memory, embedding []float32) error {
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

	tagsJSON, err := json.Marshal(memory.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	var metadataJSON []byte
	if memory.Metadata != nil {
		metadataJSON, err = json.Marshal(memory.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories (id, namespace, scope, kind, text, tags, source, created_at, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, memory.ID, s.namespace, memory.Scope, memory.Kind, memory.Text,
		string(tagsJSON), memory.Source, memory.CreatedAt, nullableString(metadataJSON), encodeEmbedding(embedding))
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	if count, err := s.count(ctx); err == nil && count >= memoryCountWarningThreshold {
		logger := xlog.WithComponent("store")
		logger.Warn().
			Int("count", count).
			Int("threshold", memoryCountWarningThreshold).
			Msg("memory count exceeded threshold, consider the qdrant store")
	}
	return nil
}

// Get はIDでメモリを取得する
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope, kind, text, tags, source, created_at, metadata, embedding
		FROM memories
		WHERE id = ? AND namespace = ?
	`, id, s.namespace)

	memory, _, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return memory, nil
}

// Delete はメモリを削除する
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND namespace = ?`, id, s.namespace)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search はベクトル検索を実行する
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	rows, err := s.queryScope(ctx, opts.Scope, opts.Kind, "")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		memory, vec, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(opts.Tags) > 0 && !ContainsAllTags(memory.Tags, opts.Tags) {
			continue
		}
		results = append(results, SearchResult{
			Memory: memory,
			Score:  DistanceToScore(CosineDistance(embedding, vec)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return sortByScore(results, opts.TopK), nil
}

// ListRecent は最新のメモリをリストする
func (s *SQLiteStore) ListRecent(ctx context.Context, opts ListOptions) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	rows, err := s.queryScope(ctx, opts.Scope, opts.Kind, " ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []*model.Memory{}
	for rows.Next() {
		memory, _, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(opts.Tags) > 0 && !ContainsAllTags(memory.Tags, opts.Tags) {
			continue
		}
		memories = append(memories, memory)
		if opts.Limit > 0 && len(memories) >= opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return memories, nil
}

func (s *SQLiteStore) queryScope(ctx context.Context, scope string, kind *string, suffix string) (*sql.Rows, error) {
	var query strings.Builder
	query.WriteString(`
		SELECT id, scope, kind, text, tags, source, created_at, metadata, embedding
		FROM memories
		WHERE namespace = ? AND scope = ?`)
	args := []any{s.namespace, scope}
	if kind != nil {
		query.WriteString(" AND kind = ?")
		args = append(args, *kind)
	}
	query.WriteString(suffix)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	return rows, nil
}

func (s *SQLiteStore) count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE namespace = ?`, s.namespace).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*model.Memory, []float32, error) {
	var (
		m                      model.Memory
		source, createdAt      sql.NullString
		tagsJSON, metadataJSON sql.NullString
		embeddingBlob          []byte
	)
	if err := row.Scan(&m.ID, &m.Scope, &m.Kind, &m.Text, &tagsJSON, &source, &createdAt, &metadataJSON, &embeddingBlob); err != nil {
		return nil, nil, err
	}

	if source.Valid {
		m.Source = &source.String
	}
	if createdAt.Valid {
		m.CreatedAt = &createdAt.String
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &m.Metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &m, decodeEmbedding(embeddingBlob), nil
}

func nullableString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

// encodeEmbedding はfloat32スライスをリトルエンディアンのBLOBにする
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(data []byte) []float32 {
	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return embedding
}
