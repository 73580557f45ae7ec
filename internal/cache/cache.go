// Package cache stores encoded web search responses with a TTL.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// エラー定義
var (
	ErrConnectionFailed = errors.New("cache connection failed")
)

// Cache はTTL付きのバイト列キャッシュ
// 取得・保存の失敗はミス扱いとし、呼び出し側には返さない
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory はプロセス内のCache実装
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// MemoryOption はMemoryのオプション
type MemoryOption func(*Memory)

// WithClock は現在時刻の取得関数を差し替える（テスト用）
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory は新しいMemoryを作成
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get は期限内の値のコピーを返す
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

// Set は値を保存し、期限切れのエントリを掃除する
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = entry{
		value:   append([]byte(nil), value...),
		expires: now.Add(ttl),
	}
}

// Len は保持しているエントリ数を返す
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close は何もしない
func (m *Memory) Close() error {
	return nil
}
