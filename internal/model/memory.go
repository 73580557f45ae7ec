package model

import (
	"fmt"
	"regexp"
)

// DefaultMemoryKind はkind省略時に使用する種別
const DefaultMemoryKind = "note"

// Memory はエージェントが保存するメモリエントリを表す（内部データモデル）
type Memory struct {
	ID        string         `json:"id"`                 // UUID形式
	Scope     string         `json:"scope"`              // 保存単位（正規化済みパスまたは任意の識別子）
	Kind      string         `json:"kind"`               // 英数字、-、_のみ
	Text      string         `json:"text"`               // 必須
	Tags      []string       `json:"tags"`               // 空配列可
	Source    *string        `json:"source"`             // nullable（URLなど）
	CreatedAt *string        `json:"createdAt"`          // ISO8601 UTC形式、nullable
	Metadata  map[string]any `json:"metadata,omitempty"` // 省略可
}

var kindPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate はMemoryのバリデーションを実行する
func (m *Memory) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("ID must not be empty")
	}
	if m.Scope == "" {
		return fmt.Errorf("Scope must not be empty")
	}
	if err := ValidateKind(m.Kind); err != nil {
		return err
	}
	if m.Text == "" {
		return fmt.Errorf("Text must not be empty")
	}
	return nil
}

// ValidateKind はKindのバリデーションを実行する
func ValidateKind(kind string) error {
	if kind == "" {
		return fmt.Errorf("Kind must not be empty")
	}
	if !kindPattern.MatchString(kind) {
		return fmt.Errorf("Kind must match pattern ^[a-zA-Z0-9_-]+$, got %q", kind)
	}
	return nil
}
