package store

import (
	"math"
	"sort"
	"time"

	"github.com/brbranch/websearch_mcp/internal/model"
)

// CosineDistance はコサイン距離を返す（0=同一、2=正反対）
// 次元不一致・ゼロベクトルは2.0
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// DistanceToScore はコサイン距離を0-1のスコアに変換する
func DistanceToScore(distance float64) float64 {
	return 1.0 - distance/2.0
}

// ContainsAllTags はtargets内の全てのタグがtagsに含まれているかをチェックする（AND検索）
func ContainsAllTags(tags []string, targets []string) bool {
	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[tag] = struct{}{}
	}
	for _, target := range targets {
		if _, ok := tagSet[target]; !ok {
			return false
		}
	}
	return true
}

// matches はscope/kind/tagsフィルタに一致するかを返す
func matches(m *model.Memory, scope string, kind *string, tags []string) bool {
	if m.Scope != scope {
		return false
	}
	if kind != nil && m.Kind != *kind {
		return false
	}
	return len(tags) == 0 || ContainsAllTags(m.Tags, tags)
}

// sortByScore はスコア降順でソートしtopK件に切り詰める
func sortByScore(results []SearchResult, topK int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// sortByCreatedAt はcreatedAt降順でソートしlimit件に切り詰める
// パースできないcreatedAtは末尾
func sortByCreatedAt(memories []*model.Memory, limit int) []*model.Memory {
	ts := make(map[*model.Memory]time.Time, len(memories))
	for _, m := range memories {
		if m.CreatedAt == nil {
			continue
		}
		if t, err := time.Parse(time.RFC3339, *m.CreatedAt); err == nil {
			ts[m] = t
		}
	}
	sort.SliceStable(memories, func(i, j int) bool {
		return ts[memories[i]].After(ts[memories[j]])
	})
	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	return memories
}

// copyMemory はMemoryのディープコピーを返す
func copyMemory(m *model.Memory) *model.Memory {
	c := *m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.Source != nil {
		s := *m.Source
		c.Source = &s
	}
	if m.CreatedAt != nil {
		s := *m.CreatedAt
		c.CreatedAt = &s
	}
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
