package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// fallbackTopK はtop_kが数値として解釈できない場合の値
	fallbackTopK = 5
)

// ErrMissingQuery はワンショットリクエストにqueryが無い場合のエラー
var ErrMissingQuery = errors.New("Missing query")

// ParseRequest はワンショットのJSONリクエストからqueryとtopKを取り出す
// query: "query" または "q"（空値・空白のみはなし扱い）
// topK: "top_k" または "limit"、なければMaxResults、数値化できなければ5
func ParseRequest(raw map[string]any) (string, int, error) {
	q := firstQuery(raw)
	if q == nil {
		return "", 0, ErrMissingQuery
	}
	query, ok := q.(string)
	if !ok {
		query = fmt.Sprint(q)
	}

	v := firstPresent(raw, "top_k", "limit")
	if v == nil {
		return query, MaxResults, nil
	}
	topK, ok := toInt(v)
	if !ok {
		topK = fallbackTopK
	}
	return query, topK, nil
}

// HandleRequest はワンショットリクエストを処理し、出力するJSON値を返す
func HandleRequest(ctx context.Context, svc WebSearchService, raw map[string]any) any {
	query, topK, err := ParseRequest(raw)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	resp, err := svc.Search(ctx, query, topK)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return resp
}

// firstPresent は最初に見つかった空でない値を返す
func firstPresent(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && !isEmptyValue(v) {
			return v
		}
	}
	return nil
}

// firstQuery はfirstPresentと同様だが、空白のみの文字列も無いものとして扱う
func firstQuery(raw map[string]any) any {
	for _, key := range []string{"query", "q"} {
		v, ok := raw[key]
		if !ok || isEmptyValue(v) {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return n, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
