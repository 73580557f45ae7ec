package config

import (
	"fmt"
	"strconv"
	"strings"
)

// GenerateNamespace はembedder設定からnamespaceを生成する
// 形式: "{provider}:{model}:{dim}"
func GenerateNamespace(provider, model string, dim int) string {
	return fmt.Sprintf("%s:%s:%d", provider, model, dim)
}

// ParseNamespace はnamespaceをprovider, model, dimに分解する
// modelに":"を含む場合（例: "nomic-embed-text:v1.5"）に備えて末尾をdimとして扱う
func ParseNamespace(namespace string) (provider, model string, dim int, err error) {
	first := strings.Index(namespace, ":")
	last := strings.LastIndex(namespace, ":")
	if first < 0 || first == last {
		return "", "", 0, fmt.Errorf("invalid namespace format: expected 'provider:model:dim', got %q", namespace)
	}

	provider = namespace[:first]
	model = namespace[first+1 : last]

	dim, err = strconv.Atoi(namespace[last+1:])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid dim in namespace %q: %w", namespace, err)
	}
	if dim < 0 {
		return "", "", 0, fmt.Errorf("invalid dim in namespace %q: dim must be non-negative, got %d", namespace, dim)
	}

	return provider, model, dim, nil
}
