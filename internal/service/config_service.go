package service

import (
	"context"

	"github.com/brbranch/websearch_mcp/internal/config"
)

// configService はConfigServiceの実装
type configService struct {
	manager   *config.Manager
	namespace string
}

// NewConfigService はConfigServiceの新しいインスタンスを作成
// namespaceは起動時に確定した実効namespace
func NewConfigService(mgr *config.Manager, namespace string) ConfigService {
	return &configService{
		manager:   mgr,
		namespace: namespace,
	}
}

// GetConfig は現在の設定を取得する
func (s *configService) GetConfig(ctx context.Context) (*GetConfigResponse, error) {
	cfg := s.manager.GetConfig()

	return &GetConfigResponse{
		Namespace:  s.namespace,
		Search:     cfg.Search,
		Crawler:    cfg.Crawler,
		Summarizer: cfg.Summarizer,
		Embedder:   cfg.Embedder,
		Store:      cfg.Store,
		Paths:      cfg.Paths,
	}, nil
}
