package embedder

import "github.com/brbranch/websearch_mcp/internal/model"

// NewEmbedder はEmbedderConfigからEmbedderを作成
func NewEmbedder(cfg *model.EmbedderConfig, dimUpdater DimUpdater) (Embedder, error) {
	switch cfg.Provider {
	case model.ProviderOllama:
		opts := []OllamaOption{}
		if cfg.BaseURL != nil && *cfg.BaseURL != "" {
			opts = append(opts, WithOllamaBaseURL(*cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithOllamaModel(cfg.Model))
		}
		if cfg.Dim > 0 {
			opts = append(opts, WithOllamaDim(cfg.Dim))
		}
		if dimUpdater != nil {
			opts = append(opts, WithOllamaDimUpdater(dimUpdater))
		}
		return NewOllamaEmbedder(opts...), nil

	case model.ProviderLocal, "":
		return NewLocalEmbedder(cfg.Dim), nil

	default:
		return nil, ErrUnknownProvider
	}
}
