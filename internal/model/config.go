package model

// Config はサーバー全体の設定を表す
type Config struct {
	TransportDefaults TransportDefaults `json:"transportDefaults"`
	Search            SearchConfig      `json:"search"`
	Crawler           CrawlerConfig     `json:"crawler"`
	Summarizer        SummarizerConfig  `json:"summarizer"`
	Embedder          EmbedderConfig    `json:"embedder"`
	Store             StoreConfig       `json:"store"`
	HTTP              HTTPConfig        `json:"http"`
	Log               LogConfig         `json:"log"`
	Paths             PathsConfig       `json:"paths"`
}

// TransportDefaults はtransportのデフォルト設定
type TransportDefaults struct {
	DefaultTransport string `json:"defaultTransport"` // "stdio" | "http"
}

// SearchConfig はDuckDuckGo検索の設定
type SearchConfig struct {
	Endpoint        string  `json:"endpoint"`           // DuckDuckGo HTMLエンドポイント
	TimeoutSeconds  int     `json:"timeoutSeconds"`     // 検索リクエストのタイムアウト
	RatePerSecond   float64 `json:"ratePerSecond"`      // 0以下は無制限
	RateBurst       int     `json:"rateBurst"`          // バースト数
	CacheTTLSeconds int     `json:"cacheTtlSeconds"`    // 0はキャッシュ無効
	CacheBackend    string  `json:"cacheBackend"`       // "memory" | "redis"
	RedisURL        string  `json:"redisUrl,omitempty"` // redis://host:port/db
}

// CrawlerConfig はページ取得の設定
type CrawlerConfig struct {
	Concurrency    int   `json:"concurrency"`    // 同時取得数
	TimeoutSeconds int   `json:"timeoutSeconds"` // 1ページあたりのタイムアウト
	MaxBodyBytes   int64 `json:"maxBodyBytes"`   // 読み込むボディの上限
}

// SummarizerConfig はOllamaによる要点抽出の設定
type SummarizerConfig struct {
	Enabled        bool   `json:"enabled"`
	URL            string `json:"url"`            // generateエンドポイント（例: http://localhost:11434/api/generate）
	Model          string `json:"model"`          // モデル名
	TimeoutSeconds int    `json:"timeoutSeconds"` // 1回の生成のタイムアウト
	MaxChars       int    `json:"maxChars"`       // プロンプトに含める本文の最大文字数
}

// EmbedderConfig はメモリ検索用embedder設定
type EmbedderConfig struct {
	Provider string  `json:"provider"`          // "local" | "ollama"
	Model    string  `json:"model"`             // モデル名
	Dim      int     `json:"dim"`               // ベクトル次元（0は未設定）
	BaseURL  *string `json:"baseUrl,omitempty"` // nullable、省略可
}

// StoreConfig はメモリストア設定
type StoreConfig struct {
	Type string  `json:"type"`           // "memory" | "sqlite" | "qdrant"
	Path *string `json:"path,omitempty"` // nullable（SQLite用）
	URL  *string `json:"url,omitempty"`  // nullable（Qdrant用）
}

// HTTPConfig はHTTP transportの設定
type HTTPConfig struct {
	CORSOrigins       []string `json:"corsOrigins,omitempty"`
	RequestsPerMinute int      `json:"requestsPerMinute"` // 0以下は制限なし
}

// LogConfig はログ設定
type LogConfig struct {
	Level     string `json:"level"`               // "debug" | "info" | "warn" | "error"
	File      string `json:"file,omitempty"`      // 空ならstderr
	MaxSizeMB int    `json:"maxSizeMb,omitempty"` // ローテーションするサイズ
}

// PathsConfig はファイルパス設定
type PathsConfig struct {
	ConfigPath string `json:"configPath"` // 設定ファイルパス
	DataDir    string `json:"dataDir"`    // データディレクトリ
}

// Transport定数
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Embedder Provider定数
const (
	ProviderLocal  = "local"
	ProviderOllama = "ollama"
)

// Store Type定数
const (
	StoreTypeMemory = "memory"
	StoreTypeSQLite = "sqlite"
	StoreTypeQdrant = "qdrant"
)

// Cache Backend定数
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)
