package model

import "time"

// Config is the complete Covenant configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// StoreConfig selects and configures the record store backend
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // memory, file, badger, postgres
	Path        string `yaml:"path" mapstructure:"path"`     // File or directory for file/badger drivers
	DatabaseURL string `yaml:"database_url,omitempty" mapstructure:"database_url"`
	CacheSize   int    `yaml:"cache_size" mapstructure:"cache_size"` // LRU records kept in front of the store, 0 disables
}

// ScoringConfig holds the composition weights. They must sum to 1.
type ScoringConfig struct {
	SafetyWeight float64 `yaml:"safety_weight" mapstructure:"safety_weight"`
	ValueWeight  float64 `yaml:"value_weight" mapstructure:"value_weight"`
}

// LLMConfig configures the generative inference provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig configures the background-check search API
type SearchConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // tavily, "" disables background checks
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxResults        int     `yaml:"max_results" mapstructure:"max_results"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// FetchConfig configures downloading contracts by URL
type FetchConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Timeout       int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig configures caching of search results
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 20 << 20,
		},
		Store: StoreConfig{
			Driver:    "badger",
			Path:      "./covenant-data",
			CacheSize: 256,
		},
		Scoring: ScoringConfig{
			SafetyWeight: 0.6,
			ValueWeight:  0.4,
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Timeout:   120,
			MaxTokens: 4096,
		},
		Search: SearchConfig{
			Provider:          "tavily",
			MaxResults:        5,
			Timeout:           30,
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Fetch: FetchConfig{
			Enabled:       true,
			Timeout:       60,
			UserAgent:     "Covenant/0.1 (+https://github.com/ppiankov/covenant)",
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".covenant-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
