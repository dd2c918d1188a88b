package cli

import (
	"os"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.database_url", d.Store.DatabaseURL)
	v.SetDefault("store.cache_size", d.Store.CacheSize)

	v.SetDefault("scoring.safety_weight", d.Scoring.SafetyWeight)
	v.SetDefault("scoring.value_weight", d.Scoring.ValueWeight)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("search.provider", d.Search.Provider)
	v.SetDefault("search.api_key", d.Search.APIKey)
	v.SetDefault("search.base_url", d.Search.BaseURL)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.requests_per_second", d.Search.RequestsPerSecond)
	v.SetDefault("search.burst", d.Search.Burst)
	v.SetDefault("search.http_proxy", d.Search.HTTPProxy)
	v.SetDefault("search.https_proxy", d.Search.HTTPSProxy)

	v.SetDefault("fetch.enabled", d.Fetch.Enabled)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.respect_robots", d.Fetch.RespectRobots)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

// loadConfig resolves the effective configuration from defaults, the config
// file, COVENANT_* variables and bound flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "decode configuration")
	}
	applyKeyFallbacks(cfg, os.Getenv)
	return cfg, nil
}

// applyKeyFallbacks fills empty API keys from the providers' conventional
// environment variables
func applyKeyFallbacks(cfg *model.Config, getenv func(string) string) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		case "gemini", "google":
			cfg.LLM.APIKey = getenv("GEMINI_API_KEY")
			if cfg.LLM.APIKey == "" {
				cfg.LLM.APIKey = getenv("GOOGLE_API_KEY")
			}
		}
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
	}
	if cfg.Search.APIKey == "" && cfg.Search.Provider == "tavily" {
		cfg.Search.APIKey = getenv("TAVILY_API_KEY")
	}
}
