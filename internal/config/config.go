// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	Providers []ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Jina      JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Qdrant    QdrantConfig     `yaml:"qdrant" mapstructure:"qdrant"`
	Scrape    ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Pipeline  PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ProviderConfig describes one LLM completion backend in the pool. Kind is
// "openai" for OpenAI-compatible endpoints (Groq, Cerebras) or "anthropic"
// for the Anthropic Messages API. Pool order follows list order.
type ProviderConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Kind    string `yaml:"kind" mapstructure:"kind"`
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI reader/embeddings settings.
type JinaConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	EmbedBaseURL string `yaml:"embed_base_url" mapstructure:"embed_base_url"`
	EmbedModel   string `yaml:"embed_model" mapstructure:"embed_model"`
}

// QdrantConfig holds vector index settings.
type QdrantConfig struct {
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	Key        string `yaml:"key" mapstructure:"key"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// ScrapeConfig configures the fetch stage.
type ScrapeConfig struct {
	ListingURL     string  `yaml:"listing_url" mapstructure:"listing_url"`
	Source         string  `yaml:"source" mapstructure:"source"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ArticlesPerSec float64 `yaml:"articles_per_sec" mapstructure:"articles_per_sec"`
}

// PipelineConfig configures extraction, translation, and indexing behavior.
type PipelineConfig struct {
	DocsDir         string `yaml:"docs_dir" mapstructure:"docs_dir"`
	SourceLanguage  string `yaml:"source_language" mapstructure:"source_language"`
	PaceMinSecs     int    `yaml:"pace_min_secs" mapstructure:"pace_min_secs"`
	PaceMaxSecs     int    `yaml:"pace_max_secs" mapstructure:"pace_max_secs"`
	EmbedBatchSize  int    `yaml:"embed_batch_size" mapstructure:"embed_batch_size"`
	UpsertBatchSize int    `yaml:"upsert_batch_size" mapstructure:"upsert_batch_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FURSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.embed_base_url", "https://api.jina.ai")
	v.SetDefault("jina.embed_model", "jina-embeddings-v3")
	v.SetDefault("qdrant.collection", "opportunities_v1")
	v.SetDefault("scrape.listing_url", "https://opportunitiescorners.com/")
	v.SetDefault("scrape.source", "opportunitiescorners")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.articles_per_sec", 1.0)
	v.SetDefault("pipeline.docs_dir", "opportunities_markdown")
	v.SetDefault("pipeline.source_language", "en")
	v.SetDefault("pipeline.pace_min_secs", 10)
	v.SetDefault("pipeline.pace_max_secs", 20)
	v.SetDefault("pipeline.embed_batch_size", 100)
	v.SetDefault("pipeline.upsert_batch_size", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
