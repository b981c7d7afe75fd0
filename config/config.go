package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant backend
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Search    SearchConfig    `mapstructure:"search"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen         string `mapstructure:"listen"`
	Debug          bool   `mapstructure:"debug"`
	APIKeyEnforced bool   `mapstructure:"api_key_enforced"`
	APIKey         string `mapstructure:"api_key"`
}

func (g GeneralConfig) Validate() error {
	if g.APIKeyEnforced && strings.TrimSpace(g.APIKey) == "" {
		return fmt.Errorf("general.api_key required when general.api_key_enforced is set")
	}
	return nil
}

// ProvidersConfig contains LLM provider configurations
type ProvidersConfig struct {
	Default string       `mapstructure:"default"` // openai, anthropic or gemini
	OpenAI  OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig contains OpenAI API settings
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	VisionModel     string        `mapstructure:"vision_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // serper or brave
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// VectorConfig contains vector index settings
type VectorConfig struct {
	Provider            string         `mapstructure:"provider"` // pinecone, memory or empty (disabled)
	SimilarityThreshold float64        `mapstructure:"similarity_threshold"`
	TopK                int            `mapstructure:"top_k"`
	Pinecone            PineconeConfig `mapstructure:"pinecone"`
}

func (v VectorConfig) Validate() error {
	switch v.Provider {
	case "", "memory":
	case "pinecone":
		if strings.TrimSpace(v.Pinecone.Host) == "" {
			return fmt.Errorf("vector.pinecone.host required when vector.provider is pinecone")
		}
		if strings.TrimSpace(v.Pinecone.APIKey) == "" {
			return fmt.Errorf("vector.pinecone.api_key required when vector.provider is pinecone")
		}
	default:
		return fmt.Errorf("unsupported vector.provider: %s", v.Provider)
	}
	if v.SimilarityThreshold <= 0 || v.SimilarityThreshold > 1 {
		return fmt.Errorf("vector.similarity_threshold must be in (0,1]")
	}
	if v.TopK <= 0 {
		return fmt.Errorf("vector.top_k must be > 0")
	}
	return nil
}

// PineconeConfig contains the remote vector database connection settings
type PineconeConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Host    string        `mapstructure:"host"` // index host, e.g. https://idx-xxxx.svc.pinecone.io
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// SessionsConfig contains session store and chat-turn settings
type SessionsConfig struct {
	Store       string        `mapstructure:"store"` // redis or inmemory
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
}

// IngestConfig contains document ingestion limits
type IngestConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	ChunkSize      int   `mapstructure:"chunk_size"`
	ChunkOverlap   int   `mapstructure:"chunk_overlap"`
}

func (i IngestConfig) Validate() error {
	if i.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest.max_upload_bytes must be > 0")
	}
	if i.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be > 0")
	}
	if i.ChunkOverlap < 0 || i.ChunkOverlap >= i.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size)")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.listen", ":8000")
	viper.SetDefault("providers.default", "openai")
	viper.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("providers.openai.vision_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.max_tokens", 4096)
	viper.SetDefault("providers.openai.timeout", 60*time.Second)
	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", 15*time.Second)
	viper.SetDefault("vector.provider", "memory")
	viper.SetDefault("vector.similarity_threshold", 0.75)
	viper.SetDefault("vector.top_k", 5)
	viper.SetDefault("vector.pinecone.timeout", 15*time.Second)
	viper.SetDefault("storage.redis.host", "localhost")
	viper.SetDefault("storage.redis.port", "6379")
	viper.SetDefault("sessions.store", "redis")
	viper.SetDefault("sessions.turn_timeout", 2*time.Minute)
	viper.SetDefault("ingest.max_upload_bytes", int64(10<<20))
	viper.SetDefault("ingest.chunk_size", 1000)
	viper.SetDefault("ingest.chunk_overlap", 200)

	if path == "" {
		viper.AddConfigPath("./config") // path to look for the config file in
		viper.AddConfigPath(".")        // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                      // bin/
		viper.AddConfigPath(filepath.Join(exeDir, "..")) // repo root
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("TEACHMATE")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (TEACHMATE_*)

	if err := viper.ReadInConfig(); err != nil {
		// running without a config file is fine (env + defaults)
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.General.Validate(); err != nil {
		panic(err)
	}
	if err := config.Vector.Validate(); err != nil {
		panic(err)
	}
	if err := config.Ingest.Validate(); err != nil {
		panic(err)
	}
	if config.Sessions.Store == "redis" {
		if err := config.Storage.Redis.Validate(); err != nil {
			panic(err)
		}
	}
	return &config
}
