package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "cricketbot.yaml"

// Config holds all configuration for the chatbot service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CorpusConfig describes where the documents come from.
type CorpusConfig struct {
	Query        string   `yaml:"query"`
	MaxDocs      int      `yaml:"max_docs"`
	MaxDocChars  int      `yaml:"max_doc_chars"`
	WikipediaURL string   `yaml:"wikipedia_url"`
	LocalDir     string   `yaml:"local_dir"` // Optional directory of .txt/.md/.pdf files
	Include      []string `yaml:"include"`   // doublestar patterns relative to LocalDir
	Watch        bool     `yaml:"watch"`     // Re-index LocalDir on file changes
}

// ChunkingConfig holds the chunk window sizes, in bytes.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "cohere", "openai", "ollama"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig selects the hosted chat model.
type LLMConfig struct {
	Provider          string        `yaml:"provider"` // "nvidia", "openai", "gemini"
	Model             string        `yaml:"model"`
	QueryModel        string        `yaml:"query_model"` // Used for structured query construction
	APIKeyEnv         string        `yaml:"api_key_env"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables pacing
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // "memory", "chroma"
	ChromaURL     string `yaml:"chroma_url"`
	Collection    string `yaml:"collection"`
	ReuseExisting bool   `yaml:"reuse_existing"`
}

// IndexConfig controls the index build.
type IndexConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// RetrievalConfig controls the self-querying retriever.
type RetrievalConfig struct {
	TopK               int    `yaml:"top_k"`
	ContextDocs        int    `yaml:"context_docs"`
	ContentDescription string `yaml:"content_description"`
}

// MemoryConfig controls conversation memory.
type MemoryConfig struct {
	Window      int    `yaml:"window"`
	Backend     string `yaml:"backend"` // "memory", "bolt"
	Path        string `yaml:"path"`
	MaxSessions int    `yaml:"max_sessions"` // Least recently used sessions beyond this are evicted
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
		},
		Corpus: CorpusConfig{
			Query:        "Cricket and everything related to cricket",
			MaxDocs:      10,
			MaxDocChars:  4000,
			WikipediaURL: "https://en.wikipedia.org/w/api.php",
			Include:      []string{"**/*.md", "**/*.txt", "**/*.pdf"},
		},
		Chunking: ChunkingConfig{
			Size:    800,
			Overlap: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:  "cohere",
			Model:     "embed-english-v3.0",
			APIKeyEnv: "COHERE_API_KEY",
			BatchSize: 96,
		},
		LLM: LLMConfig{
			Provider:          "nvidia",
			Model:             "mistralai/mixtral-8x22b-instruct-v0.1",
			QueryModel:        "mistralai/mistral-7b-instruct-v0.2",
			APIKeyEnv:         "NVIDIA_API_KEY",
			BaseURL:           "https://integrate.api.nvidia.com/v1",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RetryBackoff:      time.Second,
			RequestsPerSecond: 2,
		},
		Store: StoreConfig{
			Backend:    "memory",
			ChromaURL:  "http://localhost:8001",
			Collection: "cricket-wikipedia",
		},
		Index: IndexConfig{
			MaxRetries:   3,
			RetryBackoff: 2 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:               4,
			ContextDocs:        2,
			ContentDescription: "Data about cricket",
		},
		Memory: MemoryConfig{
			Window:      5,
			Backend:     "memory",
			Path:        "sessions.db",
			MaxSessions: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the .env file (if any) and then the YAML config at path. A
// missing config file yields the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, relying on environment variables.")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunking.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size))
	}
	if c.Chunking.Overlap < 0 {
		errs = append(errs, fmt.Errorf("chunking.overlap must not be negative, got %d", c.Chunking.Overlap))
	}
	if c.Memory.Window <= 0 {
		errs = append(errs, fmt.Errorf("memory.window must be positive, got %d", c.Memory.Window))
	}
	if c.Memory.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("memory.max_sessions must be positive, got %d", c.Memory.MaxSessions))
	}
	if c.Retrieval.ContextDocs <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.context_docs must be positive, got %d", c.Retrieval.ContextDocs))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Corpus.MaxDocs < 0 {
		errs = append(errs, fmt.Errorf("corpus.max_docs must not be negative, got %d", c.Corpus.MaxDocs))
	}
	switch c.Embedding.Provider {
	case "cohere", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	switch c.LLM.Provider {
	case "nvidia", "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	switch c.Store.Backend {
	case "memory", "chroma":
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	switch c.Memory.Backend {
	case "memory", "bolt":
	default:
		errs = append(errs, fmt.Errorf("unknown memory.backend %q", c.Memory.Backend))
	}
	return errors.Join(errs...)
}

// Secret returns the value of the environment variable named by envName. An
// absent secret is logged but not fatal: it surfaces later as a provider
// authentication failure.
func Secret(envName string) string {
	if envName == "" {
		return ""
	}
	value := os.Getenv(envName)
	if value == "" {
		log.Warnf("CONFIG: environment variable %s is not set; provider calls will likely fail", envName)
	}
	return value
}

// Address returns the host:port the HTTP server listens on.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
