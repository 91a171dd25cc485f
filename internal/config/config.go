package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the complete cognito configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version" toml:"version"`
	Sources    SourcesConfig    `yaml:"sources" json:"sources" toml:"sources"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking" toml:"chunking"`
	Lexical    LexicalConfig    `yaml:"lexical" json:"lexical" toml:"lexical"`
	Semantic   SemanticConfig   `yaml:"semantic" json:"semantic" toml:"semantic"`
	Search     SearchConfig     `yaml:"search" json:"search" toml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings" toml:"embeddings"`
	Completion CompletionConfig `yaml:"completion" json:"completion" toml:"completion"`
	Storage    StorageConfig    `yaml:"storage" json:"storage" toml:"storage"`
	Watch      WatchConfig      `yaml:"watch" json:"watch" toml:"watch"`
	Server     ServerConfig     `yaml:"server" json:"server" toml:"server"`
}

// SourcesConfig selects the documents to index.
type SourcesConfig struct {
	// Root is the notes directory. Relative paths resolve against the project dir.
	Root    string   `yaml:"root" json:"root" toml:"root"`
	Include []string `yaml:"include" json:"include" toml:"include"`
	Exclude []string `yaml:"exclude" json:"exclude" toml:"exclude"`
}

// ChunkingConfig configures the chunker.
type ChunkingConfig struct {
	MinChunkChars          int  `yaml:"min_chunk_chars" json:"min_chunk_chars" toml:"min_chunk_chars"`
	MaxChunkChars          int  `yaml:"max_chunk_chars" json:"max_chunk_chars" toml:"max_chunk_chars"`
	OverlapChars           int  `yaml:"overlap_chars" json:"overlap_chars" toml:"overlap_chars"`
	IncludeHeaders         bool `yaml:"include_headers" json:"include_headers" toml:"include_headers"`
	UseContextualSummaries bool `yaml:"contextual_summaries" json:"contextual_summaries" toml:"contextual_summaries"`

	// Summary prompt budget: (ContextLength - ResponseBufferTokens) * CharsPerToken.
	ContextLength        int `yaml:"context_length" json:"context_length" toml:"context_length"`
	ResponseBufferTokens int `yaml:"response_buffer_tokens" json:"response_buffer_tokens" toml:"response_buffer_tokens"`
	CharsPerToken        int `yaml:"chars_per_token" json:"chars_per_token" toml:"chars_per_token"`
}

// LexicalConfig configures the BM25 index.
type LexicalConfig struct {
	TitleWeight          float64 `yaml:"title_weight" json:"title_weight" toml:"title_weight"`
	ContentWeight        float64 `yaml:"content_weight" json:"content_weight" toml:"content_weight"`
	Debounce             string  `yaml:"debounce" json:"debounce" toml:"debounce"`
	ConsolidateThreshold int     `yaml:"consolidate_threshold" json:"consolidate_threshold" toml:"consolidate_threshold"`
}

// SemanticConfig configures the embedding index.
type SemanticConfig struct {
	// Backend is "scan" (exact, default) or "hnsw" (approximate).
	Backend             string  `yaml:"backend" json:"backend" toml:"backend"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" toml:"similarity_threshold"`
}

// SearchConfig configures the hybrid ranker.
type SearchConfig struct {
	// BM25Weight blends the channels: w*bm25 + (1-w)*semantic.
	BM25Weight      float64 `yaml:"bm25_weight" json:"bm25_weight" toml:"bm25_weight"`
	SemanticTopK    int     `yaml:"semantic_top_k" json:"semantic_top_k" toml:"semantic_top_k"`
	BM25TopKParents int     `yaml:"bm25_top_k_parents" json:"bm25_top_k_parents" toml:"bm25_top_k_parents"`
	FinalTopK       int     `yaml:"final_top_k" json:"final_top_k" toml:"final_top_k"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama", "openai", "static", "none", or empty (not configured).
	Provider          string  `yaml:"provider" json:"provider" toml:"provider"`
	Model             string  `yaml:"model" json:"model" toml:"model"`
	Endpoint          string  `yaml:"endpoint" json:"endpoint" toml:"endpoint"`
	APIKey            string  `yaml:"api_key" json:"-" toml:"api_key"`
	Dimensions        int     `yaml:"dimensions" json:"dimensions" toml:"dimensions"`
	BatchSize         int     `yaml:"batch_size" json:"batch_size" toml:"batch_size"`
	Concurrency       int     `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	Timeout           string  `yaml:"timeout" json:"timeout" toml:"timeout"`
	CacheSize         int     `yaml:"cache_size" json:"cache_size" toml:"cache_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" toml:"requests_per_second"`
}

// CompletionConfig configures the completion provider used for summaries.
type CompletionConfig struct {
	Provider string `yaml:"provider" json:"provider" toml:"provider"`
	Model    string `yaml:"model" json:"model" toml:"model"`
	Endpoint string `yaml:"endpoint" json:"endpoint" toml:"endpoint"`
	APIKey   string `yaml:"api_key" json:"-" toml:"api_key"`
	Timeout  string `yaml:"timeout" json:"timeout" toml:"timeout"`
}

// StorageConfig configures the key-value store.
type StorageConfig struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `yaml:"backend" json:"backend" toml:"backend"`
	DataDir string `yaml:"data_dir" json:"data_dir" toml:"data_dir"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce" toml:"debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport" toml:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level" toml:"log_level"`
}

// defaultIncludePatterns select notes and chat transcripts.
var defaultIncludePatterns = []string{
	"**/*.md",
	"**/*.markdown",
	"**/*.txt",
	"**/*.json",
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/.obsidian/**",
	"**/node_modules/**",
	"**/.cognito/**",
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Sources: SourcesConfig{
			Root:    ".",
			Include: append([]string(nil), defaultIncludePatterns...),
			Exclude: append([]string(nil), defaultExcludePatterns...),
		},
		Chunking: ChunkingConfig{
			MinChunkChars:          150,
			MaxChunkChars:          2000,
			OverlapChars:           0,
			IncludeHeaders:         true,
			UseContextualSummaries: false,
			ContextLength:          4096,
			ResponseBufferTokens:   512,
			CharsPerToken:          4,
		},
		Lexical: LexicalConfig{
			TitleWeight:          0.2,
			ContentWeight:        1.0,
			Debounce:             "500ms",
			ConsolidateThreshold: 5,
		},
		Semantic: SemanticConfig{
			Backend:             "scan",
			SimilarityThreshold: 0.0,
		},
		Search: SearchConfig{
			BM25Weight:      0.5,
			SemanticTopK:    20,
			BM25TopKParents: 10,
			FinalTopK:       10,
		},
		Embeddings: EmbeddingsConfig{
			Provider:    "", // Empty means not configured; semantic search is skipped
			Model:       "nomic-embed-text",
			BatchSize:   16,
			Concurrency: 4,
			Timeout:     "60s",
			CacheSize:   256,
		},
		Completion: CompletionConfig{
			Provider: "",
			Model:    "qwen3:0.6b",
			Timeout:  "60s",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			DataDir: "",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/cognito/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/cognito/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cognito", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "cognito", "config.yaml")
	}
	return filepath.Join(home, ".config", "cognito", "config.yaml")
}

// Load loads configuration for the given project directory.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/cognito/config.yaml)
//  3. Project config (.cognito.yaml, .cognito.yml or .cognito.toml)
//  4. Environment variables (COGNITO_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadFile(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := FindProjectConfig(dir); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = filepath.Join(dir, ".cognito")
	} else if !filepath.IsAbs(cfg.Storage.DataDir) {
		cfg.Storage.DataDir = filepath.Join(dir, cfg.Storage.DataDir)
	}
	if !filepath.IsAbs(cfg.Sources.Root) {
		cfg.Sources.Root = filepath.Join(dir, cfg.Sources.Root)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FindProjectConfig returns the project config file in dir, or "".
// .yaml takes precedence over .yml, which takes precedence over .toml.
func FindProjectConfig(dir string) string {
	for _, name := range []string{".cognito.yaml", ".cognito.yml", ".cognito.toml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// loadFile decodes the file at path over the current values, so keys absent
// from the file keep their defaults and explicit zero values are honored.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COGNITO_NOTES_DIR"); v != "" {
		c.Sources.Root = v
	}
	if v := os.Getenv("COGNITO_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("COGNITO_BM25_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("COGNITO_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("COGNITO_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("COGNITO_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("COGNITO_COMPLETION_PROVIDER"); v != "" {
		c.Completion.Provider = v
	}
	if v := os.Getenv("COGNITO_COMPLETION_MODEL"); v != "" {
		c.Completion.Model = v
	}
	if v := os.Getenv("COGNITO_COMPLETION_ENDPOINT"); v != "" {
		c.Completion.Endpoint = v
	}
	// OPENAI_API_KEY is the conventional name; COGNITO_API_KEY wins when both are set.
	for _, name := range []string{"OPENAI_API_KEY", "COGNITO_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			c.Embeddings.APIKey = v
			c.Completion.APIKey = v
		}
	}
	if v := os.Getenv("COGNITO_SEMANTIC_BACKEND"); v != "" {
		c.Semantic.Backend = v
	}
	if v := os.Getenv("COGNITO_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	ch := c.Chunking
	if ch.MinChunkChars < 0 {
		return fmt.Errorf("chunking.min_chunk_chars must be non-negative, got %d", ch.MinChunkChars)
	}
	if ch.MaxChunkChars <= 0 {
		return fmt.Errorf("chunking.max_chunk_chars must be positive, got %d", ch.MaxChunkChars)
	}
	if ch.MinChunkChars > ch.MaxChunkChars {
		return fmt.Errorf("chunking.min_chunk_chars (%d) must not exceed max_chunk_chars (%d)", ch.MinChunkChars, ch.MaxChunkChars)
	}
	if ch.OverlapChars < 0 || ch.OverlapChars >= ch.MaxChunkChars {
		return fmt.Errorf("chunking.overlap_chars must be in [0, max_chunk_chars), got %d", ch.OverlapChars)
	}
	if ch.ContextLength <= ch.ResponseBufferTokens {
		return fmt.Errorf("chunking.context_length (%d) must exceed response_buffer_tokens (%d)", ch.ContextLength, ch.ResponseBufferTokens)
	}

	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.FinalTopK <= 0 || c.Search.SemanticTopK < 0 || c.Search.BM25TopKParents < 0 {
		return fmt.Errorf("search top-k values must be positive")
	}
	if c.Lexical.TitleWeight < 0 || c.Lexical.ContentWeight < 0 {
		return fmt.Errorf("lexical field weights must be non-negative")
	}
	if c.Lexical.ConsolidateThreshold <= 0 {
		return fmt.Errorf("lexical.consolidate_threshold must be positive, got %d", c.Lexical.ConsolidateThreshold)
	}
	if c.Semantic.SimilarityThreshold < -1 || c.Semantic.SimilarityThreshold > 1 {
		return fmt.Errorf("semantic.similarity_threshold must be between -1 and 1, got %f", c.Semantic.SimilarityThreshold)
	}

	if err := oneOf("semantic.backend", c.Semantic.Backend, "scan", "hnsw"); err != nil {
		return err
	}
	if err := oneOf("embeddings.provider", c.Embeddings.Provider, "", "none", "ollama", "openai", "static"); err != nil {
		return err
	}
	if err := oneOf("completion.provider", c.Completion.Provider, "", "none", "ollama", "openai"); err != nil {
		return err
	}
	if err := oneOf("storage.backend", c.Storage.Backend, "sqlite", "memory"); err != nil {
		return err
	}
	if err := oneOf("server.transport", c.Server.Transport, "stdio", "http"); err != nil {
		return err
	}
	if err := oneOf("server.log_level", c.Server.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}

	for name, v := range map[string]string{
		"lexical.debounce":   c.Lexical.Debounce,
		"embeddings.timeout": c.Embeddings.Timeout,
		"completion.timeout": c.Completion.Timeout,
		"watch.debounce":     c.Watch.Debounce,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s must be a duration, got %q", name, v)
		}
	}

	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %q, got %q", field, allowed, value)
}

// Duration parses a duration setting, returning fallback for empty or invalid values.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
