// Package config loads the engine configuration from a TOML file with
// documented defaults. Secrets (API keys, OAuth tokens) come from the
// environment, never from the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// DefaultFileName is the config file name inside the data directory.
const DefaultFileName = "config.toml"

// Config is the full engine configuration.
type Config struct {
	// DataDir holds the durable store, the index snapshot and downloads.
	DataDir string `toml:"data_dir"`

	Source   Source   `toml:"source"`
	Chunking Chunking `toml:"chunking"`
	Search   Search   `toml:"search"`
	Cache    Cache    `toml:"cache"`
	Refresh  Refresh  `toml:"refresh"`
	Gemini   Gemini   `toml:"gemini"`
	Serve    Serve    `toml:"serve"`
}

// Source selects where documents come from.
type Source struct {
	// Kind is "drive" or "filesystem".
	Kind string `toml:"kind"`

	// FolderID is the watched Google Drive folder.
	FolderID string `toml:"folder_id"`

	// LocalDir is the corpus directory for the filesystem source.
	LocalDir string `toml:"local_dir"`

	// MaxFileSize is the per-file size cap in bytes.
	MaxFileSize int64 `toml:"max_file_size"`
}

// Chunking tunes the document processor.
type Chunking struct {
	MaxChunkSize      int `toml:"max_chunk_size"`
	MinChunkSize      int `toml:"min_chunk_size"`
	Overlap           int `toml:"overlap"`
	MaxPDFPages       int `toml:"max_pdf_pages"`
	MinExtractedChars int `toml:"min_extracted_chars"`
}

// Search tunes the hybrid index.
type Search struct {
	// SimilarityWeight and KeywordWeight are the fusion weights.
	SimilarityWeight float64 `toml:"similarity_weight"`
	KeywordWeight    float64 `toml:"keyword_weight"`

	// TopK is the default result count.
	TopK int `toml:"top_k"`

	// Synonyms extends the built-in synonym table: each entry is a group
	// of mutually substitutable terms.
	Synonyms [][]string `toml:"synonyms"`
}

// Cache tunes the persistent store and the remote context cache lifecycle.
type Cache struct {
	ResponseCacheSize int           `toml:"response_cache_size"`
	TTL               time.Duration `toml:"ttl"`
	WarningMargin     time.Duration `toml:"warning_margin"`
	ClockSkewMargin   time.Duration `toml:"clock_skew_margin"`
}

// Refresh tunes the background refresh schedule.
type Refresh struct {
	// Hour is the local hour of day (0-23) the daily refresh fires at.
	Hour int `toml:"hour"`

	// TimezoneOffsetHours is the offset from UTC used to interpret Hour.
	TimezoneOffsetHours int `toml:"timezone_offset_hours"`

	// RetryBackoff is the sleep between attempts after a failure.
	RetryBackoff time.Duration `toml:"retry_backoff"`

	// Workers is the number of concurrent download/extraction workers.
	Workers int `toml:"workers"`
}

// Gemini configures the optional remote context cache.
type Gemini struct {
	// Enabled turns the context cache on. Requires GEMINI_API_KEY in the
	// environment.
	Enabled bool `toml:"enabled"`

	// Model the cached content is created for.
	Model string `toml:"model"`
}

// Serve configures the long-running serve command.
type Serve struct {
	// MCPAddr is the listen address for the MCP server, empty for stdio.
	MCPAddr string `toml:"mcp_addr"`
}

// Default returns the configuration with all documented defaults applied.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Source: Source{
			Kind:        "drive",
			MaxFileSize: 20 * 1024 * 1024,
		},
		Chunking: Chunking{
			MaxChunkSize:      1000,
			MinChunkSize:      50,
			Overlap:           200,
			MaxPDFPages:       50,
			MinExtractedChars: 100,
		},
		Search: Search{
			SimilarityWeight: 0.6,
			KeywordWeight:    0.4,
			TopK:             5,
		},
		Cache: Cache{
			ResponseCacheSize: 100,
			TTL:               time.Hour,
			WarningMargin:     10 * time.Minute,
			ClockSkewMargin:   2 * time.Minute,
		},
		Refresh: Refresh{
			Hour:         5,
			RetryBackoff: 15 * time.Minute,
			Workers:      4,
		},
		Gemini: Gemini{
			Model: "gemini-2.0-flash",
		},
	}
}

// Load reads the config file at path, applying defaults for every omitted
// field. A missing file yields the pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, cfg.validate()
}

// Save writes the configuration with restricted permissions.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// GeminiAPIKey returns the API key from the environment.
func (c Config) GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// SnapshotPath returns the index snapshot location inside the data dir.
func (c Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "index.snapshot")
}

// TimezoneOffset returns the refresh timezone offset as a duration.
func (c Config) TimezoneOffset() time.Duration {
	return time.Duration(c.Refresh.TimezoneOffsetHours) * time.Hour
}

func (c Config) validate() error {
	switch c.Source.Kind {
	case "drive", "filesystem":
	default:
		return fmt.Errorf("source.kind %q: %w", c.Source.Kind, domain.ErrInvalidInput)
	}
	if c.Refresh.Hour < 0 || c.Refresh.Hour > 23 {
		return fmt.Errorf("refresh.hour %d: %w", c.Refresh.Hour, domain.ErrInvalidInput)
	}
	if c.Search.SimilarityWeight < 0 || c.Search.KeywordWeight < 0 {
		return fmt.Errorf("search weights must be non-negative: %w", domain.ErrInvalidInput)
	}
	return nil
}

// defaultDataDir places data under ~/.knowbot, falling back to the current
// directory when the home directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".knowbot"
	}
	return filepath.Join(home, ".knowbot")
}
