// Package cli provides the knowbot command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"github.com/brokerhub/knowbot/internal/config"
	"github.com/brokerhub/knowbot/internal/connectors/filesystem"
	"github.com/brokerhub/knowbot/internal/connectors/googledrive"
	"github.com/brokerhub/knowbot/internal/contextcache"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/core/ports/driving"
	"github.com/brokerhub/knowbot/internal/core/services"
	"github.com/brokerhub/knowbot/internal/extractors"
	"github.com/brokerhub/knowbot/internal/index"
	"github.com/brokerhub/knowbot/internal/logger"
	"github.com/brokerhub/knowbot/internal/processor"
	"github.com/brokerhub/knowbot/internal/storage/sqlite"
)

var version = "dev"

var (
	cfgPath string
	verbose bool

	cfg              config.Config
	knowledgeService driving.KnowledgeService
	knowledgeManager *services.KnowledgeManager
	fileWatcher      driven.Watcher
	closers          []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "knowbot",
	Short: "RAG knowledge engine for the partner-network assistant",
	Long: `knowbot ingests documents from a watched folder, maintains a hybrid
search index over them and serves ranked context to the chat assistant.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default $HOME/.knowbot/config.toml)")
}

// Execute runs the CLI. ver is the build version stamped by the linker.
func Execute(ver string) error {
	if ver != "" {
		version = ver
	}
	defer teardown()
	return rootCmd.Execute()
}

// initEngine wires the full engine from configuration. Commands that only
// print local information skip it.
func initEngine(ctx context.Context) error {
	if knowledgeService != nil {
		return nil
	}

	var err error
	cfg, err = config.Load(configPath())
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.DataDir,
		sqlite.WithResponseCacheSize(cfg.Cache.ResponseCacheSize))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	closers = append(closers, store)

	files, err := newFileStore(ctx)
	if err != nil {
		return err
	}
	closers = append(closers, files)
	if w, ok := files.(driven.Watcher); ok {
		fileWatcher = w
	}

	registry := extractors.DefaultRegistry(cfg.Chunking.MaxPDFPages)
	proc := processor.New(registry,
		processor.WithMaxChunkSize(cfg.Chunking.MaxChunkSize),
		processor.WithMinChunkSize(cfg.Chunking.MinChunkSize),
		processor.WithOverlap(cfg.Chunking.Overlap),
		processor.WithMinExtractedChars(cfg.Chunking.MinExtractedChars),
	)

	synonyms := index.DefaultSynonyms()
	for _, group := range cfg.Search.Synonyms {
		synonyms.AddGroup(group)
	}
	searchIndex := index.New(
		index.WithSynonyms(synonyms),
		index.WithFusionWeights(cfg.Search.SimilarityWeight, cfg.Search.KeywordWeight),
	)

	ctxCache, err := newContextCache(ctx)
	if err != nil {
		return err
	}

	knowledgeManager = services.NewKnowledgeManager(
		files, store, searchIndex, proc, registry, ctxCache,
		services.WithTTL(cfg.Cache.TTL),
		services.WithWarningMargin(cfg.Cache.WarningMargin),
		services.WithClockSkewMargin(cfg.Cache.ClockSkewMargin),
		services.WithWorkers(cfg.Refresh.Workers),
		services.WithMaxFileSize(cfg.Source.MaxFileSize),
		services.WithSnapshotPath(cfg.SnapshotPath()),
	)
	knowledgeManager.RestoreSnapshot()
	knowledgeService = knowledgeManager
	return nil
}

// newFileStore builds the configured document source.
func newFileStore(ctx context.Context) (driven.FileStore, error) {
	switch cfg.Source.Kind {
	case "filesystem":
		return filesystem.NewStore(cfg.Source.LocalDir)
	default:
		ts, err := google.DefaultTokenSource(ctx, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("resolving Google credentials: %w", err)
		}
		return googledrive.NewStore(ctx, cfg.Source.FolderID, ts,
			googledrive.WithMaxDownloadSize(cfg.Source.MaxFileSize))
	}
}

// newContextCache builds the optional Gemini context cache, falling back to
// the no-op when disabled or unconfigured.
func newContextCache(ctx context.Context) (driven.ContextCache, error) {
	if !cfg.Gemini.Enabled {
		return contextcache.NewNoop(), nil
	}
	key := cfg.GeminiAPIKey()
	if key == "" {
		logger.Warn("Context cache enabled but GEMINI_API_KEY is unset, running index-only")
		return contextcache.NewNoop(), nil
	}
	return contextcache.NewGemini(ctx, key, cfg.Cache.TTL,
		contextcache.WithModel(cfg.Gemini.Model))
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return filepath.Join(config.Default().DataDir, config.DefaultFileName)
}

func teardown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Debug("Close failed: %v", err)
		}
	}
	closers = nil
}
