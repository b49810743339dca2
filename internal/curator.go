package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/curator/internal/activity"
	"github.com/starford/curator/internal/ai"
	"github.com/starford/curator/internal/apperr"
	"github.com/starford/curator/internal/changes"
	"github.com/starford/curator/internal/index"
	"github.com/starford/curator/internal/invariants"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/relevance"
	"github.com/starford/curator/internal/storage"
	"github.com/starford/curator/internal/vaultservice"
)

// Curator holds the wired components shared by the server and the CLI.
type Curator struct {
	Config  *Config
	Store   *storage.FS
	DB      *index.DB
	Service *vaultservice.Service
	Logger  *slog.Logger
}

// NewLogger returns the JSON logger at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Open opens the vault and its index, runs the initial sync and wires the
// service. pub may be nil.
func Open(cfg *Config, logger *slog.Logger, pub vaultservice.Publisher) (*Curator, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	stats, err := index.Sync(db, store, logger)
	if err != nil {
		logger.Warn("sync: initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("sync: complete",
			slog.Int("indexed", stats.Indexed),
			slog.Int("removed", stats.Removed))
	}

	gen, err := newGenerator(cfg.AI)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var scorer relevance.Scorer = relevance.KeywordScorer{}
	if cfg.Related.UseAI && gen != nil {
		scorer = relevance.NewAIScorer(gen, logger)
	}

	svc := vaultservice.New(vaultservice.Deps{
		Store:          store,
		Index:          db,
		Graph:          cfg.GraphOptions(),
		Checker:        quality.NewChecker(cfg.QualityRules()),
		Suggester:      relevance.NewSuggester(scorer, cfg.Related.Threshold, cfg.Related.Max),
		Invariants:     invariants.NewChecker(gen, logger),
		InvariantsFile: cfg.Analysis.InvariantsFile,
		Activity:       activity.New(store, cfg.Analysis.ActivityLogFile),
		Changes:        changes.New(cfg.Changes.Capacity, cfg.Changes.Retention),
		Publisher:      pub,
		Logger:         logger,
	})

	return &Curator{
		Config:  cfg,
		Store:   store,
		DB:      db,
		Service: svc,
		Logger:  logger,
	}, nil
}

// Close releases the index.
func (c *Curator) Close() error {
	return c.DB.Close()
}

// newGenerator returns nil when AI is not configured.
func newGenerator(cfg AIConfig) (ai.Generator, error) {
	g, err := ai.NewOpenAI(ai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		MaxRetries:  2,
	})
	if errors.Is(err, apperr.ErrNoGenerator) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("init ai: %w", err)
	}
	return g, nil
}
