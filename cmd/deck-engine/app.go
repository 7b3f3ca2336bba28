package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/config"
	"github.com/ramonehamilton/deck-engine/internal/deckimport"
	"github.com/ramonehamilton/deck-engine/internal/display"
	"github.com/ramonehamilton/deck-engine/internal/export"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/meta"
	"github.com/ramonehamilton/deck-engine/internal/metrics"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
	"github.com/ramonehamilton/deck-engine/internal/storage"
)

// app holds the engine wired from configuration for one command.
type app struct {
	opts       *options
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	level      *slog.LevelVar

	tables   *heuristics.Tables
	store    *storage.Service
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	analyzer *analysis.Analyzer
}

// loadConfig reads the config file and applies the persistent flags.
func loadConfig(opts *options) (*config.Config, string, error) {
	configPath := opts.configPath
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	if opts.dbPath != "" {
		cfg.Storage.Path = opts.dbPath
	}
	if opts.debug {
		cfg.App.DebugMode = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, configPath, nil
}

// newApp loads configuration, opens the database and builds the analyzer.
func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, configPath, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	logger := newLogger(cmd.ErrOrStderr(), cfg.App, level)
	slog.SetDefault(logger)

	tables := heuristics.Default()
	if cfg.Engine.TablesFile != "" {
		if tables, err = heuristics.Load(cfg.Engine.TablesFile); err != nil {
			return nil, err
		}
	}

	dbConfig := storage.DefaultConfig(cfg.Storage.Path)
	dbConfig.AutoMigrate = cfg.Storage.AutoMigrate
	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := storage.NewService(db, tables.EnforcedFormats()...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(registry)

	a := &app{
		opts:       opts,
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		level:      level,
		tables:     tables,
		store:      store,
		registry:   registry,
		metrics:    m,
	}

	metaProvider, err := a.metaProvider()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	analyzerOpts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithMetrics(m),
		analysis.WithArchetypeMargin(float64(cfg.Engine.ArchetypeMargin)),
	}
	if metaProvider != nil {
		analyzerOpts = append(analyzerOpts, analysis.WithMeta(metaProvider))
	}
	if cfg.Engine.CacheSize > 0 {
		cache, err := analysis.NewCache(cfg.Engine.CacheSize)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		analyzerOpts = append(analyzerOpts, analysis.WithCache(cache))
	}
	a.analyzer = analysis.NewAnalyzer(store.Catalog(), tables, analyzerOpts...)

	logger.Debug("engine ready",
		"config", configPath,
		"db", cfg.Storage.Path,
		"tables", tables.Version,
		"meta_source", cfg.Meta.Source)
	return a, nil
}

// metaProvider builds the configured meta source behind a TTL cache.
func (a *app) metaProvider() (meta.Provider, error) {
	var source meta.Provider
	switch a.cfg.Meta.Source {
	case config.MetaSourceNone:
		return nil, nil
	case config.MetaSourceDB:
		source = a.store.Meta()
	case config.MetaSourceStatic:
		p, err := meta.LoadStatic(a.cfg.Meta.File)
		if err != nil {
			return nil, err
		}
		source = p
	case config.MetaSourceHTTP:
		httpConfig := meta.DefaultHTTPConfig()
		httpConfig.BaseURL = a.cfg.Meta.URL
		httpConfig.CacheTTL = a.cfg.MetaTTL()
		httpConfig.RateInterval = a.cfg.MetaRateInterval()
		client, err := meta.NewHTTPClient(httpConfig, a.logger)
		if err != nil {
			return nil, err
		}
		source = client
	default:
		return nil, fmt.Errorf("unknown meta source %q", a.cfg.Meta.Source)
	}

	return meta.NewService(&meta.ServiceConfig{
		Sources: []meta.NamedProvider{{Name: a.cfg.Meta.Source, Provider: source}},
		TTL:     a.cfg.MetaTTL(),
		Logger:  a.logger,
	}), nil
}

// optimizer builds an optimizer over the app's analyzer.
func (a *app) optimizer(extra ...recommendations.Option) *recommendations.Optimizer {
	opts := []recommendations.Option{
		recommendations.WithOwnership(a.store.Collection()),
		recommendations.WithLogger(a.logger),
		recommendations.WithMetrics(a.metrics),
		recommendations.WithMaxCandidates(a.cfg.Optimizer.MaxCandidates),
		recommendations.WithMaxPool(a.cfg.Optimizer.MaxPool),
		recommendations.WithParallelism(a.cfg.Optimizer.Parallelism),
	}
	return recommendations.NewOptimizer(a.analyzer, append(opts, extra...)...)
}

// format picks the format: the --format flag, then the deck list header,
// then the configured default.
func (a *app) format(fromDeck string) string {
	for _, f := range []string{a.opts.format, fromDeck, a.cfg.Engine.DefaultFormat} {
		if strings.TrimSpace(f) != "" {
			return strings.ToLower(f)
		}
	}
	return ""
}

// readDeck parses a deck file, or standard input for "-".
func (a *app) readDeck(cmd *cobra.Command, path string) (*deckimport.ParsedDeck, error) {
	var (
		parsed *deckimport.ParsedDeck
		err    error
	)
	if path == "-" {
		parsed, err = deckimport.ParseReader(cmd.InOrStdin())
	} else {
		parsed, err = deckimport.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	for _, w := range parsed.Warnings {
		a.logger.Warn("deck list line skipped", "file", path, "warning", w)
	}
	return parsed, nil
}

// print writes v as JSON with --json, otherwise runs the text report.
func (a *app) print(w io.Writer, v any, report func(*display.Printer) error) error {
	if a.opts.jsonOutput {
		return export.JSON(w, v)
	}
	return report(display.NewPrinter(w))
}

// backups returns the backup manager for the open database.
func (a *app) backups() *storage.BackupManager {
	return storage.NewBackupManager(a.store.DB(), a.cfg.Storage.Path, a.cfg.Storage.BackupDir)
}

func (a *app) Close() error {
	return a.store.Close()
}

func newLogger(w io.Writer, cfg config.AppConfig, level *slog.LevelVar) *slog.Logger {
	setLevel(level, cfg)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func setLevel(level *slog.LevelVar, cfg config.AppConfig) {
	if cfg.DebugMode {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *options, fn func(context.Context, *app) error) (err error) {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
		}
	}()
	return fn(cmd.Context(), a)
}
