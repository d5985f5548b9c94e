// Package common wires the shared dependencies of the CLI commands.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/aeoscan/internal/config"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/database"
	"github.com/jonesrussell/aeoscan/internal/fixes"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/rubric"
	"github.com/jonesrussell/aeoscan/internal/scan"
	"github.com/jonesrussell/aeoscan/internal/storage"
)

// Deps bundles everything a command needs to run scans.
type Deps struct {
	Config   *config.Config
	Logger   logger.Interface
	DB       *sqlx.DB
	Repos    scan.Repositories
	Runner   *scan.Runner
	Archive  storage.RawPageStore
	Fixes    *fixes.Registry
	Registry *rubric.Registry
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}

// New loads configuration and constructs the full dependency graph.
// The Elasticsearch archive and LLM client are optional: the scan
// pipeline degrades without them instead of refusing to start.
func New(cfgFile string) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	repos := scan.Repositories{
		Scans:    database.NewScanRepository(db),
		Pages:    database.NewPageRepository(db),
		Clusters: database.NewClusterRepository(db),
		Issues:   database.NewIssueRepository(db),
		Reports:  database.NewReportRepository(db),
	}

	var archive storage.RawPageStore
	if esClient, esErr := storage.NewClient(cfg.Elasticsearch, log); esErr != nil {
		log.Warn("raw page archive unavailable", "error", esErr.Error())
	} else {
		archive = storage.NewESArchive(esClient, log)
	}

	var llm rubric.LLMClient
	if cfg.LLM.APIKey != "" {
		llm = rubric.NewOpenAIClient(cfg.LLM)
	} else {
		log.Warn("no LLM API key configured, semantic checks will be skipped")
	}

	var renderer crawl.Renderer
	if cfg.Renderer.Enabled {
		renderer = crawl.NewChromeRenderer(cfg.Renderer.Timeout)
	}

	fixRegistry := fixes.NewRegistry()
	if cfg.FixTemplates != "" {
		if loadErr := fixRegistry.LoadOverrides(cfg.FixTemplates); loadErr != nil {
			db.Close()
			return nil, fmt.Errorf("load fix templates: %w", loadErr)
		}
	}

	registry := rubric.DefaultRegistry()
	if cfg.Rubric != "" {
		if loadErr := registry.LoadOverrides(cfg.Rubric); loadErr != nil {
			db.Close()
			return nil, fmt.Errorf("load rubric overrides: %w", loadErr)
		}
	}

	runner := scan.NewRunner(scan.RunnerParams{
		Repos:    repos,
		Archive:  archive,
		Renderer: renderer,
		LLM:      llm,
		Registry: registry,
		Limits:   cfg.Budget,
		CrawlCfg: cfg.Crawl,
		Logger:   log,
	})

	return &Deps{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Repos:    repos,
		Runner:   runner,
		Archive:  archive,
		Fixes:    fixRegistry,
		Registry: registry,
	}, nil
}
