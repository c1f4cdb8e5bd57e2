package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/db/sqlite"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/pdf"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/server"
)

// defaultSQLitePath is used when no DATABASE_URL is configured
const defaultSQLitePath = "resume_builder.db"

// appStore is the persistence shared by the server and the offline tools
type appStore interface {
	resume.Store
	server.UserStore
	Migrate(ctx context.Context) error
	Close()
}

var (
	_ appStore = (*db.DB)(nil)
	_ appStore = (*sqlite.Store)(nil)
)

// openStore picks the backend from the URL scheme: postgres:// and
// postgresql:// use PostgreSQL, anything else is a SQLite file path.
func openStore(ctx context.Context, databaseURL string) (appStore, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		pg, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}

	path := strings.TrimPrefix(databaseURL, "sqlite://")
	if path == "" {
		path = defaultSQLitePath
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// loadConfig reads the effective configuration and sets up logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	observability.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}

// app bundles the store and the rendering pipeline used by every command
type app struct {
	cfg      *config.Config
	store    appStore
	registry *rendering.Registry
	resumes  *resume.Service
}

func newApp(ctx context.Context, cfg *config.Config, opts ...resume.Option) (*app, error) {
	store, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	registry, err := rendering.NewRegistry()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	converter := pdf.NewChromeConverter()
	converter.ExecPath = cfg.ChromePath
	exporter := pdf.NewExporter(converter, cfg.PDFTimeout)

	return &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		resumes:  resume.NewService(store, registry, exporter, opts...),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
