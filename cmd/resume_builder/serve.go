package main

import (
	"fmt"
	"time"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/server"
	"github.com/jonathan/resume-builder/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start an HTTP server that accepts résumé submissions and serves them as HTML, text and PDF.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	images, err := storage.NewLocalImageStore(cfg.MediaDir)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	a, err := newApp(ctx, cfg,
		resume.WithImageStore(images),
		resume.WithMetrics(metrics),
		resume.WithPolicy(resume.Policy{GatePrivate: cfg.GatePrivateResumes}),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	srv, err := server.New(server.Config{
		Port:         cfg.Port,
		MediaDir:     cfg.MediaDir,
		CORSOrigins:  cfg.CORSOrigins,
		WriteTimeout: cfg.PDFTimeout + time.Minute,
		JWT:          jwtConfig,
		Passwords:    passwordConfig,
		Metrics:      metrics,
		Gatherer:     registry,
	}, a.resumes, a.store)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info().
		Str("media_dir", cfg.MediaDir).
		Bool("gate_private", cfg.GatePrivateResumes).
		Msg("Configuration loaded")
	return srv.Start(ctx)
}
