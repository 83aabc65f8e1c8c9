package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"inquest/internal/adapters/collector"
	"inquest/internal/adapters/filestore"
	httpadapter "inquest/internal/adapters/http"
	"inquest/internal/adapters/memstore"
	pg "inquest/internal/adapters/postgres"
	"inquest/internal/adapters/sqlite"
	"inquest/internal/config"
	"inquest/internal/logging"
	"inquest/internal/ports"
	"inquest/internal/services/benign"
	"inquest/internal/services/correlation"
	"inquest/internal/services/investigation"
)

func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Warn().Err(err).Msg("config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required for the indicator store")
	}
	if cfg.CollectorURL == "" {
		log.Fatal().Msg("COLLECTOR_URL is required for evidence collection")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("indicator store connect")
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.IndicatorRepository = db
	var _ ports.AllowlistSource = db

	// Tier 2 is optional: a missing reference file degrades the benign
	// cache to Tier 1 only, it never blocks startup.
	var refdb ports.ReferenceSet
	if cfg.NSRLDBPath != "" {
		rdb, err := sqlite.Open(cfg.NSRLDBPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.NSRLDBPath).Msg("reference set unavailable, continuing with tier 1 only")
		} else {
			defer rdb.Close()
			refdb = rdb
		}
	} else {
		log.Warn().Msg("NSRL_DB_PATH not set, benign cache runs with tier 1 only")
	}

	resultCache, err := filestore.New(cfg.ResultCacheDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ResultCacheDir).Msg("result cache init")
	}

	benignCache := benign.NewCache(db, refdb, log)
	if err := benignCache.Init(ctx); err != nil {
		// First lookup retries the load.
		log.Warn().Err(err).Msg("endpoint allowlist warm-up failed")
	}

	ti := correlation.New(db, benignCache, log)
	evidence := collector.New(cfg.CollectorURL, cfg.CollectorTimeout)
	jobs := memstore.NewJobStore()
	invest := investigation.New(evidence, ti, resultCache, jobs, cfg.JobTTL, cfg.PipelineTimeout, log)

	srv := httpadapter.New(invest, ti, benignCache, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server error")
	}
}
