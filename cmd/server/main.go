package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "mirelle/internal/adapters/http"
	"mirelle/internal/adapters/listing"
	pg "mirelle/internal/adapters/postgres"
	"mirelle/internal/config"
	"mirelle/internal/logging"
	"mirelle/internal/ports"
	"mirelle/internal/schema"
	catalogsvc "mirelle/internal/services/catalog"
	crawlsvc "mirelle/internal/services/crawls"
	proposalsvc "mirelle/internal/services/proposals"
	reviewsvc "mirelle/internal/services/reviews"
	revivalsvc "mirelle/internal/services/revival"
	"mirelle/internal/usp"
	crawlworker "mirelle/internal/workers/crawlrunner"
)

func main() {
	cfg, cfgErr := config.Load()

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfgErr != nil {
		log.Warnw("config incomplete", "error", cfgErr)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pg.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalw("migrations failed", "error", err)
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("db connect failed", "error", err)
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.CompetitorRepository = db
	var _ ports.LegacyRepository = db
	var _ ports.ProposalRepository = db
	var _ ports.CrawlRepository = db
	var _ ports.CrawledProductRepository = db
	var _ ports.ReviewRepository = db
	var _ ports.JobRepository = db

	sch := schema.Default()
	dict, err := usp.Load(cfg.UspDictionary)
	if err != nil {
		log.Fatalw("usp dictionary load failed", "error", err, "path", cfg.UspDictionary)
	}

	catalog := catalogsvc.New(sch, db, db, db)
	reviver := revivalsvc.New(sch, db)
	proposer := proposalsvc.New(sch, db, db, db, log)
	crawler := crawlsvc.New(db, db)
	reviews := reviewsvc.New(dict, sch, db)

	fetcher := &listing.Fetcher{Client: &http.Client{Timeout: 30 * time.Second}}
	processor := crawlworker.Collector{Jobs: db, Crawls: db, Products: db, Source: fetcher}
	srv := httpadapter.New(catalog, reviver, proposer, crawler, reviews, db, processor, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// Optional background crawl workers
	if cfg.CrawlWorkers > 0 {
		go crawlworker.Run(ctx, db, processor, cfg.CrawlWorkers, 500*time.Millisecond, log)
		log.Infow("crawl workers started", "count", cfg.CrawlWorkers)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Infow("listening", "addr", cfg.ListenAddr, "env", cfg.Env)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infow("shutting down", "signal", sig.String())
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatalw("server error", "error", err)
	}
}
