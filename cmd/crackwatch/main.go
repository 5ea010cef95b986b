package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crackwatch/internal/causality"
	"crackwatch/internal/classify"
	"crackwatch/internal/config"
	"crackwatch/internal/fetch"
	"crackwatch/internal/margin"
	"crackwatch/internal/scrape"
	"crackwatch/internal/sentiment"
	"crackwatch/internal/store"
)

func main() {
	// Parse CLI flags.
	job := flag.String("job", "all", "Job to run: fetch|derive|scrape|score|analyze|all")
	period := flag.String("period", "", "Market lookback period override (e.g. 5y, 6m)")
	configFlag := flag.String("config", "", "Path to the TOML config file")
	flag.Parse()

	// Set up structured logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("crackwatch starting", "job", *job)

	// Load configuration.
	configPath := "config.toml"
	if p := os.Getenv("CW_CONFIG_PATH"); p != "" {
		configPath = p
	}
	if *configFlag != "" {
		configPath = *configFlag
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *period != "" {
		cfg.Market.Lookback = *period
	}
	setLogLevel(cfg.General.LogLevel)

	// Initialize database.
	st, err := store.Open(cfg.General.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database initialized", "path", cfg.General.DBPath)

	// Graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	jobs := map[string]func(context.Context, *config.Config, *store.Store) error{
		"fetch":   runFetch,
		"derive":  runDerive,
		"scrape":  runScrape,
		"score":   runScore,
		"analyze": runAnalyze,
	}

	var sequence []string
	if *job == "all" {
		sequence = []string{"fetch", "derive", "scrape", "score", "analyze"}
	} else {
		if _, ok := jobs[*job]; !ok {
			slog.Error("unknown job", "job", *job)
			os.Exit(1)
		}
		sequence = []string{*job}
	}

	for _, name := range sequence {
		if ctx.Err() != nil {
			slog.Info("shutdown requested, stopping", "pending_job", name)
			break
		}
		slog.Info("job starting", "job", name)
		if err := jobs[name](ctx, cfg, st); err != nil {
			slog.Error("job failed", "job", name, "error", err)
			os.Exit(1)
		}
		slog.Info("job complete", "job", name)
	}

	slog.Info("crackwatch stopped")
}

func setLogLevel(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		slog.Warn("unknown log level, keeping info", "level", level)
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})))
}

func runFetch(ctx context.Context, cfg *config.Config, st *store.Store) error {
	client := fetch.NewClient(cfg.Market.BaseURL, cfg.Market.APIKey)
	fetcher := fetch.NewFetcher(client, st, cfg.Market)

	res, err := fetcher.Run(ctx, cfg.Market.Lookback)
	if err != nil {
		return err
	}
	slog.Info("fetch summary", "symbols_fetched", res.SymbolsFetched, "rows_saved", res.RowsSaved)
	return nil
}

func runDerive(_ context.Context, cfg *config.Config, st *store.Store) error {
	raw, err := st.ReadRaw()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		slog.Warn("no raw market data, run the fetch job first")
		return nil
	}

	rows := margin.NewEngine(cfg.Costs).Compute(raw)
	if err := st.UpsertMargins(rows); err != nil {
		return err
	}
	slog.Info("derive summary", "rows_saved", len(rows))
	return nil
}

func runScrape(_ context.Context, cfg *config.Config, st *store.Store) error {
	fetcher := scrape.NewFetcher(cfg.Scrape.UserAgent, cfg.Scrape.Retries, cfg.Scrape.Timeout.Duration)
	weekly := scrape.NewWeeklySource(fetcher, cfg.Scrape)
	archive := scrape.NewArchiveSource(fetcher, cfg.Scrape, time.Now())

	res, err := scrape.NewScraper(weekly, archive, st).Run()
	if err != nil {
		return err
	}
	slog.Info("scrape summary", "saved", res.Saved, "skipped", res.Skipped, "failed", res.Failed)
	return nil
}

func runScore(ctx context.Context, cfg *config.Config, st *store.Store) error {
	var labeler sentiment.Labeler
	if cfg.Classify.Endpoint != "" {
		labeler = classify.NewClient(cfg.Classify.Endpoint, classify.WithTimeout(cfg.Classify.Timeout.Duration))
	}

	scorer, err := sentiment.NewScorer(st, cfg.NLP, labeler)
	if err != nil {
		return err
	}
	res, err := scorer.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("score summary", "scored", res.Scored, "skipped", res.Skipped)
	return nil
}

func runAnalyze(_ context.Context, cfg *config.Config, st *store.Store) error {
	res, err := causality.NewEngine(st, cfg.Analysis).Run()
	if err != nil {
		return err
	}
	slog.Info("analyze summary",
		"merged_rows", res.MergedRows,
		"directions_tested", len(res.Directions),
		"corr_points", res.CorrPoints,
		"interpretation", res.Interpretation)
	return nil
}
