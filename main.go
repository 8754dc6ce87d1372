package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stock-alerts/config"
	"stock-alerts/routes"
	"stock-alerts/scheduler"
	"stock-alerts/services/company"
	"stock-alerts/services/market"
	"stock-alerts/services/monitor"
	"stock-alerts/services/news"
	"stock-alerts/services/notify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "run a single monitoring cycle and exit")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Log.Level)
	defer logger.Sync()
	log := logger.Sugar()

	log.Infow("configuration loaded",
		"ntfy_server", cfg.Ntfy.Server,
		"ntfy_topic", notify.MaskSecret(cfg.Ntfy.Topic),
		"tickers", cfg.Tickers,
		"threshold_pct", cfg.ThresholdPct,
		"dry_run", cfg.Test.DryRun,
	)

	companies, err := company.NewService(cfg.CompanyCache, log)
	if err != nil {
		log.Fatalw("could not open company cache", "path", cfg.CompanyCache, "err", err)
	}
	defer companies.Close()

	prices := market.NewService(log)
	notifier := notify.NewClient(cfg.Ntfy.Server, cfg.Ntfy.Topic, true, cfg.Test.DryRun, log)
	states := monitor.NewFileStore(cfg.StateFile, log)

	var enricher monitor.Enricher
	if cfg.News.Enabled {
		enricher = news.NewEnricher(
			news.NewService(log),
			companies,
			news.NewLinkResolver(log),
			cfg.News,
			log,
		)
	}

	mon := monitor.New(cfg, prices, enricher, notifier, states, log)
	tracker := monitor.NewTracker(mon)

	if *once {
		result, _ := tracker.Run(context.Background())
		log.Infow("single cycle complete",
			"alerted", len(result.Alerted), "failed", result.Failed, "gated", result.Gated)
		return
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, tracker, cfg)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("http server failed", "err", err)
		}
	}()

	runner := scheduler.NewRunner(tracker, cfg.Monitor.IntervalMinutes, log)
	runner.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("shutting down")

	runner.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("http server shutdown", "err", err)
	}
}

func buildLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.Must(zcfg.Build())
}
