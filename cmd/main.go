package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"

	"safe-monitor/internal/analysis"
	"safe-monitor/internal/config"
	"safe-monitor/internal/database"
	"safe-monitor/internal/emitters"
	"safe-monitor/internal/health"
	"safe-monitor/internal/logger"
	"safe-monitor/internal/notify"
	"safe-monitor/internal/scheduler"
	"safe-monitor/internal/txservice"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
		}
	}()

	seed := flag.Bool("seed", false, "insert the example monitors and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)
	log := logger.GetLogger()

	store, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.RunMigrations(cfg.Database.DBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *seed {
		seedMonitors(ctx, store)
		return
	}

	source := txservice.NewClient(cfg.HTTP.RateLimit, cfg.MaxRetries, cfg.RetryDelay, cfg.HTTP.Timeout, cfg.ServiceURLOverrides, log)
	defer source.Close()

	dispatcher := notify.NewDispatcher(cfg, log)

	sched := scheduler.New(store, source, dispatcher,
		analysis.NewAnalyzer(cfg.NonceGapThreshold),
		cfg.PollInterval, cfg.MaxConcurrentGroups, log)

	if cfg.Kafka.BrokerAddress != "" {
		emitter := emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic)
		defer func() {
			_ = emitter.Close()
		}()
		sched.Emitter = emitter
	}

	health.Serve(cfg.HealthAddr)
	health.SetReady(true)

	log.Info().
		Dur("pollInterval", cfg.PollInterval).
		Int("maxConcurrentGroups", cfg.MaxConcurrentGroups).
		Msg("Safe monitor started")

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Scheduler stopped")
	}

	health.SetReady(false)
	log.Info().Msg("Safe monitor shut down")
}
