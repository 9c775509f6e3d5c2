package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/donathon/go/internal/donathon/bus"
	"github.com/mcdev12/donathon/go/internal/donathon/config"
	"github.com/mcdev12/donathon/go/internal/donathon/gateway"
	"github.com/mcdev12/donathon/go/internal/donathon/metrics"
	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/mcdev12/donathon/go/internal/donathon/sequencer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Server.Port).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Str("nats_url", cfg.NATS.URL).
		Str("subject_prefix", cfg.NATS.SubjectPrefix).
		Str("redis_addr", cfg.Redis.Addr).
		Msg("starting donathon overlay")

	clock := clockwork.NewRealClock()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheusCollector(reg)

	// Gateway pages get every paint; the log renderer keeps headless runs observable
	gw := gateway.NewService(gateway.DefaultConnectionConfig(), clock, nil)
	renderer := overlay.MultiRenderer{gw.Hub(), overlay.LogRenderer{}}

	seq := sequencer.New(renderer, clock, collector, cfg.SequencerTiming())

	opts, err := cfg.BridgeOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid overlay options")
	}
	bridge := overlay.NewBridge(renderer, seq, clock, collector, opts)
	gw.SetStateProvider(bridge)

	dispatcher := bus.NewDispatcher(bridge, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := &healthChecker{
		queueLength: seq.Len,
		connections: func() int { return gw.Hub().Stats().TotalConnections },
	}

	// Redis holds the host's userstore; read it before any delta arrives
	var rdb *redis.Client
	var snapshots *bus.RedisSnapshotSource
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		health.redis = rdb
		snapshots = bus.NewRedisSnapshotSource(rdb, cfg.Redis.Key)
	}

	loadSnapshot := func() {
		if snapshots == nil {
			return
		}
		loadCtx, loadCancel := context.WithTimeout(ctx, 5*time.Second)
		defer loadCancel()
		if err := snapshots.Load(loadCtx, dispatcher); err != nil {
			log.Error().Err(err).Msg("failed to load userstore snapshot")
		}
	}

	loadSnapshot()
	bridge.Refresh()

	var consumer *bus.Consumer
	if cfg.NATS.Enabled {
		consumerConfig := bus.DefaultConsumerConfig()
		consumerConfig.URL = cfg.NATS.URL
		consumerConfig.StreamName = cfg.NATS.Stream
		consumerConfig.ConsumerName = cfg.NATS.Consumer
		consumerConfig.SubjectPrefix = cfg.NATS.SubjectPrefix
		consumerConfig.ReconnectWait = cfg.NATS.ReconnectWait

		consumer, err = bus.NewConsumer(ctx, dispatcher, consumerConfig, loadSnapshot)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create signal consumer")
		}
		health.nats = consumer
	}

	server := setupServer(cfg.Server.Port, gw, reg, health)

	go gw.Start(ctx)

	go func() {
		if err := seq.Run(ctx); err != nil {
			log.Error().Err(err).Msg("notification sequencer failed")
		}
	}()

	if consumer != nil {
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("signal consumer failed")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	bridge.Close()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop signal consumer")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}

	log.Info().Msg("donathon overlay shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
