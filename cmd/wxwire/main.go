package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/wxwire-feed-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/wxwire-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/wxwire-feed-service/internal/config"
	"github.com/couchcryptid/wxwire-feed-service/internal/observability"
	"github.com/couchcryptid/wxwire-feed-service/internal/session/amqp"
	"github.com/couchcryptid/wxwire-feed-service/internal/wxwire"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sess := amqp.New(amqp.Config{
		URL:      cfg.BrokerURL(),
		Exchange: cfg.Exchange,
		Channel:  cfg.Channel,
		Queue:    cfg.Queue,
		History:  cfg.History,
	}, logger)

	client := wxwire.New(wxwire.Settings{
		Channel:         cfg.Channel,
		IdleTimeout:     cfg.IdleTimeout,
		MonitorInterval: cfg.MonitorInterval,
		QueueSize:       cfg.QueueSize,
	}, sess, logger, metrics)

	// Relay is feature-flagged via KAFKA_RELAY_ENABLED.
	var relay *kafkaadapter.Relay
	if cfg.RelayEnabled {
		relay = kafkaadapter.NewRelay(cfg, logger, metrics)
		client.Subscribe(relay.Handle)
		logger.Info("kafka relay enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka relay disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	ok, err := client.Start(ctx)
	if err != nil {
		logger.Error("feed start error", "error", err)
		os.Exit(1)
	}
	if !ok {
		logger.Error("feed connection declined")
		os.Exit(1)
	}

	// Log each bulletin as it arrives; the pull sequence ends when the
	// client stops.
	go func() {
		for b := range client.Messages(ctx) {
			logger.Info("bulletin received",
				"id", b.ID,
				"ttaaii", b.TTAAII,
				"cccc", b.CCCC,
				"awipsid", b.AwipsID,
				"delay_seconds", b.DelaySeconds,
			)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	client.Stop("service shutdown")
	if relay != nil {
		if err := relay.Close(); err != nil {
			logger.Error("kafka relay close error", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
