package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xmtea/whatsapp-bot/internal/config"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kafka"
	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/notification"
	"github.com/xmtea/whatsapp-bot/internal/whatsapp"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and <env>.yaml")
	envName := flag.String("env", os.Getenv("BOT_APP__ENV"), "config environment overlay")
	flag.Parse()

	cfg, err := config.Load(*configDir, *envName)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.Init(logging.Options{
		Service:  "notifier",
		FilePath: cfg.App.LogFile,
		Level:    cfg.App.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.ConsumerGroup,
	)

	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:       cfg.WhatsApp.APIBaseURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		Timeout:       cfg.WhatsApp.Timeout,
	}, nil)
	handler := notification.NewHandler(sender)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup)

	err = consumer.Consume(ctx, handler.HandleEvent)
	consumer.Close()
	if err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	log.Info("shutting down")
}
