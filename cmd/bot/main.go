package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/xmtea/whatsapp-bot/internal/api"
	"github.com/xmtea/whatsapp-bot/internal/catalog"
	"github.com/xmtea/whatsapp-bot/internal/config"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kafka"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kv"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/repository"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/store"
	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/ordering"
	"github.com/xmtea/whatsapp-bot/internal/pricing"
	"github.com/xmtea/whatsapp-bot/internal/session"
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
		Service:  "bot",
		FilePath: cfg.App.LogFile,
		Level:    cfg.App.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting",
		"env", cfg.App.Env,
		"addr", cfg.App.HTTPAddr,
		"session_backend", cfg.Session.Backend,
		"orders_backend", cfg.Orders.Backend,
		"kafka", cfg.Kafka.Enabled,
	)

	hub := api.NewHub()
	defer hub.Close()

	publishers := []store.Publisher{hub}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publishers = append(publishers, producer)
		log.Info("publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	sessionKV, seenKV, closeKV, err := openKVStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	repo, eventStore, closeOrders, err := openOrderStore(ctx, cfg, publishers)
	if err != nil {
		return err
	}
	defer closeOrders()

	register := order.NewRegister(repo, eventStore, order.NewIDGenerator(cfg.Ordering.OrderIDPrefix, nil))

	svc := ordering.NewService(
		session.NewStore(sessionKV),
		newCatalog(cfg),
		register,
		pricing.NewEngine(cfg.Ordering.DeliveryFee),
		eventStore,
		ordering.Options{ETAMinutes: cfg.Ordering.ETAMinutes},
	)

	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:       cfg.WhatsApp.APIBaseURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		Timeout:       cfg.WhatsApp.Timeout,
	}, nil)
	if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
		log.Warn("whatsapp credentials missing, replies will fail to send")
	}

	server := &http.Server{
		Addr: cfg.App.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Bot:         svc,
			Orders:      register,
			Sender:      sender,
			Hub:         hub,
			VerifyToken: cfg.WhatsApp.VerifyToken,
			Seen:        seenKV,
			SeenTTL:     cfg.WhatsApp.DedupeTTL,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// openKVStores returns the session store and the webhook message id store,
// both on the session backend
func openKVStores(ctx context.Context, cfg config.Config) (kv.Store, kv.Store, func(), error) {
	if cfg.Session.Backend != config.BackendRedis {
		return kv.NewMemoryStore(), kv.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	sessions := kv.NewRedisStore(client, "session:", cfg.Session.TTL)
	seen := kv.NewRedisStore(client, "seen:", cfg.WhatsApp.DedupeTTL)
	return sessions, seen, func() { client.Close() }, nil
}

func openOrderStore(ctx context.Context, cfg config.Config, publishers []store.Publisher) (order.Repository, store.EventStoreInterface, func(), error) {
	switch cfg.Orders.Backend {
	case config.BackendPostgres:
		db, err := store.ConnectPostgres(cfg.Orders.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Orders.Migrate {
			if err := store.RunMigrations(db); err != nil {
				db.Close()
				return nil, nil, nil, err
			}
		}
		return repository.NewPostgresOrderRepository(db), store.NewPostgresEventStore(db, publishers...), closeDB(db), nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		repo := repository.NewDynamoOrderRepository(dynamodb.NewFromConfig(awsCfg), cfg.Orders.DynamoTable)
		return repo, store.NewEventStore(publishers...), func() {}, nil

	default:
		return order.NewMemoryRepository(), store.NewEventStore(publishers...), func() {}, nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() { db.Close() }
}

// newCatalog serves the remote menu when one is configured and the built-in
// menu otherwise
func newCatalog(cfg config.Config) catalog.Provider {
	if cfg.Catalog.MenuURL == "" {
		return catalog.NewStaticProvider(catalog.Fallback())
	}
	source := catalog.NewHTTPSource(catalog.HTTPSourceConfig{
		URL:              cfg.Catalog.MenuURL,
		Timeout:          cfg.Catalog.FetchTimeout,
		BreakerFailures:  cfg.Catalog.BreakerFailures,
		BreakerOpenDelay: cfg.Catalog.BreakerOpenDelay,
	}, nil)
	return catalog.NewMenuProvider(source, cfg.Catalog.CacheTTL)
}
