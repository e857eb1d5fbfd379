package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/services/kitchen"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/services/order"
	"restaurant-pos/internal/storage"
	"restaurant-pos/internal/storage/memory"
	"restaurant-pos/internal/storage/postgres"
)

const (
	modeOrderService           = "order-service"
	modeNotificationSubscriber = "notification-subscriber"
	modeKitchenDisplay         = "kitchen-display"
)

// orderStore is what a storage driver provides to the order service
type orderStore interface {
	storage.OrderRepository
	storage.KitchenStore
	storage.MenuCatalog
}

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (order-service, notification-subscriber, kitchen-display)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		port       = flag.Int("port", 0, "HTTP port (overrides server.port)")
		feedURL    = flag.String("feed-url", "", "Kitchen feed URL (overrides kitchen.feed_url)")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *feedURL != "" {
		cfg.Kitchen.FeedURL = *feedURL
	}

	log := logger.NewWithWriter(*mode, os.Stdout, cfg.Log.Level)
	requestID := logger.GenerateRequestID()

	log.Info("service_starting", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":   *mode,
		"config": *configPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case modeOrderService:
		err = runOrderService(ctx, cfg, log)
	case modeNotificationSubscriber:
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	case modeKitchenDisplay:
		err = runKitchenDisplay(ctx, cfg, log)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}
	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService serves the order API and the kitchen feed on one router
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	rate, err := cfg.ServiceChargeRate()
	if err != nil {
		return err
	}

	store, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier order.Notifier
	if cfg.RabbitMQ.Enabled {
		conn, err := messaging.New(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()

		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)
		notifier = messaging.NewPublisher(conn, log)
	}

	service := order.NewService(store, store, notifier, log, rate, cfg.Tenant.ID)
	feed := kitchen.NewFeed(store, log, cfg.Kitchen.MaxAgeHours)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	order.NewHandler(service, log).RegisterRoutes(r)
	kitchen.NewHandler(feed, log).RegisterRoutes(r)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port":                cfg.Server.Port,
			"storage_driver":      cfg.Storage.Driver,
			"service_charge_rate": rate.String(),
			"events_enabled":      cfg.RabbitMQ.Enabled,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStorage builds the repository selected by storage.driver
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (orderStore, func(), error) {
	requestID := logger.GenerateRequestID()

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.New()
		if cfg.Storage.MenuSeed != "" {
			n, err := store.LoadMenuSeed(cfg.Storage.MenuSeed)
			if err != nil {
				return nil, nil, err
			}
			log.Info("menu_seeded", "Loaded menu seed", requestID, map[string]interface{}{
				"items": n,
				"path":  cfg.Storage.MenuSeed,
			})
		}
		log.Warn("storage_memory", "Using in-memory storage; orders are lost on restart", requestID, nil)
		return store, func() {}, nil

	default:
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

		if err := db.RunMigrations(ctx, cfg.Database.Migrations); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return postgres.New(db), db.Close, nil
	}
}

// runNotificationSubscriber prints status-change events as they arrive
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	hostname, _ := os.Hostname()
	consumer := messaging.NewConsumer(conn, log, messaging.QueueNotifications, "notification-subscriber-"+hostname, prefetch)
	return notification.NewSubscriber(consumer, log).Start(ctx)
}

// runKitchenDisplay polls the kitchen feed until shutdown
func runKitchenDisplay(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	return kitchen.NewDisplay(cfg.Kitchen.FeedURL, cfg.Kitchen.PollInterval, nil, log).Run(ctx)
}
