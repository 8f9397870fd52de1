package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"hotelier/internal/app/idempotency"
	"hotelier/internal/app/outbox"
	"hotelier/internal/app/reservations"
	"hotelier/internal/app/sweeper"
	"hotelier/internal/domain/pricing"
	"hotelier/internal/domain/reservation"
	"hotelier/internal/domain/resource"
	"hotelier/internal/infra/broker/kafka"
	"hotelier/internal/infra/config"
	mongodb "hotelier/internal/infra/db/mongo"
	redisdb "hotelier/internal/infra/db/redis"
	ginserver "hotelier/internal/infra/http/gin"
	"hotelier/internal/infra/obs"
	"hotelier/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.Currency = "KES"
		cfg.TaxRateBps = 1600
		cfg.ServiceRateBps = 1000
		cfg.SweepInterval = sweeper.DefaultInterval
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app := buildApplication(ctx, cfg, logger)
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := getenv("RESOURCE_FIXTURES", "")
	if fixturesPath == "" {
		fixturesPath = defaultResourceFixturesPath()
	}
	if err := app.loadResourceFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("resource fixtures load failed", "error", err, "path", fixturesPath)
	}

	sweep := sweeper.New(app.service, cfg.SweepInterval, logger, nil)
	sweep.Start(ctx)
	defer sweep.Stop()

	if app.relay != nil {
		go app.relay.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers  ginserver.Handlers
	service   *reservations.Service
	resources resource.Repository
	relay     *kafka.Relay

	mongoClient *mongodb.Client
	producer    *kafka.Producer
}

// buildApplication wires repositories, the service and the HTTP handlers.
// Each backend degrades independently: no Mongo URI means in-memory storage,
// no Kafka brokers means events stay queued in the outbox, and an unreachable
// Redis falls back to in-memory idempotency.
func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) application {
	var (
		app              application
		reservationsRepo reservation.Repository
		resourcesRepo    resource.Repository
		box              outbox.Outbox
	)

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Error("mongo connection failed, using in-memory storage", "error", err)
		} else {
			app.mongoClient = client
			reservationsRepo = mongodb.NewReservationRepository(client.DB)
			resourcesRepo = mongodb.NewResourceRepository(client.DB)
			box = mongodb.NewOutboxStore(client.DB)
			logger.Info("mongo storage attached", "database", cfg.MongoDB)
		}
	}
	if reservationsRepo == nil {
		reservationsRepo = memory.NewReservationRepository()
		resourcesRepo = memory.NewResourceRepository()
		box = memory.NewOutbox()
		logger.Info("using in-memory storage")
	}

	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		client, err := redisdb.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisIdempotencyDB)
		if err != nil {
			logger.Warn("redis unreachable, using in-memory idempotency store", "error", err)
		} else {
			idemStore = redisdb.NewIdempotencyStore(client, cfg.IdempotencyTTL)
			logger.Info("redis idempotency store attached", "addr", cfg.RedisAddr)
		}
	}
	if idemStore == nil {
		idemStore = memory.NewIdempotencyStore()
	}

	service := reservations.NewService(reservations.Deps{
		Reservations: reservationsRepo,
		Resources:    resourcesRepo,
		Quoter: pricing.Quoter{
			TaxRateBps:     cfg.TaxRateBps,
			ServiceRateBps: cfg.ServiceRateBps,
			Currency:       cfg.Currency,
		},
		Outbox:  box,
		Encoder: outbox.JSONEventEncoder{},
		Logger:  logger,
	})

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix+kafka.EventsTopic, nil)
		if err != nil {
			logger.Error("kafka producer setup failed, events stay in outbox", "error", err)
		} else {
			app.producer = producer
			app.relay = &kafka.Relay{
				Box:      box,
				Producer: producer,
				Logger:   logger,
				Interval: cfg.OutboxPollInterval,
			}
			logger.Info("kafka relay attached", "brokers", cfg.KafkaBrokers)
		}
	}

	app.service = service
	app.resources = resourcesRepo
	app.handlers = ginserver.Handlers{
		Reservation: ginserver.ReservationHandler{
			Service:     service,
			Idempotency: idemStore,
			Logger:      logger,
		},
		Resource: ginserver.ResourceHandler{
			Service:   service,
			Resources: resourcesRepo,
			Logger:    logger,
		},
	}
	return app
}

func (a application) ready() error {
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.mongoClient.Ping(ctx)
	}
	return nil
}

func (a application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongoClient.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

type resourceFixture struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Capacity     int    `json:"capacity"`
	RateCents    int64  `json:"rate_cents"`
	ActivityName string `json:"activity_name"`
}

func (a application) loadResourceFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("resource fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("resource fixtures file empty", "path", path)
		return nil
	}

	var fixtures []resourceFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		res, err := resource.New(resource.CreateParams{
			ID:           fx.ID,
			Name:         fx.Name,
			Kind:         resource.Kind(fx.Kind),
			Capacity:     fx.Capacity,
			RateCents:    fx.RateCents,
			ActivityName: fx.ActivityName,
			Now:          now,
		})
		if err != nil {
			logger.Error("fixture invalid", "resource_id", fx.ID, "error", err)
			continue
		}
		if _, err := a.resources.ByID(ctx, res.ID); err == nil {
			continue
		}
		if err := a.resources.Save(ctx, res); err != nil {
			logger.Error("cannot store fixture resource", "resource_id", fx.ID, "error", err)
			continue
		}
		logger.Info("resource fixture imported", "resource_id", res.ID, "kind", res.Kind)
	}
	return nil
}

func defaultResourceFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "resources.json"),
		filepath.Join("cmd", "hotelier", "data", "resources.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
