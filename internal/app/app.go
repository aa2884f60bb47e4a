// Package app builds the component graph shared by the API service, the
// worker service and i18nctl from one loaded configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cuongbtq/content-i18n/internal/api/handler"
	"github.com/cuongbtq/content-i18n/internal/applier"
	"github.com/cuongbtq/content-i18n/internal/config"
	"github.com/cuongbtq/content-i18n/internal/detector"
	"github.com/cuongbtq/content-i18n/internal/locale"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
	"github.com/cuongbtq/content-i18n/internal/provider"
	"github.com/cuongbtq/content-i18n/internal/provider/ai"
	"github.com/cuongbtq/content-i18n/internal/provider/mt"
	"github.com/cuongbtq/content-i18n/internal/queue"
	"github.com/cuongbtq/content-i18n/internal/scanner"
	"github.com/cuongbtq/content-i18n/internal/storage/postgres"
	"github.com/cuongbtq/content-i18n/shared/logger"
	"github.com/cuongbtq/content-i18n/shared/postgresql"
	"github.com/cuongbtq/content-i18n/shared/rabbitmq"
	sharedredis "github.com/cuongbtq/content-i18n/shared/redis"
)

// App holds the wired components. Rabbit and Redis are nil when the
// corresponding section of the config is empty.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB     *postgresql.Client
	Rabbit *rabbitmq.Client
	Redis  *goredis.Client

	Store     *postgres.Store
	Registry  *scanner.Registry
	Languages *locale.Languages
	Resolver  *locale.Resolver
	Applier   *applier.Applier
	Queue     *queue.Manager
	Pipeline  *pipeline.Pipeline
	Provider  *provider.Provider
	Notifier  pipeline.Notifier
}

// New connects to the configured backends and wires every component.
// On error, connections opened so far are closed.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (a *App, err error) {
	a = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	registry, err := scanner.RegistryFromConfig(cfg.ContentTypes)
	if err != nil {
		return nil, fmt.Errorf("invalid content types: %w", err)
	}
	a.Registry = registry

	a.DB, err = InitPostgreSQL(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("Database connection established")

	if cfg.RabbitMQ.Enabled() {
		a.Rabbit, err = InitRabbitMQ(&cfg.RabbitMQ, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		a.Notifier = pipeline.NewRabbitNotifier(a.Rabbit)
		log.Info("RabbitMQ connection established")
	} else {
		a.Notifier = pipeline.NopNotifier{}
		log.Warn("RabbitMQ is not configured, workers rely on polling")
	}

	var lock pipeline.Locker = pipeline.NewLocalLock()
	if cfg.Redis.URL != "" {
		a.Redis, err = InitRedis(ctx, &cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		lock = pipeline.NewRedisLock(a.Redis, cfg.Redis.LockKey, cfg.Redis.LockTTL, log.With(slog.String("component", "sync-lock")))
		log.Info("Redis connection established")
	}

	a.Store = postgres.New(a.DB, log.With(slog.String("component", "store")))
	a.Languages = locale.NewLanguages(a.Store, cfg.Locale.LanguageCacheTTL)
	a.Resolver = locale.NewResolver(a.Languages, locale.Config{
		CookieName:     cfg.Locale.CookieName,
		FallbackLocale: cfg.Locale.FallbackLocale,
		BaseURL:        cfg.Locale.BaseURL,
	}, log.With(slog.String("component", "locale")))
	a.Applier = applier.New(a.Store, a.Languages, log.With(slog.String("component", "applier")))

	a.Queue = queue.NewManager(a.Store, queue.Policy{
		CreateJobsForNew:     cfg.Sync.JobsForNew(),
		CreateJobsForChanged: cfg.Sync.JobsForChanged(),
		MaxAttempts:          cfg.Worker.MaxAttempts,
	}, log.With(slog.String("component", "queue")))

	a.Pipeline = pipeline.New(pipeline.Deps{
		Scanner:  scanner.New(registry, a.Store, log.With(slog.String("component", "scanner"))),
		Detector: detector.New(a.Store, a.Languages, log.With(slog.String("component", "detector"))),
		Queue:    a.Queue,
		Lock:     lock,
		Notifier: a.Notifier,
		Logger:   log.With(slog.String("component", "pipeline")),
	})

	a.Provider = InitProvider(&cfg.Translation, a.Store, log.With(slog.String("component", "provider")))
	return a, nil
}

// HealthChecks returns one health check per connected backend
func (a *App) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"postgres": a.DB.HealthCheck,
	}
	if a.Rabbit != nil {
		rabbit := a.Rabbit
		checks["rabbitmq"] = func(context.Context) error {
			if !rabbit.IsConnected() {
				return fmt.Errorf("rabbitmq connection is closed")
			}
			return nil
		}
	}
	if a.Redis != nil {
		checks["redis"] = sharedredis.Healthcheck(a.Redis)
	}
	return checks
}

// Close releases every open connection
func (a *App) Close() {
	if a.Rabbit != nil {
		if err := a.Rabbit.Close(); err != nil {
			a.Logger.Warn("Failed to close RabbitMQ client", slog.Any("error", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Failed to close Redis client", slog.Any("error", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("Failed to close database client", slog.Any("error", err))
		}
	}
}

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// InitPostgreSQL initializes the PostgreSQL database client
func InitPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// InitRabbitMQ initializes the RabbitMQ client
func InitRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// InitRedis connects the Redis client backing the sync lock
func InitRedis(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (*goredis.Client, error) {
	return sharedredis.Connect(ctx, sharedredis.Config{
		ConnectionURL:  cfg.URL,
		RetryAttempts:  cfg.RetryAttempts,
		RetryInterval:  cfg.RetryInterval,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)
}

// InitProvider builds the translation provider with both backends.
// Settings stored in the database override cfg at call time.
func InitProvider(cfg *config.TranslationConfig, store provider.SettingsStore, logger *slog.Logger) *provider.Provider {
	mtClient := mt.New(mt.Config{
		BaseURL: cfg.MT.BaseURL,
		Timeout: cfg.MT.Timeout,
	})
	aiClient := ai.New(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})

	return provider.New(provider.Options{
		Store:       store,
		Defaults:    provider.SettingsFromConfig(*cfg),
		SettingsTTL: cfg.ConfigTTL,
		MT:          provider.NewMTStrategy(mtClient, cfg.MaxInFlight),
		AI:          provider.NewAIStrategy(aiClient, cfg.MaxInFlight),
		BatchDelay:  cfg.BatchDelay,
		Logger:      logger,
	})
}
