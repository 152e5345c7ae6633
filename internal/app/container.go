package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	_ "github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/migrations"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/scheduler"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/services"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/subscribers"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/cache"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
	"github.com/fouadkhalied/task-mangment-system/pkg/config"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// Transport names reported by TransportName.
const (
	TransportRabbitMQ  = "rabbitmq"
	TransportInProcess = "in-process"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories
	TaskRepo       task.Repository
	DeadLetterRepo deadletter.Repository

	// Metrics
	CacheMetrics     *observability.CacheMetrics
	MessagingMetrics *observability.MessagingMetrics

	// Cache
	Cache *cache.TaskCache

	// Transport is what the publisher sends through: a breaker-wrapped
	// RabbitMQ publisher, or the in-process bus in local mode.
	Transport     eventbus.Publisher
	TransportName string
	Breaker       *eventbus.BreakerPublisher
	Bus           *eventbus.InProcessEventBus

	// Publisher
	Publisher *messaging.EventPublisher

	// Application services
	TaskService       *services.TaskService
	Sweeper           *services.OverdueSweeper
	DeadLetterCleanup *services.DeadLetterCleanup

	// Consumers
	EventProcessor         *subscribers.TaskEventProcessor
	NotificationSubscriber *subscribers.NotificationSubscriber
	AnalyticsSubscriber    *subscribers.AnalyticsSubscriber
	DeadLetterSubscriber   *subscribers.DeadLetterSubscriber

	Health *observability.HealthRegistry
}

// NewContainer wires every dependency from cfg. An empty RabbitMQ URL selects
// the in-process bus; in development an unreachable broker does too.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config:           cfg,
		Logger:           logger,
		CacheMetrics:     observability.NewCacheMetrics(logger),
		MessagingMetrics: observability.NewMessagingMetrics(logger),
	}

	if err := c.initDatabase(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initCache(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.initConsumers()
	if err := c.initTransport(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initServices(); err != nil {
		c.Close()
		return nil, err
	}
	c.initHealth()

	logger.Info("container initialized",
		"database", c.DBDriver,
		"transport", c.TransportName,
	)
	return c, nil
}

// DatabaseConfig maps the application config onto the connection config.
func DatabaseConfig(cfg *config.Config) database.Config {
	// Validate has already rejected unknown driver names.
	driver, _ := database.ParseDriver(cfg.DatabaseDriver)
	return database.Config{
		Driver:     driver,
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}
}

func (c *Container) initDatabase(ctx context.Context) error {
	dbCfg := DatabaseConfig(c.Config)
	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Logger.Info("connected to database", "driver", c.DBDriver)

	if err := migrations.Run(ctx, conn, dbCfg, c.Logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	factory := NewRepositoryFactory(conn)
	if c.TaskRepo, err = factory.TaskRepository(); err != nil {
		return err
	}
	if c.DeadLetterRepo, err = factory.DeadLetterRepository(); err != nil {
		return err
	}
	return nil
}

// initCache connects to Redis. An unreachable server is only logged: the
// cache fails open and recovers on its own once Redis is back.
func (c *Container) initCache(ctx context.Context) error {
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	c.RedisClient = redis.NewClient(opt)
	if err := c.RedisClient.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Redis not available, reads will go to the database", "error", err)
	} else {
		c.Logger.Info("connected to Redis")
	}

	c.Cache = cache.NewTaskCache(c.RedisClient, cache.TTLConfig{
		Task:  c.Config.CacheTaskTTL,
		List:  c.Config.CacheListTTL,
		Count: c.Config.CacheCountTTL,
		User:  c.Config.CacheUserTTL,
	}, c.CacheMetrics, c.Logger)
	return nil
}

func (c *Container) initConsumers() {
	c.EventProcessor = subscribers.NewTaskEventProcessor(c.MessagingMetrics, c.Logger)
	c.NotificationSubscriber = subscribers.NewNotificationSubscriber(nil, c.MessagingMetrics, c.Logger)
	c.AnalyticsSubscriber = subscribers.NewAnalyticsSubscriber(c.MessagingMetrics, c.Logger)
	c.DeadLetterSubscriber = subscribers.NewDeadLetterSubscriber(c.DeadLetterRepo, c.MessagingMetrics, c.Logger)
}

// Consumers returns every subscriber of the pipeline.
func (c *Container) Consumers() []eventbus.EventConsumer {
	return []eventbus.EventConsumer{
		c.EventProcessor,
		c.NotificationSubscriber,
		c.AnalyticsSubscriber,
		c.DeadLetterSubscriber,
	}
}

func (c *Container) initTransport() error {
	if c.Config.RabbitMQURL == "" {
		c.useInProcessBus()
		return nil
	}

	publisher, err := eventbus.NewRabbitMQPublisher(eventbus.RabbitMQConfig{
		URL:      c.Config.RabbitMQURL,
		Exchange: eventbus.ExchangeName,
		Channels: messaging.Channels(),
		Logger:   c.Logger,
	})
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
		c.useInProcessBus()
		return nil
	}

	c.Breaker = eventbus.NewBreakerPublisher(publisher, eventbus.BreakerConfig{
		Name:             "rabbitmq",
		FailureThreshold: uint32(c.Config.BreakerFailureThreshold),
		OpenTimeout:      c.Config.BreakerOpenTimeout,
		OnStateChange: func(from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				c.Logger.Error("event transport circuit opened", "from", from.String())
			}
		},
	}, c.Logger)
	c.Transport = c.Breaker
	c.TransportName = TransportRabbitMQ
	return nil
}

func (c *Container) useInProcessBus() {
	c.Bus = eventbus.NewInProcessEventBus(c.Logger)
	for _, consumer := range c.Consumers() {
		c.Bus.RegisterConsumer(consumer)
	}
	c.Transport = c.Bus
	c.TransportName = TransportInProcess
}

func (c *Container) initServices() error {
	c.Publisher = messaging.NewEventPublisher(c.Transport, c.MessagingMetrics, messaging.PublisherConfig{
		QueueSize:   c.Config.PublisherQueueSize,
		SendTimeout: c.Config.PublisherTimeout,
	}, c.Logger)

	c.TaskService = services.NewTaskService(c.TaskRepo, c.Cache, c.Publisher, c.Logger,
		services.WithTransactions(database.NewTransactor(c.DBConn)))

	overlap, err := scheduler.ParseOverlapPolicy(c.Config.OverdueSweepOverlap)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	c.Sweeper = services.NewOverdueSweeper(c.TaskService, services.SweeperConfig{
		Interval: c.Config.OverdueSweepInterval,
		Overlap:  overlap,
	}, c.Logger)

	c.DeadLetterCleanup = services.NewDeadLetterCleanup(c.DeadLetterRepo, services.CleanupConfig{
		Retention: c.Config.DeadLetterRetention(),
		Interval:  c.Config.DeadLetterCleanupInterval,
	}, c.Logger)
	return nil
}

func (c *Container) initHealth() {
	c.Health = observability.NewHealthRegistry()
	c.Health.Register("database", observability.DatabaseHealthChecker(c.DBConn.Ping))
	c.Health.Register("cache", observability.CacheHealthChecker(c.Cache.Ping))
	c.Health.Register("messaging", observability.TransportHealthChecker(c.Publisher.Ping))
}

// BreakerState reports the transport circuit state, or "none" without a breaker.
func (c *Container) BreakerState() string {
	if c.Breaker == nil {
		return "none"
	}
	return c.Breaker.State()
}

// Exchange returns the broker exchange, or "" for the in-process bus.
func (c *Container) Exchange() string {
	if c.TransportName == TransportRabbitMQ {
		return eventbus.ExchangeName
	}
	return ""
}

// NewRabbitMQConsumer connects a consumer with every pipeline subscriber
// registered.
func (c *Container) NewRabbitMQConsumer() (*eventbus.RabbitMQConsumer, error) {
	registry := eventbus.NewConsumerRegistry(c.Logger)
	for _, consumer := range c.Consumers() {
		registry.Register(consumer)
	}
	return eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:      c.Config.RabbitMQURL,
		Exchange: eventbus.ExchangeName,
		Logger:   c.Logger,
	}, registry)
}

// StartBackgroundJobs starts the overdue sweeper, when enabled, and the
// dead-letter cleanup. Both stop on Close or when ctx ends.
func (c *Container) StartBackgroundJobs(ctx context.Context) error {
	if c.Config.OverdueSweepEnabled {
		if err := c.Sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start overdue sweeper: %w", err)
		}
	} else {
		c.Logger.Info("overdue sweep disabled")
	}
	if err := c.DeadLetterCleanup.Start(ctx); err != nil {
		return fmt.Errorf("start dead-letter cleanup: %w", err)
	}
	return nil
}

// Close stops background jobs, drains the publisher and releases connections.
func (c *Container) Close() {
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
	if c.DeadLetterCleanup != nil {
		c.DeadLetterCleanup.Stop()
	}

	// Closing the publisher drains its queue and closes the transport.
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	} else if c.Transport != nil {
		if err := c.Transport.Close(); err != nil {
			c.Logger.Warn("error closing event transport", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
