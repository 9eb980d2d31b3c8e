package app

import (
	"context"
	"errors"
	"fmt"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/config"
	"outbound-router/internal/definitions"
	"outbound-router/internal/destination"
	"outbound-router/internal/expression"
	"outbound-router/internal/redis"
	"outbound-router/internal/routing"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	Collection   *routing.Collection
	Destinations *destination.Registry
	Evaluator    *expression.Evaluator
	RedisClient  *redis.Client
	Logger       logging.Logger
}

// New builds the routing collection described by the routes file. The
// collection is initialised but not started.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:    cfg,
		Evaluator: expression.NewEvaluator(cfg.ExpressionCacheTTL),
		Logger:    logging.GetGlobalLogger().WithFields(logging.Component("app")),
	}

	defaults := defaultsFrom(cfg)
	if cfg.Counter == "redis" {
		if err := app.initializeRedis(); err != nil {
			return nil, err
		}
		defaults.Counter = app.RedisClient.NewCounter("round-robin")
	}

	builder := definitions.NewBuilder(
		definitions.WithDefaults(defaults),
		definitions.WithEvaluator(app.Evaluator),
	)
	collection, err := builder.LoadAndBuild(cfg.RoutesFile)
	if err != nil {
		_ = app.closeRedis()
		return nil, fmt.Errorf("failed to build routers from %s: %w", cfg.RoutesFile, err)
	}
	app.Collection = collection
	app.Destinations = builder.Destinations()

	app.Logger.Info("Routing collection ready",
		logging.String("routes_file", cfg.RoutesFile),
		logging.Int("routers", len(collection.Routers())),
		logging.Int("destinations", len(app.Destinations.Names())),
	)
	return app, nil
}

func (app *App) initializeRedis() error {
	redisConfig, err := redis.ConfigFromURL(app.Config.RedisURL)
	if err != nil {
		return err
	}
	client, err := redis.NewClient(redisConfig)
	if err != nil {
		return err
	}
	app.RedisClient = client
	app.Logger.Info("Shared round-robin counter enabled", logging.String("redis", redisConfig.Address))
	return nil
}

func (app *App) closeRedis() error {
	if app.RedisClient == nil {
		return nil
	}
	return app.RedisClient.Close()
}

func defaultsFrom(cfg *config.Config) definitions.Defaults {
	return definitions.Defaults{
		MatchAll:          cfg.MatchAll,
		Correlation:       cfg.CorrelationMode(),
		Deterministic:     cfg.Deterministic,
		MaxConcurrency:    cfg.MaxConcurrency,
		RecipientCacheTTL: cfg.RecipientCacheTTL,
		CorrelatorTimeout: cfg.CorrelatorTimeout,
		RedisURL:          cfg.RedisURL,
		RabbitMQURL:       cfg.RabbitMQURL,
		KafkaBrokers:      cfg.KafkaBrokers,
		AWSRegion:         cfg.AWSRegion,
		GCPProjectID:      cfg.GCPProjectID,
	}
}

// Start starts every router and, through them, their destinations
func (app *App) Start(ctx context.Context) error {
	if err := app.Collection.Start(ctx); err != nil {
		return fmt.Errorf("failed to start routers: %w", err)
	}
	app.Logger.Info("Routers started")
	return nil
}

// Shutdown stops and disposes the routers, then disposes the destinations
// they shared
func (app *App) Shutdown(ctx context.Context) error {
	var errs []error
	if app.Collection.State() == routing.StateStarted {
		if err := app.Collection.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop routers: %w", err))
		}
	}
	if err := app.Collection.Dispose(); err != nil {
		errs = append(errs, fmt.Errorf("dispose routers: %w", err))
	}
	if err := destination.DisposeAll(app.Destinations.All()...); err != nil {
		errs = append(errs, fmt.Errorf("dispose destinations: %w", err))
	}
	if err := app.closeRedis(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	app.Evaluator.ClearCache()

	if len(errs) == 0 {
		app.Logger.Info("Routing engine stopped")
	}
	return errors.Join(errs...)
}
