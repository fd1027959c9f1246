package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func() error
	queueConsumers []func(context.Context) error
}

// storageSetup gathers what the chosen storage driver brings to the app.
type storageSetup struct {
	storage   BookStorage
	queue     Queuer
	consumers []func(context.Context) error
	cleanups  []func() error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, clock)

	setup, err := setupStorage(context.Background(), logger, config)
	if err != nil {
		_ = flusher()
		_ = logWriter.Close()
		return nil, err
	}

	ids := NewIDsHandler()
	bookService := NewBookService(logger, config, clock, ids, setup.storage, setup.queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		ids,
		bookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	router := apiService.SetupRoutes(httprouter.New(), apiService.NewMiddlewareMap())

	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	// stores are closed before the logs are flushed.
	cleanups := append(setup.cleanups, flusher, logWriter.Close)

	return &App{
		logger:         logger,
		config:         config,
		server:         srv,
		cleanups:       cleanups,
		queueConsumers: setup.consumers,
	}, nil
}

// setupStorage connects the primary store selected by the configuration. With the
// redis driver and the replica option, mutations are queued and mirrored into boltdb.
func setupStorage(ctx context.Context, logger *zap.Logger, config *Config) (*storageSetup, error) {
	setup := &storageSetup{}
	switch config.Storage.Driver {
	case StorageRedis:
		redisClient, err := GetRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		setup.storage = NewRedisBookStorage(logger, redisClient)
		setup.cleanups = append(setup.cleanups, redisClient.Close)

		if config.BoltDB.Replica {
			if err = setupReplica(logger, config, redisClient, setup); err != nil {
				_ = redisClient.Close()
				return nil, err
			}
		}

	case StorageBoltDB:
		boltDBClient, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to boltDB server: %s", err)
		}
		setup.storage = NewBoltBookStorage(logger, &config.BoltDB, boltDBClient)
		setup.cleanups = append(setup.cleanups, boltDBClient.Close)

	case StoragePostgres:
		pool, err := GetPostgresPool(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %s", err)
		}
		if config.Postgres.RunMigrations {
			if err = RunPostgresMigrations(pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
			}
		}
		setup.storage = NewPostgresBookStorage(logger, pool)
		setup.cleanups = append(setup.cleanups, func() error {
			pool.Close()
			return nil
		})

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	logger.Info("storage ready", zap.String("storage.driver", config.Storage.Driver), zap.Bool("storage.replica", config.BoltDB.Replica))
	return setup, nil
}

func setupReplica(logger *zap.Logger, config *Config, redisClient *redis.Client, setup *storageSetup) error {
	boltDBClient, err := GetBoltDBClient(config)
	if err != nil {
		return fmt.Errorf("failed to connect to boltDB server: %s", err)
	}
	redisQueue := NewRedisQueue(redisClient)
	consumer := NewReplicaConsumer(logger, redisQueue, NewBoltBookStorage(logger, &config.BoltDB, boltDBClient))

	setup.queue = redisQueue
	setup.consumers = append(setup.consumers, func(ctx context.Context) error {
		return consumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	})
	setup.cleanups = append(setup.cleanups, boltDBClient.Close)
	return nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintln(os.Stderr, "error during app cleanup: ", err)
		}
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("storage.driver", app.config.Storage.Driver),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// We proceed with a brutal shutdown if the graceful did not complete successfully.
// It returns `nil` so the errorgroup only catches the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
// A consumer returning after the group is cancelled is not a failure.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				err := consume(gCtx)
				if gCtx.Err() != nil {
					return nil
				}
				return err
			})
		}
		return nil
	}
}
