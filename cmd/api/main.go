package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-optikick/internal/config"
	"backend-optikick/internal/db"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

var (
	mainDepsProvider = defaultDeps
	mainRunner       = realMain
)

func main() {
	mainRunner(mainDepsProvider())
}

// resources are the long-lived connections a server run owns. Nil members
// are allowed: the API degrades to single-instance mode without redis.
type resources struct {
	pg     *pgxpool.Pool
	redis  *redis.Client
	logger *log.Logger
}

func (r resources) close() {
	if r.pg != nil {
		r.pg.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(level string) *log.Logger
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	migrate         func(context.Context, db.Querier) error
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, resources, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		newLogger:       logging.New,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		migrate:         db.Migrate,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	res := resources{logger: deps.newLogger(cfg.LogLevel)}

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		res.logger.Error().Err(err).Msg("postgres connection failed")
	} else {
		res.pg = pg
		if cfg.AutoMigrate {
			if err := deps.migrate(context.Background(), pg); err != nil {
				res.logger.Error().Err(err).Msg("schema migration failed")
			}
		}
	}
	res.redis = deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, res, signals, nil); err != nil {
		res.logger.Error().Err(err).Msg("server exited with error")
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run serves until a signal arrives, ctx ends or the listener stops, then
// drains in-flight requests and releases res.
func Run(ctx context.Context, cfg config.Config, res resources, signals <-chan os.Signal, listen ListenFunc) error {
	logger := logging.OrDiscard(res.logger)
	srv := server.NewServer(cfg, res.pg, res.redis, logger)
	defer srv.Stream.Close()

	if listen == nil {
		listen = defaultListen
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	logger.Info().Str("addr", cfg.ServerPort).Msg("server starting")

	select {
	case sig := <-signals:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	res.close()
	logger.Info().Msg("server stopped")
	return nil
}
