// Package server wires configuration, storage and external clients into the
// HTTP API and runs it until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/config"
	"github.com/sanguetsu/ikebana/internal/server/httpapi"
	"github.com/sanguetsu/ikebana/internal/server/identity"
	"github.com/sanguetsu/ikebana/internal/server/mailer"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/notify"
	"github.com/sanguetsu/ikebana/internal/server/repositories/repomanager"
	"github.com/sanguetsu/ikebana/internal/server/services"
)

const (
	stateTTL        = 10 * time.Minute
	providerTimeout = 15 * time.Second
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := media.NewS3Store(ctx, c, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	mail, err := mailer.NewSMTPMailer(c, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var states identity.StateStore
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		states = identity.NewRedisStateStore(app.redis, stateTTL)
	}

	provider := identity.NewOIDCProvider(c.OAuthClientID, c.OAuthClientSecret, c.OAuthDiscoveryURL,
		c.OAuthRedirectURL, &http.Client{Timeout: providerTimeout})

	tokens := services.NewTokenIssuer(c)
	composer := notify.NewComposer(logger)

	accounts := services.NewAccountService(db, rm, tokens, composer, store, mail, logger)
	projects := services.NewProjectService(db, rm, composer, store, logger)
	ids := services.NewIdentityService(db, rm, tokens, provider, states, logger)

	app.server = httpapi.NewServer(c.HTTPAddr, logger, tokens, accounts, projects, ids)
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or the server fails, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
