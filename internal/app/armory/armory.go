// Package armory собирает HTTP-сервис оружейного учёта: хранилище, кеш,
// брокер событий, сервисы и маршруты.
package armory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/armory-tracker/internal/cache"
	"github.com/magabrotheeeer/armory-tracker/internal/config"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/migrations"
	allocationservice "github.com/magabrotheeeer/armory-tracker/internal/services/allocation"
	authservice "github.com/magabrotheeeer/armory-tracker/internal/services/auth"
	overdueservice "github.com/magabrotheeeer/armory-tracker/internal/services/overdue"
	weaponservice "github.com/magabrotheeeer/armory-tracker/internal/services/weapon"
	"github.com/magabrotheeeer/armory-tracker/internal/storage/repository"
)

// App представляет HTTP-приложение оружейного учёта.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: подключает зависимости, применяет миграции
// и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	thresholds := overdueservice.Thresholds{
		OverdueAfter:  cfg.OverdueAfter,
		WarningWindow: cfg.WarningWindow,
	}

	authSvc := authservice.NewService(db, jwtMaker)
	weaponSvc := weaponservice.NewService(db, cacheRedis, logger)
	overdueSvc := overdueservice.NewService(db, thresholds, logger)
	allocationSvc := allocationservice.NewService(db, cacheRedis,
		rabbitmq.NewPublisher(ch), overdueSvc, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authSvc, weaponSvc, allocationSvc, overdueSvc, db, conn, cacheRedis)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", sl.Err(closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", sl.Err(closeErr))
		}
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", sl.Err(closeErr))
		}
		return err
	}
}
