// Package armory предоставляет маршруты HTTP-сервиса оружейного учёта.
package armory

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	httpSwagger "github.com/swaggo/http-swagger"

	allocationallocate "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/allocation/allocate"
	allocationlist "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/allocation/list"
	allocationreturn "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/allocation/returnweapon"
	"github.com/magabrotheeeer/armory-tracker/internal/api/handlers/auth/login"
	"github.com/magabrotheeeer/armory-tracker/internal/api/handlers/auth/register"
	"github.com/magabrotheeeer/armory-tracker/internal/api/handlers/health"
	notificationslist "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/notifications/list"
	"github.com/magabrotheeeer/armory-tracker/internal/api/handlers/stats"
	weaponcreate "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/weapon/create"
	weaponlist "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/weapon/list"
	weaponread "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/weapon/read"
	weaponremove "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/weapon/remove"
	weaponupdate "github.com/magabrotheeeer/armory-tracker/internal/api/handlers/weapon/update"
	"github.com/magabrotheeeer/armory-tracker/internal/api/middlewarectx"
	"github.com/magabrotheeeer/armory-tracker/internal/cache"
	allocationservice "github.com/magabrotheeeer/armory-tracker/internal/services/allocation"
	authservice "github.com/magabrotheeeer/armory-tracker/internal/services/auth"
	overdueservice "github.com/magabrotheeeer/armory-tracker/internal/services/overdue"
	weaponservice "github.com/magabrotheeeer/armory-tracker/internal/services/weapon"
	"github.com/magabrotheeeer/armory-tracker/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authSvc *authservice.Service,
	weaponSvc *weaponservice.Service,
	allocationSvc *allocationservice.Service,
	overdueSvc *overdueservice.Service,
	db *repository.Storage, conn *amqp.Connection, cacheRedis *cache.Cache) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authSvc).ServeHTTP)
		r.Post("/login", login.New(logger, authSvc).ServeHTTP)
		r.Get("/health", health.New(logger, db, conn, cacheRedis).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, authSvc))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/weapons", weaponlist.New(logger, weaponSvc).ServeHTTP)
			r.Get("/weapons/{id}", weaponread.New(logger, weaponSvc).ServeHTTP)

			r.Post("/allocations", allocationallocate.New(logger, allocationSvc).ServeHTTP)
			r.Post("/allocations/{id}/return", allocationreturn.New(logger, allocationSvc).ServeHTTP)
			r.Get("/allocations", allocationlist.New(logger, allocationSvc).ServeHTTP)

			r.Get("/notifications", notificationslist.New(logger, overdueSvc).ServeHTTP)
			r.Get("/stats", stats.New(logger, allocationSvc).ServeHTTP)

			// Управление инвентарём доступно только администратору
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(logger))
				r.Post("/weapons", weaponcreate.New(logger, weaponSvc).ServeHTTP)
				r.Put("/weapons/{id}", weaponupdate.New(logger, weaponSvc).ServeHTTP)
				r.Delete("/weapons/{id}", weaponremove.New(logger, weaponSvc).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
