// Package list реализует HTTP-обработчик уведомлений о сроках выдач.
//
// Классы считаются на момент запроса, необязательный параметр now
// позволяет пересчитать их на заданное время.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/armory-tracker/internal/api/middlewarectx"
	"github.com/magabrotheeeer/armory-tracker/internal/api/response"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Handler отвечает за обработку запросов уведомлений о сроках.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс монитора сроков выдач.
type Service interface {
	Notifications(ctx context.Context, userUID string, now time.Time) ([]*models.OverdueNotification, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Уведомления о сроках выдач
// @Description Возвращает предупреждения и просрочки по активным выдачам:
// @Description администратору — по всем, сотруднику — по своим.
// @Tags Notifications
// @Produce  json
// @Param now query string false "Момент расчёта в формате RFC3339 (по умолчанию текущее время)"
// @Success 200 {object} map[string]any "Список уведомлений"
// @Failure 400 {object} response.ErrorResponse "Некорректный параметр now"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /notifications [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	scope := userUID
	if role == models.RoleAdmin {
		scope = ""
	}

	var now time.Time
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Error("failed to parse now parameter", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("parameter now must be in RFC3339 format"))
			return
		}
		now = parsed
	}

	result, err := h.service.Notifications(r.Context(), scope, now)
	if err != nil {
		log.Error("failed to build notifications", sl.Err(err))
		w.WriteHeader(response.DomainStatus(err))
		render.JSON(w, r, response.DomainError(err))
		return
	}

	log.Info("notifications built", slog.Int("count", len(result)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"notifications": result,
		"count":         len(result),
	}))
}
