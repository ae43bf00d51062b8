// Package read реализует HTTP-обработчик чтения карточки оружия по ID.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/armory-tracker/internal/api/response"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Handler отвечает за обработку запросов на чтение карточки оружия.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения оружия.
type Service interface {
	Read(ctx context.Context, id string) (*models.Weapon, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить оружие по ID
// @Description Возвращает карточку оружия по идентификатору.
// @Tags Weapons
// @Produce  json
// @Param id path string true "ID оружия"
// @Success 200 {object} map[string]any "Карточка оружия"
// @Failure 404 {object} response.ErrorResponse "Оружие не найдено"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /weapons/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.weapon.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if id == "" {
		log.Error("missing id in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing id in url"))
		return
	}

	result, err := h.service.Read(r.Context(), id)
	if err != nil {
		log.Error("failed to read weapon", sl.Err(err))
		w.WriteHeader(response.DomainStatus(err))
		render.JSON(w, r, response.DomainError(err))
		return
	}

	log.Info("weapon read", slog.String("id", id))
	render.JSON(w, r, response.OKWithData(result))
}
