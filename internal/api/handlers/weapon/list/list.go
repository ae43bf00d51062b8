// Package list реализует HTTP-обработчик списка оружия с фильтрами
// по статусу и типу и пагинацией.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/armory-tracker/internal/api/response"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Handler отвечает за обработку запросов списка оружия.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка оружия.
type Service interface {
	List(ctx context.Context, status, weaponType string, limit, offset int) ([]*models.Weapon, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список оружия
// @Description Возвращает список оружия с фильтрами по статусу и типу.
// @Tags Weapons
// @Produce  json
// @Param status query string false "Фильтр по статусу (available, allocated, maintenance)"
// @Param type query string false "Фильтр по типу (pistol, shotgun, rifle)"
// @Param limit query int false "Размер страницы (по умолчанию 20)"
// @Param offset query int false "Смещение (по умолчанию 0)"
// @Success 200 {object} map[string]any "Список оружия"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /weapons [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.weapon.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	status := r.URL.Query().Get("status")
	weaponType := r.URL.Query().Get("type")

	result, err := h.service.List(r.Context(), status, weaponType, limit, offset)
	if err != nil {
		log.Error("failed to list weapons", sl.Err(err))
		w.WriteHeader(response.DomainStatus(err))
		render.JSON(w, r, response.DomainError(err))
		return
	}

	log.Info("weapons listed", slog.Int("count", len(result)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"weapons": result,
		"count":   len(result),
	}))
}
