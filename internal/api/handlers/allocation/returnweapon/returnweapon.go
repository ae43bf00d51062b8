// Package returnweapon реализует HTTP-обработчик возврата оружия.
package returnweapon

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/armory-tracker/internal/api/middlewarectx"
	"github.com/magabrotheeeer/armory-tracker/internal/api/response"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Handler отвечает за обработку запросов на возврат оружия.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики возврата оружия.
type Service interface {
	Return(ctx context.Context, requesterUID, role, allocationID string, req models.DummyReturn) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вернуть оружие
// @Description Закрывает выдачу и возвращает оружие на склад или в обслуживание.
// @Description Возврат в обслуживание требует причину. Сдать оружие может владелец
// @Description выдачи или администратор.
// @Tags Allocations
// @Accept  json
// @Produce  json
// @Param id path string true "ID выдачи"
// @Param request body models.DummyReturn true "Параметры возврата"
// @Success 200 {object} map[string]any "Оружие возвращено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Выдача принадлежит другому сотруднику"
// @Failure 404 {object} response.ErrorResponse "Активная выдача не найдена"
// @Failure 422 {object} response.ErrorResponse "Не указана причина обслуживания"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /allocations/{id}/return [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.allocation.returnweapon"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requesterUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || requesterUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	allocationID := chi.URLParam(r, "id")
	if allocationID == "" {
		log.Error("missing id in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing id in url"))
		return
	}

	var req models.DummyReturn
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.Return(r.Context(), requesterUID, role, allocationID, req); err != nil {
		log.Error("failed to return weapon", sl.Err(err))
		w.WriteHeader(response.DomainStatus(err))
		render.JSON(w, r, response.DomainError(err))
		return
	}

	log.Info("weapon returned", slog.String("allocation_id", allocationID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"allocation_id": allocationID,
	}))
}
