// Package allocate реализует HTTP-обработчик выдачи оружия сотруднику.
//
// Успешная валидация не гарантирует выдачу: при гонке запрос получает 409,
// состояние при этом не меняется, и запрос можно повторить.
package allocate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/armory-tracker/internal/api/middlewarectx"
	"github.com/magabrotheeeer/armory-tracker/internal/api/response"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Handler отвечает за обработку запросов на выдачу оружия.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики выдачи оружия.
type Service interface {
	Allocate(ctx context.Context, requesterUID string, req models.DummyAllocation) (string, error)
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
// @Summary Выдать оружие
// @Description Выдает оружие сотруднику после проверки правил: администраторам
// @Description оружие не выдается, оружие должно быть доступно, набор типов на руках
// @Description должен оставаться допустимым.
// @Tags Allocations
// @Accept  json
// @Produce  json
// @Param request body models.DummyAllocation true "Запрос на выдачу"
// @Success 200 {object} map[string]any "Оружие выдано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Оружие или сотрудник не найдены"
// @Failure 409 {object} response.ErrorResponse "Состояние изменилось, повторите запрос"
// @Failure 422 {object} response.ErrorResponse "Запрос отклонён правилами выдачи"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /allocations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.allocation.allocate"

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

	var req models.DummyAllocation
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Allocate(r.Context(), requesterUID, req)
	if err != nil {
		log.Error("failed to allocate weapon", sl.Err(err))
		w.WriteHeader(response.DomainStatus(err))
		render.JSON(w, r, response.DomainError(err))
		return
	}

	log.Info("weapon allocated", slog.String("allocation_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"allocation_id": id,
	}))
}
