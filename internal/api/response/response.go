// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKResponse описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK").
// Поле Data — данные ответа (опционально, при успехе).
type OKResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("Error").
// Поле Error  — сообщение ошибки ответа.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) OKResponse {
	return OKResponse{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// DomainStatus подбирает HTTP-статус для доменной ошибки. Отказы валидации
// выдачи — 422: запрос корректен по форме, но отклонён правилами. Гонки —
// 409: состояние изменилось между проверкой и записью, запрос можно
// повторить. Недоступность хранилища — 503, а не отказ по правилам.
func DomainStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAdminNotAllowed),
		errors.Is(err, models.ErrWeaponNotAvailable),
		errors.Is(err, models.ErrInvalidTypeCombination),
		errors.Is(err, models.ErrTypeLimitReached),
		errors.Is(err, models.ErrReasonRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrWeaponInUse),
		errors.Is(err, models.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DomainError возвращает сообщение для доменной ошибки без внутренних деталей.
func DomainError(err error) ErrorResponse {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return Error("not found")
	case errors.Is(err, models.ErrNotOwner):
		return Error("allocation belongs to another user")
	case errors.Is(err, models.ErrAdminNotAllowed):
		return Error("admin is not allowed to hold weapons")
	case errors.Is(err, models.ErrWeaponNotAvailable):
		return Error("weapon is not available")
	case errors.Is(err, models.ErrInvalidTypeCombination):
		return Error("invalid weapon type combination")
	case errors.Is(err, models.ErrTypeLimitReached):
		return Error("weapon type limit reached")
	case errors.Is(err, models.ErrReasonRequired):
		return Error("maintenance reason is required")
	case errors.Is(err, models.ErrWeaponInUse):
		return Error("weapon is allocated")
	case errors.Is(err, models.ErrConcurrentModification):
		return Error("state changed, retry the request")
	case errors.Is(err, models.ErrStorageUnavailable):
		return Error("storage unavailable")
	default:
		return Error("internal error")
	}
}
