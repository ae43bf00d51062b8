package returnweapon

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/armory-tracker/internal/api/middlewarectx"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// MockService реализует интерфейс returnweapon.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Return(ctx context.Context, requesterUID, role, allocationID string, req models.DummyReturn) error {
	args := m.Called(ctx, requesterUID, role, allocationID, req)
	return args.Error(0)
}

func TestReturnHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		requestBody    interface{}
		userUID        string
		role           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешный возврат на склад",
			requestBody: models.DummyReturn{Destination: "stock"},
			userUID:     "user123",
			role:        models.RoleUser,
			setupMock: func(m *MockService) {
				m.On("Return", mock.Anything, "user123", "user", "alloc-1", mock.AnythingOfType("models.DummyReturn")).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"allocation_id":"alloc-1"}}`,
		},
		{
			name:           "недопустимое назначение",
			requestBody:    models.DummyReturn{Destination: "garbage"},
			userUID:        "user123",
			role:           models.RoleUser,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Destination must be one of: stock maintenance"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			userUID:        "user123",
			role:           models.RoleUser,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"failed to decode request"}`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    models.DummyReturn{Destination: "stock"},
			userUID:        "",
			role:           "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "выдача другого сотрудника",
			requestBody: models.DummyReturn{Destination: "stock"},
			userUID:     "user123",
			role:        models.RoleUser,
			setupMock: func(m *MockService) {
				m.On("Return", mock.Anything, "user123", "user", "alloc-1", mock.AnythingOfType("models.DummyReturn")).
					Return(models.ErrNotOwner)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"allocation belongs to another user"}`,
		},
		{
			name:        "не указана причина обслуживания",
			requestBody: models.DummyReturn{Destination: "maintenance"},
			userUID:     "user123",
			role:        models.RoleUser,
			setupMock: func(m *MockService) {
				m.On("Return", mock.Anything, "user123", "user", "alloc-1", mock.AnythingOfType("models.DummyReturn")).
					Return(models.ErrReasonRequired)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"maintenance reason is required"}`,
		},
		{
			name:        "выдача уже закрыта",
			requestBody: models.DummyReturn{Destination: "stock"},
			userUID:     "user123",
			role:        models.RoleUser,
			setupMock: func(m *MockService) {
				m.On("Return", mock.Anything, "user123", "user", "alloc-1", mock.AnythingOfType("models.DummyReturn")).
					Return(models.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations/alloc-1/return", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "alloc-1")

			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
			if tt.role != "" {
				ctx = context.WithValue(ctx, middlewarectx.Role, tt.role)
			}
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
