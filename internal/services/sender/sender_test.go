package sender

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/armory-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

type MockTransport struct{ mock.Mock }

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	return m.Called().String(0)
}

type MockSMTPClient struct{ mock.Mock }

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

type captureWriter struct {
	bytes.Buffer
}

func (w *captureWriter) Close() error { return nil }

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testNotification(kind models.OverdueKind) []byte {
	body, _ := json.Marshal(models.OverdueNotification{
		AllocationID: "a1",
		SerialNumber: "SN-001",
		WeaponModel:  "MP-443",
		Username:     "guard",
		Email:        "guard@example.com",
		AllocatedAt:  time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC),
		Kind:         kind,
	})
	return body
}

func TestSendOverdueNotification(t *testing.T) {
	tests := []struct {
		name        string
		kind        models.OverdueKind
		wantSubject string
	}{
		{name: "overdue", kind: models.OverdueKindOverdue, wantSubject: "Просрочен возврат оружия"},
		{name: "warning", kind: models.OverdueKindWarning, wantSubject: "Приближается срок возврата оружия"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &captureWriter{}
			client := new(MockSMTPClient)
			client.On("Mail", "armory@example.com").Return(nil).Once()
			client.On("Rcpt", "guard@example.com").Return(nil).Once()
			client.On("Data").Return(writer, nil).Once()
			client.On("Quit").Return(nil).Once()
			client.On("Close").Return(nil)

			transport := new(MockTransport)
			transport.On("Connect").Return(client, nil).Once()
			transport.On("GetSMTPUser").Return("armory@example.com")

			svc := NewService(transport, newNoopLogger())

			err := svc.SendOverdueNotification(testNotification(tt.kind))
			require.NoError(t, err)

			msg := writer.String()
			assert.Contains(t, msg, "Subject: "+tt.wantSubject)
			assert.Contains(t, msg, "To: guard@example.com")
			assert.Contains(t, msg, "SN-001")
			client.AssertExpectations(t)
		})
	}
}

func TestSendOverdueNotification_BadPayload(t *testing.T) {
	transport := new(MockTransport)
	svc := NewService(transport, newNoopLogger())

	err := svc.SendOverdueNotification([]byte("{broken"))
	assert.Error(t, err)
	transport.AssertNotCalled(t, "Connect")
}

func TestSendOverdueNotification_ConnectFails(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Connect").Return(nil, assert.AnError).Once()
	transport.On("GetSMTPUser").Return("armory@example.com")

	svc := NewService(transport, newNoopLogger())

	err := svc.SendOverdueNotification(testNotification(models.OverdueKindOverdue))
	assert.Error(t, err)
}
