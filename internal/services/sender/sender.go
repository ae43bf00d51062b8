// Package sender отправляет почтовые уведомления о сроках выдач.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Service потребляет уведомления из очереди и отправляет письма.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendOverdueNotification разбирает сообщение очереди и отправляет письмо
// сотруднику: предупреждение о приближении срока либо уведомление о просрочке.
func (s *Service) SendOverdueNotification(body []byte) error {
	var message models.OverdueNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	var subject, bodyText string
	switch message.Kind {
	case models.OverdueKindOverdue:
		subject = "Просрочен возврат оружия"
		bodyText = fmt.Sprintf("Здравствуйте, %s!\n\nСрок возврата оружия %s (серийный номер %s), выданного %s, истёк.\n\nНемедленно верните оружие в оружейную комнату.",
			message.Username, message.WeaponModel, message.SerialNumber,
			message.AllocatedAt.Format("02-01-2006 15:04"))
	default:
		subject = "Приближается срок возврата оружия"
		bodyText = fmt.Sprintf("Здравствуйте, %s!\n\nСрок возврата оружия %s (серийный номер %s), выданного %s, скоро истекает.\n\nПожалуйста, верните оружие заранее.",
			message.Username, message.WeaponModel, message.SerialNumber,
			message.AllocatedAt.Format("02-01-2006 15:04"))
	}

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
