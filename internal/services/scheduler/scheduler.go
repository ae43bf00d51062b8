// Package scheduler периодически классифицирует активные выдачи
// и публикует уведомления о сроках в очередь.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/armory-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// OverdueMonitor строит уведомления по активным выдачам.
type OverdueMonitor interface {
	// Notifications возвращает уведомления warning и overdue по всем
	// активным выдачам при пустом userUID.
	Notifications(ctx context.Context, userUID string, now time.Time) ([]*models.OverdueNotification, error)
}

// Service периодически пересчитывает классы выдач и рассылает уведомления.
type Service struct {
	monitor  OverdueMonitor
	interval time.Duration
	log      *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(monitor OverdueMonitor, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		monitor:  monitor,
		interval: interval,
		log:      log,
	}
}

// Run запускает цикл пересчёта: первый проход сразу, дальше по таймеру,
// до отмены контекста. Классификация зависит от текущего времени,
// поэтому каждый проход считает её заново.
func (s *Service) Run(ctx context.Context, channel *amqp.Channel) {
	s.sweep(ctx, channel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx, channel)
		}
	}
}

func (s *Service) sweep(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting overdue sweep")
	notifications, err := s.monitor.Notifications(ctx, "", time.Now())
	if err != nil {
		s.log.Error("failed to classify active allocations", sl.Err(err))
		return
	}
	if len(notifications) == 0 {
		s.log.Info("no warning or overdue allocations found")
		return
	}
	s.log.Info("found allocations to notify", "count", len(notifications))

	for _, notification := range notifications {
		routingKey := rabbitmq.KeyWarning
		if notification.Kind == models.OverdueKindOverdue {
			routingKey = rabbitmq.KeyOverdue
		}
		if err := rabbitmq.PublishMessage(channel, rabbitmq.Exchange, routingKey, notification); err != nil {
			s.log.Error("failed to publish notification",
				"allocation_id", notification.AllocationID, sl.Err(err))
		}
	}
}
