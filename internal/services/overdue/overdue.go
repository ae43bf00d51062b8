// Package overdue реализует монитор сроков выдач: классификацию активных
// выдач по прошедшему времени и построение уведомлений. Классификация —
// чистая функция от (allocated_at, now) и порогов, её результат не
// кешируется: он меняется с течением времени, поэтому вызывающие стороны
// пересчитывают его при каждом запросе и по таймеру.
package overdue

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Thresholds пороги классификации. Берутся из конфигурации,
// монитор не содержит зашитых констант.
type Thresholds struct {
	OverdueAfter  time.Duration // Срок, после которого выдача просрочена
	WarningWindow time.Duration // Окно предупреждения перед порогом
}

// Class результат классификации активной выдачи.
type Class string

// Классы выдач по сроку.
const (
	ClassNormal  Class = "normal"
	ClassWarning Class = "warning"
	ClassOverdue Class = "overdue"
)

// Classify относит активную выдачу к классу по прошедшему времени:
// overdue, если прошло не меньше OverdueAfter; warning, если до порога
// осталось не больше WarningWindow; иначе normal.
func Classify(allocatedAt, now time.Time, t Thresholds) Class {
	elapsed := now.Sub(allocatedAt)
	if elapsed >= t.OverdueAfter {
		return ClassOverdue
	}
	if t.OverdueAfter-elapsed <= t.WarningWindow {
		return ClassWarning
	}
	return ClassNormal
}

// AllocationRepository определяет чтение активных выдач из хранилища.
type AllocationRepository interface {
	// ListActiveAllocations возвращает активные выдачи, все при пустом userUID.
	ListActiveAllocations(ctx context.Context, userUID string) ([]*models.ActiveAllocation, error)
}

// Service строит уведомления по активным выдачам. Только читает,
// блокировок не требует.
type Service struct {
	repo       AllocationRepository
	thresholds Thresholds
	log        *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo AllocationRepository, thresholds Thresholds, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		thresholds: thresholds,
		log:        log,
	}
}

// now подставляет текущее время, если вызывающая сторона его не передала.
// Явная передача используется в тестах и при пересчёте по таймеру.
func (s *Service) now(reqNow time.Time) time.Time {
	if !reqNow.IsZero() {
		return reqNow
	}
	return time.Now()
}

// Notifications классифицирует активные выдачи (все при пустом userUID)
// и возвращает уведомления для классов warning и overdue.
func (s *Service) Notifications(ctx context.Context, userUID string, reqNow time.Time) ([]*models.OverdueNotification, error) {
	entries, err := s.repo.ListActiveAllocations(ctx, userUID)
	if err != nil {
		return nil, err
	}

	now := s.now(reqNow)
	var result []*models.OverdueNotification
	for _, entry := range entries {
		var kind models.OverdueKind
		switch Classify(entry.AllocatedAt, now, s.thresholds) {
		case ClassOverdue:
			kind = models.OverdueKindOverdue
		case ClassWarning:
			kind = models.OverdueKindWarning
		default:
			continue
		}
		result = append(result, &models.OverdueNotification{
			AllocationID: entry.ID,
			SerialNumber: entry.SerialNumber,
			WeaponModel:  entry.WeaponModel,
			Username:     entry.Username,
			Email:        entry.Email,
			AllocatedAt:  entry.AllocatedAt,
			Kind:         kind,
		})
	}
	return result, nil
}

// CountByClass возвращает количество активных выдач по классам.
// Используется сводкой дашборда.
func (s *Service) CountByClass(ctx context.Context, userUID string, reqNow time.Time) (*models.AllocationStats, error) {
	entries, err := s.repo.ListActiveAllocations(ctx, userUID)
	if err != nil {
		return nil, err
	}

	now := s.now(reqNow)
	stats := &models.AllocationStats{Active: len(entries)}
	for _, entry := range entries {
		switch Classify(entry.AllocatedAt, now, s.thresholds) {
		case ClassOverdue:
			stats.Overdue++
		case ClassWarning:
			stats.Warning++
		}
	}
	return stats, nil
}
