// Package allocation реализует жизненный цикл выдачи оружия: валидацию
// запроса по снапшоту состояния, атомарный переход в хранилище и возврат.
// Валидация и запись разделены: валидатор отвечает на вопрос "можно ли",
// а хранилище повторяет решающие проверки внутри транзакции, поэтому
// успешная валидация никогда не гарантирует успешную выдачу.
package allocation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/armory-tracker/internal/cache"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
	"github.com/magabrotheeeer/armory-tracker/internal/services/eligibility"
)

// AllocationRepository определяет методы хранилища для жизненного цикла выдач.
type AllocationRepository interface {
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// ReadWeapon возвращает оружие по ID.
	ReadWeapon(ctx context.Context, id string) (*models.Weapon, error)
	// ListActiveWeaponTypes возвращает типы оружия в активных выдачах сотрудника.
	ListActiveWeaponTypes(ctx context.Context, userUID string) ([]models.WeaponType, error)
	// CreateAllocation атомарно выполняет выдачу и возвращает её ID.
	CreateAllocation(ctx context.Context, entry models.Allocation, weaponType models.WeaponType) (string, error)
	// GetAllocation возвращает выдачу по ID.
	GetAllocation(ctx context.Context, id string) (*models.Allocation, error)
	// CloseAllocation атомарно закрывает выдачу и переводит оружие в целевой статус.
	CloseAllocation(ctx context.Context, allocationID string, returnedAt time.Time,
		maintenanceRequired bool, maintenanceReason string, weaponID string, weaponStatus models.WeaponStatus) error
	// ListAllocations возвращает выдачи сотрудника с пагинацией.
	ListAllocations(ctx context.Context, userUID string, limit, offset int) ([]*models.ActiveAllocation, error)
	// ListAllAllocations возвращает все выдачи с пагинацией.
	ListAllAllocations(ctx context.Context, limit, offset int) ([]*models.ActiveAllocation, error)
	// CountWeapons возвращает счётчики оружия по статусам и типам.
	CountWeapons(ctx context.Context) (*models.WeaponStats, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// EventPublisher публикует доменные события жизненного цикла.
type EventPublisher interface {
	// Publish отправляет сообщение с ключом маршрутизации.
	Publish(routingKey string, message any) error
}

// OverdueCounter считает активные выдачи по классам срока.
type OverdueCounter interface {
	CountByClass(ctx context.Context, userUID string, now time.Time) (*models.AllocationStats, error)
}

// Service реализует бизнес-логику жизненного цикла выдач.
type Service struct {
	repo      AllocationRepository
	cache     Cache
	publisher EventPublisher
	overdue   OverdueCounter
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo AllocationRepository, cache Cache, publisher EventPublisher,
	overdue OverdueCounter, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		overdue:   overdue,
		log:       log,
	}
}

// Allocate выдает оружие сотруднику. Получатель — req.UserUID, при пустом
// значении — инициатор запроса. Валидация идёт по снапшоту состояния,
// решающие проверки хранилище повторяет внутри транзакции, поэтому
// конкурирующий запрос может получить models.ErrConcurrentModification
// уже после успешной валидации.
func (s *Service) Allocate(ctx context.Context, requesterUID string, req models.DummyAllocation) (string, error) {
	requester, err := s.repo.GetUser(ctx, requesterUID)
	if err != nil {
		return "", err
	}

	targetUID := req.UserUID
	if targetUID == "" {
		targetUID = requesterUID
	}
	target := requester
	if targetUID != requesterUID {
		target, err = s.repo.GetUser(ctx, targetUID)
		if err != nil {
			return "", err
		}
	}

	weapon, err := s.repo.ReadWeapon(ctx, req.WeaponID)
	if err != nil {
		return "", err
	}
	heldTypes, err := s.repo.ListActiveWeaponTypes(ctx, targetUID)
	if err != nil {
		return "", err
	}

	if err := eligibility.Validate(requester, target, weapon, heldTypes); err != nil {
		return "", err
	}

	entry := models.Allocation{
		WeaponID:    weapon.ID,
		UserUID:     targetUID,
		AllocatedAt: time.Now().UTC(),
		Status:      models.AllocationStatusActive,
		Notes:       req.Notes,
	}
	id, err := s.repo.CreateAllocation(ctx, entry, weapon.Type)
	if err != nil {
		return "", err
	}

	s.log.Info("weapon allocated",
		slog.String("allocation_id", id),
		slog.String("weapon_id", weapon.ID),
		slog.String("user_uid", targetUID))

	s.publishEvent(rabbitmq.KeyAllocationCreated, models.AllocationEvent{
		AllocationID: id,
		WeaponID:     weapon.ID,
		UserUID:      targetUID,
		OccurredAt:   entry.AllocatedAt,
	})
	s.invalidateWeapon(weapon.ID)

	return id, nil
}

// Return закрывает выдачу и возвращает оружие на склад или в обслуживание.
// Повторный возврат уже закрытой выдачи — models.ErrNotFound: активной
// выдачи с таким ID больше нет.
func (s *Service) Return(ctx context.Context, requesterUID, role, allocationID string, req models.DummyReturn) error {
	entry, err := s.repo.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if entry.UserUID != requesterUID && role != models.RoleAdmin {
		return models.ErrNotOwner
	}
	if entry.Status != models.AllocationStatusActive {
		return models.ErrNotFound
	}

	weaponStatus := models.WeaponStatusAvailable
	maintenanceRequired := false
	reason := strings.TrimSpace(req.MaintenanceReason)
	if models.ReturnDestination(req.Destination) == models.ReturnDestinationMaintenance {
		if reason == "" {
			return models.ErrReasonRequired
		}
		weaponStatus = models.WeaponStatusMaintenance
		maintenanceRequired = true
	} else {
		reason = ""
	}

	returnedAt := time.Now().UTC()
	if err := s.repo.CloseAllocation(ctx, allocationID, returnedAt,
		maintenanceRequired, reason, entry.WeaponID, weaponStatus); err != nil {
		return err
	}

	s.log.Info("weapon returned",
		slog.String("allocation_id", allocationID),
		slog.String("weapon_id", entry.WeaponID),
		slog.String("destination", req.Destination))

	s.publishEvent(rabbitmq.KeyAllocationReturned, models.AllocationEvent{
		AllocationID: allocationID,
		WeaponID:     entry.WeaponID,
		UserUID:      entry.UserUID,
		OccurredAt:   returnedAt,
	})
	s.invalidateWeapon(entry.WeaponID)

	return nil
}

// List возвращает выдачи с пагинацией: администратору — все,
// сотруднику — только его собственные.
func (s *Service) List(ctx context.Context, userUID, role string, limit, offset int) ([]*models.ActiveAllocation, error) {
	if role == models.RoleAdmin {
		return s.repo.ListAllAllocations(ctx, limit, offset)
	}
	return s.repo.ListAllocations(ctx, userUID, limit, offset)
}

// Stats возвращает сводку: счётчики активных выдач по классам срока,
// администратору дополнительно счётчики оружия по всему инвентарю.
func (s *Service) Stats(ctx context.Context, userUID, role string) (*models.Stats, error) {
	scope := userUID
	if role == models.RoleAdmin {
		scope = ""
	}
	allocations, err := s.overdue.CountByClass(ctx, scope, time.Time{})
	if err != nil {
		return nil, err
	}

	result := &models.Stats{Allocations: *allocations}
	if role == models.RoleAdmin {
		weapons, err := s.repo.CountWeapons(ctx)
		if err != nil {
			return nil, err
		}
		result.Weapons = weapons
	}
	return result, nil
}

// publishEvent отправляет событие в очередь. Ошибка публикации не откатывает
// уже зафиксированную транзакцию, только логируется.
func (s *Service) publishEvent(routingKey string, event models.AllocationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, event); err != nil {
		s.log.Warn("failed to publish allocation event",
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}

func (s *Service) invalidateWeapon(weaponID string) {
	key := cache.WeaponKey(weaponID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
	}
}
