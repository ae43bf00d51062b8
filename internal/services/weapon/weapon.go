// Package weapon реализует бизнес-логику управления инвентарём оружия.
// Статус allocated принадлежит жизненному циклу выдачи: редактирование
// не может ни установить его, ни снять.
package weapon

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/armory-tracker/internal/cache"
	"github.com/magabrotheeeer/armory-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// WeaponRepository определяет методы для работы с оружием в хранилище.
type WeaponRepository interface {
	// CreateWeapon вставляет новую единицу оружия и возвращает её ID.
	CreateWeapon(ctx context.Context, weapon models.Weapon) (string, error)
	// ReadWeapon возвращает оружие по ID.
	ReadWeapon(ctx context.Context, id string) (*models.Weapon, error)
	// ListWeapons возвращает список оружия с фильтрами и пагинацией.
	ListWeapons(ctx context.Context, status, weaponType string, limit, offset int) ([]*models.Weapon, error)
	// UpdateWeapon обновляет оружие с оптимистической проверкой статуса.
	UpdateWeapon(ctx context.Context, id string, weapon models.Weapon, prevStatus models.WeaponStatus) (int, error)
	// DeleteWeapon удаляет оружие, если оно не выдано.
	DeleteWeapon(ctx context.Context, id string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы с инвентарём, включая кеширование.
type Service struct {
	repo  WeaponRepository
	cache Cache
	log   *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo WeaponRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create добавляет новую единицу оружия и возвращает её ID.
// Без явного статуса оружие создаётся доступным к выдаче.
func (s *Service) Create(ctx context.Context, req models.DummyWeapon) (string, error) {
	status := models.WeaponStatusAvailable
	if req.Status != "" {
		status = models.WeaponStatus(req.Status)
	}
	entry := models.Weapon{
		SerialNumber: req.SerialNumber,
		Model:        req.Model,
		Caliber:      req.Caliber,
		Manufacturer: req.Manufacturer,
		Type:         models.WeaponType(req.Type),
		Status:       status,
	}

	id, err := s.repo.CreateWeapon(ctx, entry)
	if err != nil {
		return "", err
	}
	s.log.Info("weapon created", slog.String("id", id), slog.String("serial_number", req.SerialNumber))
	return id, nil
}

// Read возвращает оружие по ID, сперва из кеша.
func (s *Service) Read(ctx context.Context, id string) (*models.Weapon, error) {
	key := cache.WeaponKey(id)
	var cached models.Weapon
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	result, err := s.repo.ReadWeapon(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, result, time.Hour); err != nil {
		s.log.Warn("failed to cache weapon", slog.String("key", key), sl.Err(err))
	}
	return result, nil
}

// List возвращает список оружия с необязательными фильтрами по статусу
// и типу и пагинацией.
func (s *Service) List(ctx context.Context, status, weaponType string, limit, offset int) ([]*models.Weapon, error) {
	return s.repo.ListWeapons(ctx, status, weaponType, limit, offset)
}

// Update обновляет карточку оружия. Пустой статус в запросе сохраняет
// текущий. Выданное оружие редактировать нельзя: его статус меняет только
// возврат. Проигранная гонка со сменой статуса — ErrConcurrentModification.
func (s *Service) Update(ctx context.Context, id string, req models.DummyWeapon) error {
	current, err := s.repo.ReadWeapon(ctx, id)
	if err != nil {
		return err
	}

	newStatus := current.Status
	if req.Status != "" {
		newStatus = models.WeaponStatus(req.Status)
	}
	if current.Status == models.WeaponStatusAllocated && newStatus != current.Status {
		return models.ErrWeaponInUse
	}

	entry := models.Weapon{
		SerialNumber: req.SerialNumber,
		Model:        req.Model,
		Caliber:      req.Caliber,
		Manufacturer: req.Manufacturer,
		Type:         models.WeaponType(req.Type),
		Status:       newStatus,
	}
	rows, err := s.repo.UpdateWeapon(ctx, id, entry, current.Status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrConcurrentModification
	}

	s.invalidate(id)
	return nil
}

// Delete удаляет оружие. Выданное оружие удалить нельзя.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteWeapon(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

func (s *Service) invalidate(id string) {
	key := cache.WeaponKey(id)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
	}
}
