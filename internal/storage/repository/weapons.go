package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// CreateWeapon вставляет новую единицу оружия и возвращает её ID.
func (s *Storage) CreateWeapon(ctx context.Context, weapon models.Weapon) (string, error) {
	const op = "storage.CreateWeapon"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO weapons (serial_number, model, caliber, manufacturer, type, status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		weapon.SerialNumber, weapon.Model, weapon.Caliber, weapon.Manufacturer,
		weapon.Type, weapon.Status).Scan(&newID)
	if err != nil {
		return "", wrapErr(op, err)
	}
	return newID, nil
}

// ReadWeapon возвращает данные оружия по его ID.
func (s *Storage) ReadWeapon(ctx context.Context, id string) (*models.Weapon, error) {
	const op = "storage.ReadWeapon"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, serial_number, model, caliber, manufacturer, type, status, maintenance_at
			  FROM weapons WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Weapon
	var maintenanceAt sql.NullTime
	if err := row.Scan(&result.ID, &result.SerialNumber, &result.Model, &result.Caliber,
		&result.Manufacturer, &result.Type, &result.Status, &maintenanceAt); err != nil {
		return nil, wrapErr(op, err)
	}
	if maintenanceAt.Valid {
		result.MaintenanceAt = &maintenanceAt.Time
	}
	return &result, nil
}

// ListWeapons возвращает список оружия с пагинацией и необязательными
// фильтрами по статусу и типу (пустая строка — без фильтра).
func (s *Storage) ListWeapons(ctx context.Context, status, weaponType string, limit, offset int) ([]*models.Weapon, error) {
	const op = "storage.ListWeapons"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, serial_number, model, caliber, manufacturer, type, status, maintenance_at
			  FROM weapons
			  WHERE ($1 = '' OR status = $1)
			    AND ($2 = '' OR type = $2)
			  ORDER BY serial_number
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, status, weaponType, limit, offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Weapon
	for rows.Next() {
		var item models.Weapon
		var maintenanceAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.SerialNumber, &item.Model, &item.Caliber,
			&item.Manufacturer, &item.Type, &item.Status, &maintenanceAt); err != nil {
			return nil, wrapErr(op, err)
		}
		if maintenanceAt.Valid {
			item.MaintenanceAt = &maintenanceAt.Time
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// UpdateWeapon обновляет оружие по ID при условии, что его статус не изменился
// с момента чтения (оптимистическая проверка). Возвращает количество изменённых строк.
func (s *Storage) UpdateWeapon(ctx context.Context, id string, weapon models.Weapon, prevStatus models.WeaponStatus) (int, error) {
	const op = "storage.UpdateWeapon"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE weapons
			  SET serial_number = $1, model = $2, caliber = $3, manufacturer = $4,
			      type = $5, status = $6,
			      maintenance_at = CASE WHEN $6 = 'maintenance' THEN NOW() ELSE maintenance_at END
			  WHERE id = $7 AND status = $8`
	result, err := s.DB.ExecContext(ctx, query,
		weapon.SerialNumber, weapon.Model, weapon.Caliber, weapon.Manufacturer,
		weapon.Type, weapon.Status, id, prevStatus)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return int(rowsAffected), nil
}

// DeleteWeapon удаляет оружие по ID. Удаление выданного оружия запрещено,
// условие проверяется той же командой, что и удаление.
func (s *Storage) DeleteWeapon(ctx context.Context, id string) error {
	const op = "storage.DeleteWeapon"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM weapons WHERE id = $1 AND status <> 'allocated'`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var status models.WeaponStatus
	err = s.DB.QueryRowContext(ctx, `SELECT status FROM weapons WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return wrapErr(op, err)
	}
	return fmt.Errorf("%s: %w", op, models.ErrWeaponInUse)
}

// CountWeapons возвращает счётчики оружия по статусам и типам.
func (s *Storage) CountWeapons(ctx context.Context) (*models.WeaponStats, error) {
	const op = "storage.CountWeapons"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT status, type, COUNT(*) FROM weapons GROUP BY status, type`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := &models.WeaponStats{
		ByStatus: make(map[models.WeaponStatus]int),
		ByType:   make(map[models.WeaponType]int),
	}
	for rows.Next() {
		var status models.WeaponStatus
		var weaponType models.WeaponType
		var count int
		if err := rows.Scan(&status, &weaponType, &count); err != nil {
			return nil, wrapErr(op, err)
		}
		stats.ByStatus[status] += count
		stats.ByType[weaponType] += count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return stats, nil
}
