package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/armory-tracker/internal/models"
	"github.com/magabrotheeeer/armory-tracker/internal/services/eligibility"
)

// GetAllocation возвращает выдачу по её ID.
func (s *Storage) GetAllocation(ctx context.Context, id string) (*models.Allocation, error) {
	const op = "storage.GetAllocation"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, weapon_id, user_uid, allocated_at, returned_at, status, notes,
			      maintenance_required, maintenance_reason
			  FROM allocations WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Allocation
	var returnedAt sql.NullTime
	var notes, maintenanceReason sql.NullString
	if err := row.Scan(&result.ID, &result.WeaponID, &result.UserUID, &result.AllocatedAt,
		&returnedAt, &result.Status, &notes, &result.MaintenanceRequired, &maintenanceReason); err != nil {
		return nil, wrapErr(op, err)
	}
	if returnedAt.Valid {
		result.ReturnedAt = &returnedAt.Time
	}
	result.Notes = notes.String
	result.MaintenanceReason = maintenanceReason.String
	return &result, nil
}

// ListActiveWeaponTypes возвращает типы оружия в активных выдачах сотрудника.
func (s *Storage) ListActiveWeaponTypes(ctx context.Context, userUID string) ([]models.WeaponType, error) {
	const op = "storage.ListActiveWeaponTypes"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT w.type
			  FROM allocations a
			  JOIN weapons w ON w.id = a.weapon_id
			  WHERE a.user_uid = $1 AND a.status = 'active'`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.WeaponType
	for rows.Next() {
		var t models.WeaponType
		if err := rows.Scan(&t); err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// CreateAllocation выполняет выдачу как одну транзакцию: блокирует строку
// сотрудника (сериализует конкурирующие выдачи одному человеку), повторно
// проверяет правило совместимости типов по актуальному состоянию, условно
// переводит оружие из available в allocated и вставляет запись выдачи.
// Проигравший гонку переход получает ErrConcurrentModification, состояние
// при этом не меняется.
func (s *Storage) CreateAllocation(ctx context.Context, entry models.Allocation, weaponType models.WeaponType) (string, error) {
	const op = "storage.CreateAllocation"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", wrapErr(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedUID string
	err = tx.QueryRowContext(ctx, `SELECT uid FROM users WHERE uid = $1 FOR UPDATE`, entry.UserUID).Scan(&lockedUID)
	if err != nil {
		return "", wrapErr(op, err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT w.type
			  FROM allocations a
			  JOIN weapons w ON w.id = a.weapon_id
			  WHERE a.user_uid = $1 AND a.status = 'active'`, entry.UserUID)
	if err != nil {
		return "", wrapErr(op, err)
	}
	var held []models.WeaponType
	for rows.Next() {
		var t models.WeaponType
		if err := rows.Scan(&t); err != nil {
			_ = rows.Close()
			return "", wrapErr(op, err)
		}
		held = append(held, t)
	}
	if err := rows.Err(); err != nil {
		return "", wrapErr(op, err)
	}
	if err := rows.Close(); err != nil {
		return "", wrapErr(op, err)
	}

	// Сервис уже валидировал снапшот, повторный отказ означает гонку.
	if err := eligibility.CheckComposition(held, weaponType); err != nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrConcurrentModification)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE weapons SET status = 'allocated' WHERE id = $1 AND status = 'available'`,
		entry.WeaponID)
	if err != nil {
		return "", wrapErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", wrapErr(op, err)
	}
	if rowsAffected == 0 {
		return "", fmt.Errorf("%s: %w", op, models.ErrConcurrentModification)
	}

	var newID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO allocations (weapon_id, user_uid, allocated_at, status, notes)
		 VALUES ($1, $2, $3, 'active', $4)
		 RETURNING id`,
		entry.WeaponID, entry.UserUID, entry.AllocatedAt, entry.Notes).Scan(&newID)
	if err != nil {
		return "", wrapErr(op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", wrapErr(op, err)
	}
	return newID, nil
}

// CloseAllocation выполняет возврат как одну транзакцию: условно закрывает
// активную выдачу и условно переводит оружие из allocated в целевой статус.
// Оба обновления либо фиксируются вместе, либо откатываются — возврат никогда
// не оставляет оружие allocated при закрытой выдаче и наоборот.
func (s *Storage) CloseAllocation(ctx context.Context, allocationID string, returnedAt time.Time,
	maintenanceRequired bool, maintenanceReason string, weaponID string, weaponStatus models.WeaponStatus) error {
	const op = "storage.CloseAllocation"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE allocations
		 SET status = 'returned', returned_at = $2,
		     maintenance_required = $3, maintenance_reason = NULLIF($4, '')
		 WHERE id = $1 AND status = 'active'`,
		allocationID, returnedAt, maintenanceRequired, maintenanceReason)
	if err != nil {
		return wrapErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrConcurrentModification)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE weapons
		 SET status = $2,
		     maintenance_at = CASE WHEN $2 = 'maintenance' THEN $3 ELSE maintenance_at END
		 WHERE id = $1 AND status = 'allocated'`,
		weaponID, weaponStatus, returnedAt)
	if err != nil {
		return wrapErr(op, err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

const activeAllocationColumns = `a.id, a.weapon_id, a.user_uid, a.allocated_at, a.returned_at,
			      a.status, a.notes, a.maintenance_required, a.maintenance_reason,
			      w.serial_number, w.model, w.type, u.username, u.email`

func scanActiveAllocation(rows *sql.Rows) (*models.ActiveAllocation, error) {
	var item models.ActiveAllocation
	var returnedAt sql.NullTime
	var notes, maintenanceReason sql.NullString
	if err := rows.Scan(&item.ID, &item.WeaponID, &item.UserUID, &item.AllocatedAt,
		&returnedAt, &item.Status, &notes, &item.MaintenanceRequired, &maintenanceReason,
		&item.SerialNumber, &item.WeaponModel, &item.WeaponType, &item.Username, &item.Email); err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		item.ReturnedAt = &returnedAt.Time
	}
	item.Notes = notes.String
	item.MaintenanceReason = maintenanceReason.String
	return &item, nil
}

// ListAllocations возвращает выдачи сотрудника (включая закрытые) с пагинацией.
func (s *Storage) ListAllocations(ctx context.Context, userUID string, limit, offset int) ([]*models.ActiveAllocation, error) {
	const op = "storage.ListAllocations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + activeAllocationColumns + `
			  FROM allocations a
			  JOIN weapons w ON w.id = a.weapon_id
			  JOIN users u ON u.uid = a.user_uid
			  WHERE a.user_uid = $1
			  ORDER BY a.allocated_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ActiveAllocation
	for rows.Next() {
		item, err := scanActiveAllocation(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// ListAllAllocations возвращает все выдачи с пагинацией.
func (s *Storage) ListAllAllocations(ctx context.Context, limit, offset int) ([]*models.ActiveAllocation, error) {
	const op = "storage.ListAllAllocations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + activeAllocationColumns + `
			  FROM allocations a
			  JOIN weapons w ON w.id = a.weapon_id
			  JOIN users u ON u.uid = a.user_uid
			  ORDER BY a.allocated_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ActiveAllocation
	for rows.Next() {
		item, err := scanActiveAllocation(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// ListActiveAllocations возвращает активные выдачи: все при пустом userUID,
// иначе только выдачи этого сотрудника. Используется монитором сроков.
func (s *Storage) ListActiveAllocations(ctx context.Context, userUID string) ([]*models.ActiveAllocation, error) {
	const op = "storage.ListActiveAllocations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + activeAllocationColumns + `
			  FROM allocations a
			  JOIN weapons w ON w.id = a.weapon_id
			  JOIN users u ON u.uid = a.user_uid
			  WHERE a.status = 'active'
			    AND ($1 = '' OR a.user_uid::text = $1)
			  ORDER BY a.allocated_at`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ActiveAllocation
	for rows.Next() {
		item, err := scanActiveAllocation(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}
