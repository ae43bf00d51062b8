package models

import "errors"

// Доменные ошибки. Сервисы и хранилище возвращают их завернутыми
// через %w, вызывающие стороны проверяют errors.Is.
var (
	// ErrAdminNotAllowed администратор не может получать или выдавать себе оружие.
	ErrAdminNotAllowed = errors.New("admin is not allowed to hold weapons")
	// ErrWeaponNotAvailable оружие не в статусе available.
	ErrWeaponNotAvailable = errors.New("weapon is not available")
	// ErrInvalidTypeCombination запрошенный тип несовместим с оружием на руках.
	ErrInvalidTypeCombination = errors.New("invalid weapon type combination")
	// ErrTypeLimitReached у сотрудника уже есть оружие этого типа.
	ErrTypeLimitReached = errors.New("weapon type limit reached")
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrNotOwner выдача принадлежит другому сотруднику.
	ErrNotOwner = errors.New("allocation belongs to another user")
	// ErrReasonRequired возврат в обслуживание требует причину.
	ErrReasonRequired = errors.New("maintenance reason is required")
	// ErrWeaponInUse операция запрещена, пока оружие выдано.
	ErrWeaponInUse = errors.New("weapon is allocated")
	// ErrConcurrentModification состояние изменилось между проверкой и записью.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrStorageUnavailable хранилище недоступно, решение о выдаче не принято.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
