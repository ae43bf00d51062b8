// Package models содержит структуры данных для оружейной комнаты:
// оружие, сотрудники, выдачи и доменные ошибки.
package models

import "time"

// WeaponType тип оружия. Правило совместимости типов опирается
// на эти значения.
type WeaponType string

// Типы оружия.
const (
	WeaponTypePistol  WeaponType = "pistol"
	WeaponTypeShotgun WeaponType = "shotgun"
	WeaponTypeRifle   WeaponType = "rifle"
)

// WeaponStatus статус единицы оружия.
type WeaponStatus string

// Статусы оружия. Переход available -> allocated и обратно выполняет
// только жизненный цикл выдачи, прямое редактирование этих статусов запрещено.
const (
	WeaponStatusAvailable   WeaponStatus = "available"
	WeaponStatusAllocated   WeaponStatus = "allocated"
	WeaponStatusMaintenance WeaponStatus = "maintenance"
)

// Weapon описывает единицу оружия в инвентаре.
type Weapon struct {
	ID            string       `json:"id"`
	SerialNumber  string       `json:"serial_number"`
	Model         string       `json:"model"`
	Caliber       string       `json:"caliber"`
	Manufacturer  string       `json:"manufacturer"`
	Type          WeaponType   `json:"type"`
	Status        WeaponStatus `json:"status"`
	MaintenanceAt *time.Time   `json:"maintenance_at,omitempty"`
}

// DummyWeapon структура для создания и обновления оружия.
type DummyWeapon struct {
	SerialNumber string `json:"serial_number" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Caliber      string `json:"caliber" validate:"required"`
	Manufacturer string `json:"manufacturer" validate:"required"`
	Type         string `json:"type" validate:"required,oneof=pistol shotgun rifle"`
	Status       string `json:"status" validate:"omitempty,oneof=available maintenance"`
}

// WeaponStats счётчики оружия по статусам и типам.
type WeaponStats struct {
	ByStatus map[WeaponStatus]int `json:"by_status"`
	ByType   map[WeaponType]int   `json:"by_type"`
}
