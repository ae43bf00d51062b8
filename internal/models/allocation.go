package models

import "time"

// AllocationStatus статус выдачи.
type AllocationStatus string

// Статусы выдачи. Закрытая выдача не переоткрывается.
const (
	AllocationStatusActive   AllocationStatus = "active"
	AllocationStatusReturned AllocationStatus = "returned"
)

// ReturnDestination куда возвращается оружие при сдаче.
type ReturnDestination string

// Назначения возврата.
const (
	ReturnDestinationStock       ReturnDestination = "stock"
	ReturnDestinationMaintenance ReturnDestination = "maintenance"
)

// Allocation описывает выдачу оружия сотруднику.
type Allocation struct {
	ID                  string           `json:"id"`
	WeaponID            string           `json:"weapon_id"`
	UserUID             string           `json:"user_uid"`
	AllocatedAt         time.Time        `json:"allocated_at"`
	ReturnedAt          *time.Time       `json:"returned_at,omitempty"`
	Status              AllocationStatus `json:"status"`
	Notes               string           `json:"notes,omitempty"`
	MaintenanceRequired bool             `json:"maintenance_required"`
	MaintenanceReason   string           `json:"maintenance_reason,omitempty"`
}

// ActiveAllocation выдача вместе с данными оружия и сотрудника.
// Используется в списках и уведомлениях.
type ActiveAllocation struct {
	Allocation
	SerialNumber string     `json:"serial_number"`
	WeaponModel  string     `json:"weapon_model"`
	WeaponType   WeaponType `json:"weapon_type"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
}

// DummyAllocation структура запроса на выдачу оружия. UserUID задаётся
// только при выдаче другому сотруднику, по умолчанию оружие получает
// инициатор запроса.
type DummyAllocation struct {
	WeaponID string `json:"weapon_id" validate:"required,uuid"`
	UserUID  string `json:"user_uid" validate:"omitempty,uuid"`
	Notes    string `json:"notes" validate:"omitempty,max=500"`
}

// DummyReturn структура запроса на возврат оружия.
type DummyReturn struct {
	Destination       string `json:"destination" validate:"required,oneof=stock maintenance"`
	MaintenanceReason string `json:"maintenance_reason" validate:"omitempty,max=500"`
}

// AllocationStats счётчики активных выдач по классам срока.
type AllocationStats struct {
	Active  int `json:"active"`
	Warning int `json:"warning"`
	Overdue int `json:"overdue"`
}

// Stats сводка для дашборда. Счётчики оружия заполняются
// только для администратора.
type Stats struct {
	Weapons     *WeaponStats    `json:"weapons,omitempty"`
	Allocations AllocationStats `json:"allocations"`
}
