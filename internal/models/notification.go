package models

import "time"

// OverdueKind класс уведомления о сроке выдачи.
type OverdueKind string

// Классы уведомлений.
const (
	OverdueKindWarning OverdueKind = "warning"
	OverdueKindOverdue OverdueKind = "overdue"
)

// OverdueNotification уведомление о приближении или нарушении срока возврата.
type OverdueNotification struct {
	AllocationID string      `json:"allocation_id"`
	SerialNumber string      `json:"serial_number"`
	WeaponModel  string      `json:"weapon_model"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	AllocatedAt  time.Time   `json:"allocated_at"`
	Kind         OverdueKind `json:"kind"`
}

// AllocationEvent доменное событие жизненного цикла выдачи.
type AllocationEvent struct {
	AllocationID string    `json:"allocation_id"`
	WeaponID     string    `json:"weapon_id"`
	UserUID      string    `json:"user_uid"`
	OccurredAt   time.Time `json:"occurred_at"`
}
