package models

import "time"

// LogisticsJob is one dispatch: a unit in motion with a driver.
type LogisticsJob struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	VIN         string `gorm:"size:17;index"`
	Driver      string `gorm:"size:64;not null"`
	Status      string `gorm:"size:16;index;default:ASSIGNED"`
	Destination string `gorm:"size:128"`
	ETA         *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Logistics job statuses.
const (
	JobAssigned  = "ASSIGNED"
	JobEnRoute   = "EN_ROUTE"
	JobDelivered = "DELIVERED"
)
