// Package models defines the GORM persistence models backing the hub:
// inventory, finance paper, logistics, the audit ledger, and the approval
// queue.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is one inventory unit. CostBasis is internal-only and must never
// reach the public listing surface.
type Vehicle struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	VIN         string          `gorm:"size:17;uniqueIndex;not null"`
	Year        int             `gorm:"not null"`
	Make        string          `gorm:"size:64;not null"`
	Model       string          `gorm:"size:64;not null"`
	Color       string          `gorm:"size:32"`
	Status      string          `gorm:"size:16;index;default:AVAILABLE"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)"`
	CostBasis   decimal.Decimal `gorm:"type:decimal(12,2)"`
	Location    string          `gorm:"size:64"`
	Entity      string          `gorm:"size:64;index"`
	Insurance   string          `gorm:"size:64"`
	DaysInStock int             `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Vehicle statuses.
const (
	VehicleAvailable = "AVAILABLE"
	VehicleSold      = "SOLD"
	VehicleInTransit = "IN_TRANSIT"
	VehicleRecon     = "RECON"
)
