package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinanceNote is one floor-plan note held against a unit.
type FinanceNote struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"`
	VIN             string          `gorm:"size:17;index;not null"`
	Lender          string          `gorm:"size:64;not null"`
	PrincipalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Rate            float64
	Lane            string `gorm:"size:8;index"`
	CreatedAt       time.Time
}

// WeeklyRevenue is one aggregated finance-chart row per lane and week.
type WeeklyRevenue struct {
	ID      uint            `gorm:"primaryKey;autoIncrement"`
	Lane    string          `gorm:"size:8;index;not null"`
	Week    string          `gorm:"size:8;not null"`
	Entity  string          `gorm:"size:64;not null"`
	Revenue decimal.Decimal `gorm:"type:decimal(12,2)"`
}
