package db

import (
	"fmt"
	"time"

	"github.com/autohaus/cos/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate creates or updates every table the hub uses.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Seed upserts a small demo inventory so a fresh install has data behind
// every plate type. Vehicles are keyed on VIN, so running it twice is safe.
func Seed(gdb *gorm.DB) error {
	vehicles := []models.Vehicle{
		{
			VIN: "WP0AB2A99KS123456", Make: "Porsche", Model: "911 Carrera", Year: 2019,
			Color: "Guards Red", Status: models.VehicleAvailable,
			Price: decimal.NewFromInt(98500), CostBasis: decimal.NewFromInt(84200),
			Location: "Showroom", Entity: "AutoHaus Dallas", Insurance: "Hagerty",
			DaysInStock: 96,
		},
		{
			VIN: "WBA5A5C52FD123789", Make: "BMW", Model: "528i", Year: 2015,
			Color: "Alpine White", Status: models.VehicleAvailable,
			Price: decimal.NewFromInt(18900), CostBasis: decimal.NewFromInt(15100),
			Location: "Lot B", Entity: "AutoHaus Dallas", Insurance: "Progressive",
			DaysInStock: 12,
		},
		{
			VIN: "WAUZZZ4G1FN123321", Make: "Audi", Model: "A6", Year: 2015,
			Color: "Daytona Gray", Status: models.VehicleInTransit,
			Price: decimal.NewFromInt(21400), CostBasis: decimal.NewFromInt(17800),
			Location: "In transit", Entity: "AutoHaus Plano", Insurance: "Progressive",
			DaysInStock: 2,
		},
		{
			VIN: "WDDGF8AB1EA123654", Make: "Mercedes-Benz", Model: "C300", Year: 2014,
			Color: "Obsidian Black", Status: models.VehicleSold,
			Price: decimal.NewFromInt(16750), CostBasis: decimal.NewFromInt(13900),
			Location: "Delivered", Entity: "AutoHaus Dallas", Insurance: "",
			DaysInStock: 121,
		},
	}
	for i := range vehicles {
		res := gdb.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vin"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "price", "location", "days_in_stock"}),
		}).Create(&vehicles[i])
		if res.Error != nil {
			return fmt.Errorf("db: seed vehicle %s: %w", vehicles[i].VIN, res.Error)
		}
	}

	notes := []models.FinanceNote{
		{VIN: "WP0AB2A99KS123456", Lender: "Westlake Financial", PrincipalAmount: decimal.NewFromInt(84200), Rate: 7.25, Lane: "A"},
		{VIN: "WBA5A5C52FD123789", Lender: "NextGear Capital", PrincipalAmount: decimal.NewFromInt(15100), Rate: 8.9, Lane: "B"},
	}
	for i := range notes {
		n := notes[i]
		res := gdb.Where("vin = ? AND lender = ?", n.VIN, n.Lender).FirstOrCreate(&n)
		if res.Error != nil {
			return fmt.Errorf("db: seed finance note %s: %w", n.VIN, res.Error)
		}
	}

	for lane, base := range map[string]int64{"A": 42000, "B": 28500} {
		for week := 1; week <= 6; week++ {
			rev := models.WeeklyRevenue{
				Lane:    lane,
				Week:    fmt.Sprintf("W%02d", week),
				Entity:  "AutoHaus Dallas",
				Revenue: decimal.NewFromInt(base + int64(week)*1750),
			}
			res := gdb.Where("lane = ? AND week = ?", rev.Lane, rev.Week).FirstOrCreate(&rev)
			if res.Error != nil {
				return fmt.Errorf("db: seed weekly revenue %s/%s: %w", rev.Lane, rev.Week, res.Error)
			}
		}
	}

	eta := time.Now().Add(3 * time.Hour)
	job := models.LogisticsJob{
		VIN: "WAUZZZ4G1FN123321", Driver: "D. Okafor",
		Status: models.JobEnRoute, Destination: "Lot A", ETA: &eta,
	}
	if err := gdb.Where("vin = ?", job.VIN).FirstOrCreate(&job).Error; err != nil {
		return fmt.Errorf("db: seed logistics job: %w", err)
	}
	return nil
}
