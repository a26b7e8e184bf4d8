package db

import (
	"strings"
	"testing"

	"github.com/autohaus/cos/internal/config"
	"github.com/autohaus/cos/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{User: "root", Host: "127.0.0.1", Port: 3306, Name: "cos"},
			want: "root:@tcp(127.0.0.1:3306)/cos?parseTime=true&charset=utf8mb4",
		},
		{
			name: "custom host with password",
			cfg:  config.DatabaseConfig{User: "cos", Password: "secret", Host: "10.0.0.5", Port: 3307, Name: "cos_prod"},
			want: "cos:secret@tcp(10.0.0.5:3307)/cos_prod?parseTime=true&charset=utf8mb4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.cfg)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "unknown driver")
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range models.All() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestSeed_Idempotent(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := Seed(gdb); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(gdb); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var vehicles int64
	gdb.Model(&models.Vehicle{}).Count(&vehicles)
	if vehicles != 4 {
		t.Errorf("vehicle count = %d, want 4 after double seed", vehicles)
	}
	var notes int64
	gdb.Model(&models.FinanceNote{}).Count(&notes)
	if notes != 2 {
		t.Errorf("finance note count = %d, want 2 after double seed", notes)
	}
	var revenue int64
	gdb.Model(&models.WeeklyRevenue{}).Count(&revenue)
	if revenue != 12 {
		t.Errorf("weekly revenue count = %d, want 12 after double seed", revenue)
	}
	var jobs int64
	gdb.Model(&models.LogisticsJob{}).Count(&jobs)
	if jobs != 1 {
		t.Errorf("logistics job count = %d, want 1 after double seed", jobs)
	}
}

func TestSeed_CostBasisStored(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := Seed(gdb); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var v models.Vehicle
	if err := gdb.Where("vin = ?", "WP0AB2A99KS123456").First(&v).Error; err != nil {
		t.Fatalf("lookup seeded vehicle: %v", err)
	}
	if v.CostBasis.IsZero() {
		t.Error("CostBasis is zero, want seeded value")
	}
	if v.Make != "Porsche" {
		t.Errorf("Make = %q, want Porsche", v.Make)
	}
}
