package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autohaus/cos/internal/config"
	"github.com/autohaus/cos/internal/db"
	"github.com/autohaus/cos/internal/models"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cos.yaml")
	yaml := fmt.Sprintf("database:\n  driver: sqlite\n  path: %s\n", filepath.Join(dir, "cos.db"))
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMigrateCmd_CreatesSchema(t *testing.T) {
	configPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Done.") {
		t.Errorf("output = %s, want completion notice", buf.String())
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		t.Fatal(err)
	}
	for _, model := range models.All() {
		if !gdb.Migrator().HasTable(model) {
			t.Errorf("table for %T missing after migrate", model)
		}
	}
}

func TestMigrateCmd_Seed(t *testing.T) {
	configPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--config", configPath, "--seed"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate --seed failed: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		t.Fatal(err)
	}
	var count int64
	gdb.Model(&models.Vehicle{}).Count(&count)
	if count == 0 {
		t.Error("no vehicles after --seed")
	}
}

func TestMigrateCmd_MissingExplicitConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate", "--config", "/nonexistent/cos.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
