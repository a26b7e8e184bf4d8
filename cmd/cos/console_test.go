package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/autohaus/cos/internal/orchestrator"
	"github.com/autohaus/cos/internal/protocol"
)

func TestConsoleCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"console", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("console --help failed: %v", err)
	}

	out := buf.String()
	for _, flag := range []string{"--hub", "--user", "--offline", "--config"} {
		if !strings.Contains(out, flag) {
			t.Errorf("expected help to mention %q, got: %s", flag, out)
		}
	}
}

func newTestConsole(t *testing.T) *consoleModel {
	t.Helper()
	orch, err := orchestrator.New(orchestrator.Opts{
		UserID: "tester",
		Sender: nopSender{},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := newConsoleModel(orch, nil, "http://localhost:8080", "tester", true)
	m.width = 80
	m.vp.Width = 80
	m.vp.Height = 20
	return &m
}

func TestConsole_SlashMode(t *testing.T) {
	m := newTestConsole(t)
	m.runSlash("/mode FIELD")
	if got := m.orch.Mode(); got != protocol.ModeField {
		t.Errorf("Mode = %s, want FIELD", got)
	}

	m.runSlash("/mode nonsense")
	if !strings.Contains(m.note, "usage") {
		t.Errorf("note = %q, want usage hint", m.note)
	}
}

func TestConsole_SlashAttachMissingFile(t *testing.T) {
	m := newTestConsole(t)
	m.runSlash("/attach /nonexistent/damage.jpg")
	if !strings.Contains(m.note, "attach") {
		t.Errorf("note = %q, want attach error", m.note)
	}
	if len(m.orch.StagedFiles()) != 0 {
		t.Error("missing file must not stage")
	}
}

func TestConsole_SlashUnknown(t *testing.T) {
	m := newTestConsole(t)
	m.runSlash("/teleport")
	if !strings.Contains(m.note, "unknown command") {
		t.Errorf("note = %q, want unknown-command notice", m.note)
	}
}

func TestConsole_OverrideCollectsReason(t *testing.T) {
	m := newTestConsole(t)
	m.orch.HandleFrame(map[string]any{
		"type":             protocol.FrameMountPlate,
		"plate_id":         protocol.PlateAnomalyAlert,
		"intent":           "COMPLIANCE",
		"confidence":       1.0,
		"entities":         map[string]any{},
		"target_entity":    "CARBON_LLC",
		"suggested_action": "Review the flagged unit.",
		"timestamp":        protocol.Now(),
		"dataset": []any{map[string]any{
			"zone": "A4", "issue": "panel gap", "severity": "RED",
		}},
		"strategy": map[string]any{
			"skin": "AMBIENT_RECON", "urgency": float64(9),
			"vibration": true, "overlay": nil,
		},
	})

	if m.submit("o") != nil {
		t.Fatal("override keystroke should not produce a command")
	}
	if !m.reasonPrompt {
		t.Fatal("override must prompt for its reason")
	}

	m.submit("unit already wholesaled")
	if m.reasonPrompt {
		t.Error("reason prompt should clear after submission")
	}
	if m.orch.ActivePlate() != nil {
		t.Error("plate should clear after the reasoned override")
	}
}

func TestConsole_DismissAction(t *testing.T) {
	m := newTestConsole(t)
	m.orch.HandleFrame(map[string]any{
		"type":             protocol.FrameMountPlate,
		"plate_id":         protocol.PlateInventoryTable,
		"intent":           "INVENTORY_QUERY",
		"confidence":       0.9,
		"entities":         map[string]any{},
		"target_entity":    "CARBON_LLC",
		"suggested_action": "Here is the lot.",
		"timestamp":        protocol.Now(),
		"dataset":          []any{},
		"strategy": map[string]any{
			"skin": "SUPER_ADMIN", "urgency": float64(5),
			"vibration": false, "overlay": nil,
		},
	})
	if m.orch.ActivePlate() == nil {
		t.Fatal("plate did not mount")
	}

	m.submit("x")
	if m.orch.ActivePlate() != nil {
		t.Error("x should dismiss the active plate")
	}
}

func TestConsole_TranscriptRendersPlate(t *testing.T) {
	m := newTestConsole(t)
	m.orch.HandleFrame(map[string]any{
		"type":             protocol.FrameMountPlate,
		"plate_id":         protocol.PlateInventoryTable,
		"intent":           "INVENTORY_QUERY",
		"confidence":       0.9,
		"entities":         map[string]any{},
		"target_entity":    "CARBON_LLC",
		"suggested_action": "Here is the lot.",
		"timestamp":        protocol.Now(),
		"dataset": []any{map[string]any{
			"vin": "WP0AB2A99KS123456", "status": "AVAILABLE",
		}},
		"strategy": map[string]any{
			"skin": "SUPER_ADMIN", "urgency": float64(5),
			"vibration": false, "overlay": nil,
		},
	})

	out := m.renderTranscript()
	if !strings.Contains(out, "WP0AB2A99KS123456") {
		t.Error("transcript should render the mounted plate's rows")
	}
	if !strings.Contains(out, "dismiss") {
		t.Error("transcript should list the plate's action hints")
	}
}
