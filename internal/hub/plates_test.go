package hub

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/autohaus/cos/internal/db"
	"github.com/autohaus/cos/internal/protocol"
	"github.com/autohaus/cos/internal/validate"
	"gorm.io/gorm"
)

// newTestDB opens a migrated, seeded in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := db.Seed(gdb); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return gdb
}

// asWireFrame round-trips a frame through JSON the way it reaches a client.
func asWireFrame(t *testing.T, frame protocol.ServerFrame) map[string]any {
	t.Helper()
	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return m
}

func TestBuildMount_FinanceChart(t *testing.T) {
	gdb := newTestDB(t)
	routed := Classify("show me the weekly revenue and profit numbers")
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateFinanceChart {
		t.Fatalf("PlateID = %s, want FINANCE_CHART", frame.PlateID)
	}
	if len(frame.Dataset) == 0 {
		t.Fatal("dataset is empty, want seeded revenue rows")
	}
	row := frame.Dataset[0].(map[string]any)
	if _, ok := row["revenue"].(float64); !ok {
		t.Errorf("revenue = %T, want float64", row["revenue"])
	}
}

func TestBuildMount_FinanceNoteForVIN(t *testing.T) {
	gdb := newTestDB(t)
	routed := Classify("pull the floor plan note on WP0AB2A99KS123456")
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateFinanceNote {
		t.Fatalf("PlateID = %s, want FINANCE_NOTE for VIN-scoped finance ask", frame.PlateID)
	}
	if len(frame.Dataset) != 1 {
		t.Fatalf("dataset rows = %d, want 1", len(frame.Dataset))
	}

	// The hydrated frame must survive the client's validation gate.
	payload, err := validate.Gate(asWireFrame(t, frame))
	if err != nil {
		t.Fatalf("Gate rejected hub-built frame: %v", err)
	}
	if payload.Corrupt {
		t.Error("payload marked corrupt")
	}
}

func TestBuildMount_InventoryPassesGate(t *testing.T) {
	gdb := newTestDB(t)
	routed := Classify("how many units do we have in stock on the lot")
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateInventoryTable {
		t.Fatalf("PlateID = %s, want INVENTORY_TABLE", frame.PlateID)
	}
	if _, err := validate.Gate(asWireFrame(t, frame)); err != nil {
		t.Fatalf("Gate rejected hub-built frame: %v", err)
	}
}

func TestBuildMount_LowConfidenceOverridesToAmbiguity(t *testing.T) {
	gdb := newTestDB(t)
	routed := Routed{Intent: IntentInventory, Confidence: 0.55, Entities: map[string]any{}, TargetEntity: "CARBON_LLC"}
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateAmbiguity {
		t.Fatalf("PlateID = %s, want AMBIGUITY_RESOLUTION below threshold", frame.PlateID)
	}
	if len(frame.Dataset) == 0 {
		t.Fatal("ambiguity dataset empty, want candidate vehicles")
	}
	row := frame.Dataset[0].(map[string]any)
	if row["vin"] == "" || row["entity"] == "" {
		t.Errorf("candidate row missing vin/entity: %v", row)
	}
	if _, err := validate.Gate(asWireFrame(t, frame)); err != nil {
		t.Fatalf("Gate rejected ambiguity frame: %v", err)
	}
}

func TestBuildMount_FinanceNoteWithoutRecordFallsBack(t *testing.T) {
	gdb := newTestDB(t)
	routed := Classify("pull the floor plan note on 1HGCM82633A004352")
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateChatResponse {
		t.Fatalf("PlateID = %s, want CHAT_RESPONSE when no note is on file", frame.PlateID)
	}
	if !strings.Contains(frame.SuggestedAction, "No floor plan note") {
		t.Errorf("SuggestedAction = %q, want the no-note fallback line", frame.SuggestedAction)
	}
	payload, err := validate.Gate(asWireFrame(t, frame))
	if err != nil {
		t.Fatalf("Gate rejected fallback frame: %v", err)
	}
	if payload.Corrupt {
		t.Error("fallback payload marked corrupt")
	}
}

func TestBuildMount_AmbiguityWithoutCandidatesFallsBack(t *testing.T) {
	gdb := newTestDB(t)
	routed := Routed{
		Intent:       IntentInventory,
		Confidence:   0.55,
		Entities:     map[string]any{"vin": "1HGCM82633A004352"},
		TargetEntity: "CARBON_LLC",
	}
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateChatResponse {
		t.Fatalf("PlateID = %s, want CHAT_RESPONSE when no candidate matches", frame.PlateID)
	}
	payload, err := validate.Gate(asWireFrame(t, frame))
	if err != nil {
		t.Fatalf("Gate rejected fallback frame: %v", err)
	}
	if payload.Corrupt {
		t.Error("fallback payload marked corrupt")
	}
}

func TestBuildMount_SingleKeywordMountsAmbiguity(t *testing.T) {
	gdb := newTestDB(t)
	routed := Classify("anything happening in the shop")
	if routed.Intent != IntentService {
		t.Fatalf("Intent = %s, want SERVICE", routed.Intent)
	}
	frame := BuildMount(gdb, routed, 5)

	if frame.PlateID != protocol.PlateAmbiguity {
		t.Fatalf("PlateID = %s, want AMBIGUITY_RESOLUTION for a one-keyword utterance", frame.PlateID)
	}
	if len(frame.Dataset) == 0 {
		t.Fatal("ambiguity dataset empty, want seeded candidates")
	}
	if _, err := validate.Gate(asWireFrame(t, frame)); err != nil {
		t.Fatalf("Gate rejected ambiguity frame: %v", err)
	}
}

func TestBuildMount_UnknownNeverAmbiguity(t *testing.T) {
	gdb := newTestDB(t)
	routed := Routed{Intent: IntentUnknown, Confidence: 0.5, Entities: map[string]any{}, TargetEntity: "CARBON_LLC"}
	frame := BuildMount(gdb, routed, 5)
	if frame.PlateID != protocol.PlateChatResponse {
		t.Errorf("PlateID = %s, want CHAT_RESPONSE (UNKNOWN is exempt from the override)", frame.PlateID)
	}
}

func TestBuildMount_StrategyAndOrigin(t *testing.T) {
	gdb := newTestDB(t)
	routed := Classify("show me the inventory")
	frame := BuildMount(gdb, routed, 9)

	if frame.Origin != protocol.OriginUser {
		t.Errorf("Origin = %q, want user", frame.Origin)
	}
	if frame.Strategy == nil {
		t.Fatal("Strategy is nil")
	}
	if frame.Strategy.Skin != protocol.SkinFieldDiagnostic {
		t.Errorf("Skin = %s, want FIELD_DIAGNOSTIC at urgency 9", frame.Strategy.Skin)
	}
	if !frame.Strategy.Audible() {
		t.Error("Audible() = false at urgency 9")
	}
}

func TestHydrate_DigitalTwinSeverities(t *testing.T) {
	gdb := newTestDB(t)
	rows := hydrate(gdb, protocol.PlateDigitalTwin, Routed{Entities: map[string]any{}})
	if len(rows) == 0 {
		t.Fatal("no findings, want aging seeded units")
	}
	first := rows[0].(map[string]any)
	if first["severity"] != protocol.SeverityRed {
		t.Errorf("oldest unit severity = %v, want RED (>= 90 days)", first["severity"])
	}
}

func TestHydrate_NilDB(t *testing.T) {
	rows := hydrate(nil, protocol.PlateInventoryTable, Routed{})
	if rows == nil {
		t.Fatal("rows = nil, want empty slice")
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}
