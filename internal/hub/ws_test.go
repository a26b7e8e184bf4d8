package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/autohaus/cos/internal/models"
	"github.com/autohaus/cos/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// dialTestHub spins up a hub server and returns a connected client that has
// already consumed the welcome frame.
func dialTestHub(t *testing.T) (*websocket.Conn, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &Hub{
		db:        newTestDB(t),
		manager:   NewConnectionManager(),
		uploadDir: t.TempDir(),
	}
	router := gin.New()
	h.registerRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	var welcome map[string]any
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome["type"] != protocol.FrameWelcome {
		t.Fatalf("first frame type = %v, want WELCOME", welcome["type"])
	}
	return ws, h
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := ws.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWS_CommandMountsPlate(t *testing.T) {
	ws, _ := dialTestHub(t)

	cmd := protocol.Command{
		Type:        protocol.FrameCommand,
		Message:     "show me the inventory on the lot",
		UserID:      "marcus",
		ClientMsgID: "m1",
	}
	if err := ws.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, ws)
	if frame["type"] != protocol.FrameMountPlate {
		t.Fatalf("type = %v, want MOUNT_PLATE", frame["type"])
	}
	if frame["plate_id"] != protocol.PlateInventoryTable {
		t.Errorf("plate_id = %v, want INVENTORY_TABLE", frame["plate_id"])
	}
	strategy, ok := frame["strategy"].(map[string]any)
	if !ok {
		t.Fatal("strategy block missing")
	}
	if strategy["skin"] != string(protocol.SkinSuperAdmin) {
		t.Errorf("skin = %v, want SUPER_ADMIN", strategy["skin"])
	}
	if _, ok := frame["dataset"].([]any); !ok {
		t.Error("dataset missing or not an array")
	}
}

func TestWS_EmptyCommand(t *testing.T) {
	ws, _ := dialTestHub(t)
	ws.WriteJSON(protocol.Command{Type: protocol.FrameCommand, Message: "   "})
	frame := readFrame(t, ws)
	if frame["type"] != protocol.FrameError {
		t.Errorf("type = %v, want ERROR for empty command", frame["type"])
	}
}

func TestWS_RawTextFallback(t *testing.T) {
	ws, _ := dialTestHub(t)
	if err := ws.WriteMessage(websocket.TextMessage, []byte("where is the transport driver")); err != nil {
		t.Fatal(err)
	}
	frame := readFrame(t, ws)
	if frame["type"] != protocol.FrameMountPlate {
		t.Fatalf("type = %v, want MOUNT_PLATE from raw text", frame["type"])
	}
	if frame["plate_id"] != protocol.PlateLogisticsMap {
		t.Errorf("plate_id = %v, want LOGISTICS_MAP", frame["plate_id"])
	}
}

func TestWS_UrgentCommandEscalatesSkin(t *testing.T) {
	ws, _ := dialTestHub(t)
	ws.WriteJSON(protocol.Command{Type: protocol.FrameCommand, Message: "coolant leak on a unit, check service now"})
	frame := readFrame(t, ws)
	strategy := frame["strategy"].(map[string]any)
	if strategy["skin"] != string(protocol.SkinFieldDiagnostic) {
		t.Errorf("skin = %v, want FIELD_DIAGNOSTIC", strategy["skin"])
	}
	if strategy["vibration"] != true {
		t.Error("vibration = false, want true")
	}
	if strategy["overlay"] != redPulseOverlay {
		t.Errorf("overlay = %v, want %q", strategy["overlay"], redPulseOverlay)
	}
}

func TestWS_CollisionChoiceRecorded(t *testing.T) {
	ws, h := dialTestHub(t)
	choice := protocol.CollisionChoice{
		Type:   protocol.FrameResolveCollision,
		UserID: "marcus",
		VIN:    "WP0AB2A99KS123456",
		Entity: "AutoHaus Dallas",
	}
	ws.WriteJSON(choice)
	frame := readFrame(t, ws)
	if frame["type"] != protocol.FrameSystem {
		t.Fatalf("type = %v, want SYSTEM confirmation", frame["type"])
	}

	var evt models.LedgerEvent
	if err := h.db.Where("event_type = ?", models.EventCollisionResolution).First(&evt).Error; err != nil {
		t.Fatalf("collision event not in ledger: %v", err)
	}
	if evt.TargetID != choice.VIN {
		t.Errorf("TargetID = %q, want %s", evt.TargetID, choice.VIN)
	}

	// Resending the same choice must not double-write.
	ws.WriteJSON(choice)
	readFrame(t, ws)
	var count int64
	h.db.Model(&models.LedgerEvent{}).Where("event_type = ?", models.EventCollisionResolution).Count(&count)
	if count != 1 {
		t.Errorf("collision events = %d, want 1 after resend", count)
	}
}

func TestWS_OverrideRequiresReason(t *testing.T) {
	ws, h := dialTestHub(t)
	ws.WriteJSON(protocol.AnomalyDecision{
		Type:     protocol.FrameAnomalyDecision,
		UserID:   "marcus",
		PlateID:  protocol.PlateAnomalyAlert,
		Approved: false,
	})
	frame := readFrame(t, ws)
	if frame["type"] != protocol.FrameError {
		t.Fatalf("type = %v, want ERROR for reasonless override", frame["type"])
	}

	var count int64
	h.db.Model(&models.LedgerEvent{}).Where("event_type = ?", models.EventAnomalyDecision).Count(&count)
	if count != 0 {
		t.Errorf("ledger events = %d, want 0 when override rejected", count)
	}

	ws.WriteJSON(protocol.AnomalyDecision{
		Type:     protocol.FrameAnomalyDecision,
		UserID:   "marcus",
		PlateID:  protocol.PlateAnomalyAlert,
		Approved: false,
		Reason:   "unit already wholesaled",
	})
	frame = readFrame(t, ws)
	if frame["type"] != protocol.FrameSystem {
		t.Fatalf("type = %v, want SYSTEM after reasoned override", frame["type"])
	}
	h.db.Model(&models.LedgerEvent{}).Where("event_type = ?", models.EventAnomalyDecision).Count(&count)
	if count != 1 {
		t.Errorf("ledger events = %d, want 1", count)
	}
}

func TestWS_ApproveDecision(t *testing.T) {
	ws, h := dialTestHub(t)
	ws.WriteJSON(protocol.AnomalyDecision{
		Type:     protocol.FrameAnomalyDecision,
		UserID:   "marcus",
		PlateID:  protocol.PlateAnomalyAlert,
		Approved: true,
	})
	frame := readFrame(t, ws)
	if frame["type"] != protocol.FrameSystem {
		t.Fatalf("type = %v, want SYSTEM", frame["type"])
	}
	msg, _ := frame["message"].(string)
	if !strings.HasPrefix(msg, "Approved") {
		t.Errorf("message = %q, want approval confirmation", msg)
	}

	var evt models.LedgerEvent
	if err := h.db.Where("event_type = ?", models.EventAnomalyDecision).First(&evt).Error; err != nil {
		t.Fatalf("decision not in ledger: %v", err)
	}
}
