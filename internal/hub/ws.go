package hub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/autohaus/cos/internal/models"
	"github.com/autohaus/cos/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// welcomeBanner is the first SYSTEM frame pushed after the upgrade.
const welcomeBanner = "AutoHaus C-OS — digital chief of staff connected."

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The hub fronts trusted console clients; browser origin checks are
	// handled at the edge.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleChat upgrades the connection and runs the per-client read loop.
func (h *Hub) handleChat(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("hub: upgrade failed: %v", err)
		return
	}
	clientID := "client_" + uuid.NewString()[:8]
	h.manager.Register(clientID, ws)
	defer func() {
		h.manager.Unregister(clientID)
		ws.Close()
	}()

	h.manager.SendPersonal(clientID, gin.H{
		"type":              protocol.FrameWelcome,
		"message":           welcomeBanner,
		"connected_clients": h.manager.ActiveCount(),
		"timestamp":         protocol.Now(),
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("hub: %s read error: %v", clientID, err)
			}
			return
		}
		h.dispatch(clientID, raw)
	}
}

// dispatch routes one inbound frame by its type discriminant. Unparseable
// frames fall back to treating the raw text as the utterance.
func (h *Hub) dispatch(clientID string, raw []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		h.processCommand(clientID, protocol.Command{Message: strings.TrimSpace(string(raw))})
		return
	}

	switch head.Type {
	case protocol.FrameResolveCollision:
		var choice protocol.CollisionChoice
		if err := json.Unmarshal(raw, &choice); err != nil {
			h.sendError(clientID, "Malformed collision frame.")
			return
		}
		h.processCollision(clientID, choice)

	case protocol.FrameAnomalyDecision:
		var decision protocol.AnomalyDecision
		if err := json.Unmarshal(raw, &decision); err != nil {
			h.sendError(clientID, "Malformed decision frame.")
			return
		}
		h.processDecision(clientID, decision)

	default:
		// COMMAND, and legacy frames that carry only {"message": ...}.
		var cmd protocol.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.sendError(clientID, "Malformed command frame.")
			return
		}
		h.processCommand(clientID, cmd)
	}
}

// processCommand runs the routing pipeline for one utterance and pushes the
// resulting mount frame back to the sender.
func (h *Hub) processCommand(clientID string, cmd protocol.Command) {
	text := strings.TrimSpace(cmd.Message)
	if text == "" {
		h.sendError(clientID, "Empty command received. Please provide an instruction.")
		return
	}

	routed := Classify(text)
	urgency := ScoreUrgency(text)
	frame := BuildMount(h.db, routed, urgency)

	log.Printf("hub: pushing plate %s to %s (intent: %s, skin: %s, urgency: %d)",
		frame.PlateID, clientID, frame.Intent, frame.Strategy.Skin, urgency)
	if err := h.manager.SendPersonal(clientID, frame); err != nil {
		log.Printf("hub: push to %s failed: %v", clientID, err)
	}
}

// processCollision records the operator's pick and confirms it.
func (h *Hub) processCollision(clientID string, choice protocol.CollisionChoice) {
	if choice.VIN == "" {
		h.sendError(clientID, "Collision choice is missing a VIN.")
		return
	}
	payload, _ := json.Marshal(choice)
	h.appendLedger(models.LedgerEvent{
		EventID:        uuid.NewString(),
		EventType:      models.EventCollisionResolution,
		ActorType:      "HUMAN",
		ActorID:        choice.UserID,
		TargetType:     "VEHICLE",
		TargetID:       choice.VIN,
		Payload:        string(payload),
		IdempotencyKey: fmt.Sprintf("collision:%s:%s", choice.UserID, choice.VIN),
	})

	h.manager.SendPersonal(clientID, gin.H{
		"type":      protocol.FrameSystem,
		"message":   fmt.Sprintf("Locked to %s (%s).", choice.Entity, choice.VIN),
		"timestamp": protocol.Now(),
	})
}

// processDecision records an anomaly verdict. Overrides without a reason
// are rejected before anything is written.
func (h *Hub) processDecision(clientID string, decision protocol.AnomalyDecision) {
	if !decision.Approved && strings.TrimSpace(decision.Reason) == "" {
		h.sendError(clientID, "Override requires a reason.")
		return
	}
	payload, _ := json.Marshal(decision)
	h.appendLedger(models.LedgerEvent{
		EventID:        uuid.NewString(),
		EventType:      models.EventAnomalyDecision,
		ActorType:      "HUMAN",
		ActorID:        decision.UserID,
		TargetType:     "PLATE",
		TargetID:       decision.PlateID,
		Payload:        string(payload),
		IdempotencyKey: fmt.Sprintf("decision:%s:%s", decision.UserID, decision.PlateID),
	})

	verdict := "Approved"
	if !decision.Approved {
		verdict = "Override recorded"
	}
	h.manager.SendPersonal(clientID, gin.H{
		"type":      protocol.FrameSystem,
		"message":   fmt.Sprintf("%s for %s.", verdict, decision.PlateID),
		"timestamp": protocol.Now(),
	})
}

// appendLedger writes an audit event, treating idempotency-key conflicts as
// a resend rather than a failure.
func (h *Hub) appendLedger(evt models.LedgerEvent) {
	if err := h.db.Create(&evt).Error; err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") ||
			strings.Contains(err.Error(), "Duplicate") {
			return
		}
		log.Printf("hub: ledger write failed (%s): %v", evt.EventType, err)
	}
}

func (h *Hub) sendError(clientID, msg string) {
	h.manager.SendPersonal(clientID, gin.H{
		"type":      protocol.FrameError,
		"message":   msg,
		"timestamp": protocol.Now(),
	})
}
