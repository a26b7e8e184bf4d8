package models

import "time"

// LedgerEvent is one append-only audit record. Render failures, anomaly
// decisions, and collision resolutions all land here. IdempotencyKey
// deduplicates client resends.
type LedgerEvent struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	EventID        string `gorm:"size:36;uniqueIndex;not null"`
	EventType      string `gorm:"size:48;index;not null"`
	ActorType      string `gorm:"size:16"`
	ActorID        string `gorm:"size:64"`
	ActorRole      string `gorm:"size:16"`
	TargetType     string `gorm:"size:16"`
	TargetID       string `gorm:"size:64;index"`
	Payload        string `gorm:"type:text"`
	IdempotencyKey string `gorm:"size:64;uniqueIndex"`
	CreatedAt      time.Time
}

// Ledger event types.
const (
	EventRenderFailed        = "UI_RENDER_FAILED"
	EventAnomalyDecision     = "ANOMALY_DECISION"
	EventCollisionResolution = "COLLISION_RESOLUTION"
	EventAmbientEscalation   = "AMBIENT_ESCALATION"
)
