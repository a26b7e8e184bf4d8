// Package protocol defines the plate-hydration wire contract between the
// hub and its clients. Contract v1: all frames are JSON objects carrying a
// "type" discriminant; confidence travels as a fraction in [0,1].
package protocol

import "time"

// Frame type discriminants (server → client unless noted).
const (
	FrameMountPlate = "MOUNT_PLATE"
	FrameChat       = "CHAT_RESPONSE"
	FrameSystem     = "SYSTEM"
	FrameWelcome    = "WELCOME"
	FrameError      = "ERROR"

	// Client → server.
	FrameCommand          = "COMMAND"
	FrameResolveCollision = "RESOLVE_COLLISION"
	FrameAnomalyDecision  = "ANOMALY_DECISION"
)

// Skin is a server-selected visual theme. The hub is the single source of
// truth for skin selection; clients obey.
type Skin string

const (
	SkinSuperAdmin      Skin = "SUPER_ADMIN"
	SkinFieldDiagnostic Skin = "FIELD_DIAGNOSTIC"
	SkinClientHandshake Skin = "CLIENT_HANDSHAKE"
	SkinGhost           Skin = "GHOST"
	SkinAmbientRecon    Skin = "AMBIENT_RECON"
)

// Valid reports whether s is a known skin.
func (s Skin) Valid() bool {
	switch s {
	case SkinSuperAdmin, SkinFieldDiagnostic, SkinClientHandshake, SkinGhost, SkinAmbientRecon:
		return true
	}
	return false
}

// Mode is the user-selected layout density preference. Independent of Skin:
// both axes can be active at once.
type Mode string

const (
	ModeStandard Mode = "STANDARD"
	ModeField    Mode = "FIELD"
	ModeAmbient  Mode = "AMBIENT"
)

// Plate identifiers the hub can mount.
const (
	PlateFinanceChart    = "FINANCE_CHART"
	PlateFinanceNote     = "FINANCE_NOTE"
	PlateInventoryTable  = "INVENTORY_TABLE"
	PlateServiceTimeline = "SERVICE_TIMELINE"
	PlateCRMProfile      = "CRM_PROFILE"
	PlateLogisticsMap    = "LOGISTICS_MAP"
	PlateDigitalTwin     = "DIGITAL_TWIN"
	PlateAnomalyAlert    = "ANOMALY_ALERT"
	PlateAmbiguity       = "AMBIGUITY_RESOLUTION"
	PlateChatResponse    = "CHAT_RESPONSE"
)

// Origin tags distinguishing how a plate came to be mounted.
const (
	OriginUser    = "user"
	OriginAmbient = "ambient"
)

// UIStrategy is the nested rendering directive inside a mount frame.
// Urgency is a 0–10 scale; 9 and above must additionally produce an
// audible alert on the client. Vibration triggers haptics independently
// of urgency.
type UIStrategy struct {
	Skin      Skin    `json:"skin"`
	Urgency   int     `json:"urgency"`
	Vibration bool    `json:"vibration"`
	Overlay   *string `json:"overlay"`
}

// Audible reports whether the strategy's urgency crosses the audible-alert
// threshold.
func (s UIStrategy) Audible() bool { return s.Urgency >= 9 }

// ServerFrame is the superset of fields a server-pushed frame may carry.
// Field presence is frame-type and plate-id dependent; the validate package
// gates mount frames before they touch client state.
type ServerFrame struct {
	Type            string         `json:"type"`
	Message         string         `json:"message,omitempty"`
	PlateID         string         `json:"plate_id"`
	Intent          string         `json:"intent"`
	Confidence      float64        `json:"confidence"`
	Entities        map[string]any `json:"entities"`
	TargetEntity    string         `json:"target_entity"`
	SuggestedAction string         `json:"suggested_action"`
	Strategy        *UIStrategy    `json:"strategy,omitempty"`
	Timestamp       string         `json:"timestamp"`
	Dataset         []any          `json:"dataset"`
	Origin          string         `json:"origin"`

	// Metadata.
	ConnectedClients int `json:"connected_clients,omitempty"`
}

// Command is the client → server frame carrying a user utterance.
// ClientMsgID doubles as the idempotency key for resends.
type Command struct {
	Type        string   `json:"type"`
	Message     string   `json:"message"`
	UserID      string   `json:"user_id"`
	ClientMsgID string   `json:"client_msg_id"`
	UploadIDs   []string `json:"upload_ids,omitempty"`
}

// CollisionChoice is the client → server frame resolving an ambiguity plate.
type CollisionChoice struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	VIN    string `json:"vin"`
	Entity string `json:"entity"`
}

// AnomalyDecision is the client → server frame recording an anomaly verdict.
// Reason is required when Approved is false.
type AnomalyDecision struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	PlateID  string `json:"plate_id"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Severity levels for findings, strictly ordered by risk.
const (
	SeverityRed    = "RED"
	SeverityYellow = "YELLOW"
	SeverityGreen  = "GREEN"
)

// ValidSeverity reports whether s is a known severity label.
func ValidSeverity(s string) bool {
	return s == SeverityRed || s == SeverityYellow || s == SeverityGreen
}

// Finding is a structured defect/observation record carried by digital-twin
// plates and chat messages. Confidence is a display percentage (0–100).
type Finding struct {
	Zone       string `json:"zone"`
	Issue      string `json:"issue"`
	Severity   string `json:"severity"`
	Source     string `json:"source,omitempty"`
	Confidence int    `json:"confidence"`
}

// EntityOption is one candidate in an ambiguity-resolution plate. Read-only:
// selecting one emits a CollisionChoice and clears the plate.
type EntityOption struct {
	VIN         string `json:"vin"`
	Entity      string `json:"entity"`
	Year        int    `json:"year"`
	Model       string `json:"model"`
	Color       string `json:"color"`
	Insurance   string `json:"insurance,omitempty"`
	Location    string `json:"location,omitempty"`
	DaysInState int    `json:"days_in_state"`
}

// PlatePayload is the client-held record of the active plate. At most one
// is live at a time; a newly validated frame unconditionally supersedes it.
// Corrupt and ValidationError are set by the client when the frame failed
// the validation gate; such plates render a visible error state instead of
// being dropped.
type PlatePayload struct {
	PlateID         string
	Intent          string
	Confidence      float64
	Entities        map[string]any
	TargetEntity    string
	SuggestedAction string
	Strategy        UIStrategy
	Timestamp       string
	Dataset         []any
	Origin          string

	Corrupt         bool
	ValidationError string
}

// DisplayConfidence converts the wire fraction to the 0–100 scale used by
// the transcript and plate chrome.
func DisplayConfidence(frac float64) int {
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		// Defend against producers already on the percentage scale.
		if frac > 100 {
			return 100
		}
		return int(frac + 0.5)
	}
	return int(frac*100 + 0.5)
}

// Now returns a wire-format timestamp.
func Now() string { return time.Now().UTC().Format(time.RFC3339) }
