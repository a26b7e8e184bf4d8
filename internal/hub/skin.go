package hub

import "github.com/autohaus/cos/internal/protocol"

// redPulseOverlay is the overlay id clients flash for field-diagnostic
// mounts.
const redPulseOverlay = "porsche-red-pulse"

// ResolveSkin maps urgency and audience to the strategy directive. The hub
// is the single source of truth for visual expression; clients obey.
func ResolveSkin(urgency int, targetEntity string) protocol.UIStrategy {
	if urgency >= 8 {
		overlay := redPulseOverlay
		return protocol.UIStrategy{
			Skin:      protocol.SkinFieldDiagnostic,
			Urgency:   urgency,
			Vibration: true,
			Overlay:   &overlay,
		}
	}
	switch targetEntity {
	case "CLIENT", "EXTERNAL", "WEB_LEAD":
		return protocol.UIStrategy{Skin: protocol.SkinClientHandshake, Urgency: urgency}
	}
	if urgency <= 2 {
		return protocol.UIStrategy{Skin: protocol.SkinGhost, Urgency: urgency}
	}
	return protocol.UIStrategy{Skin: protocol.SkinSuperAdmin, Urgency: urgency}
}
