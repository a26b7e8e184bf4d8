package hub

import (
	"testing"

	"github.com/autohaus/cos/internal/protocol"
)

func TestResolveSkin_HighUrgency(t *testing.T) {
	s := ResolveSkin(8, "CARBON_LLC")
	if s.Skin != protocol.SkinFieldDiagnostic {
		t.Errorf("Skin = %s, want FIELD_DIAGNOSTIC", s.Skin)
	}
	if !s.Vibration {
		t.Error("Vibration = false, want true for urgency >= 8")
	}
	if s.Overlay == nil || *s.Overlay != redPulseOverlay {
		t.Errorf("Overlay = %v, want %q", s.Overlay, redPulseOverlay)
	}
}

func TestResolveSkin_HighUrgencyBeatsClientFacing(t *testing.T) {
	s := ResolveSkin(9, "CLIENT")
	if s.Skin != protocol.SkinFieldDiagnostic {
		t.Errorf("Skin = %s, want FIELD_DIAGNOSTIC (urgency wins)", s.Skin)
	}
}

func TestResolveSkin_ClientFacing(t *testing.T) {
	for _, target := range []string{"CLIENT", "EXTERNAL", "WEB_LEAD"} {
		s := ResolveSkin(5, target)
		if s.Skin != protocol.SkinClientHandshake {
			t.Errorf("ResolveSkin(5, %s).Skin = %s, want CLIENT_HANDSHAKE", target, s.Skin)
		}
		if s.Vibration {
			t.Errorf("ResolveSkin(5, %s).Vibration = true, want false", target)
		}
	}
}

func TestResolveSkin_Ghost(t *testing.T) {
	s := ResolveSkin(2, "CARBON_LLC")
	if s.Skin != protocol.SkinGhost {
		t.Errorf("Skin = %s, want GHOST for urgency <= 2", s.Skin)
	}
	if s.Overlay != nil {
		t.Errorf("Overlay = %v, want nil", s.Overlay)
	}
}

func TestResolveSkin_Default(t *testing.T) {
	s := ResolveSkin(5, "CARBON_LLC")
	if s.Skin != protocol.SkinSuperAdmin {
		t.Errorf("Skin = %s, want SUPER_ADMIN", s.Skin)
	}
	if s.Urgency != 5 {
		t.Errorf("Urgency = %d, want 5 preserved", s.Urgency)
	}
}
