// Package validate gatekeeps inbound mount directives. Every frame claiming
// to be a MOUNT_PLATE passes a two-phase check before it may affect rendered
// state: a structural phase over the generic frame shape, then a semantic
// phase against the per-plate schema registry. The server is untrusted
// relative to rendering: failures are promoted to a visible corrupt plate,
// never silently dropped.
package validate

import (
	"fmt"
	"strings"

	"github.com/autohaus/cos/internal/protocol"
)

// Gate runs both validation phases over a decoded frame. It always returns
// a mountable payload: on failure the payload carries the original data
// plus Corrupt=true and a human-readable ValidationError, and the error
// describes the failure for the diagnostics path.
func Gate(frame map[string]any) (protocol.PlatePayload, error) {
	payload, err := structural(frame)
	if err == nil {
		if check, ok := registry[payload.PlateID]; ok {
			err = check(payload)
		}
	}
	if err != nil {
		payload.Corrupt = true
		payload.ValidationError = err.Error()
		return payload, err
	}
	return payload, nil
}

// structural verifies the generic frame shape and lifts it into a payload.
// Any missing or mistyped required field fails the frame.
func structural(frame map[string]any) (protocol.PlatePayload, error) {
	p := protocol.PlatePayload{}

	typ, _ := frame["type"].(string)
	if typ != protocol.FrameMountPlate {
		return lift(frame), fmt.Errorf("type %q is not %s", typ, protocol.FrameMountPlate)
	}

	var errs []string
	p.PlateID = requireString(frame, "plate_id", &errs)
	p.Intent = requireString(frame, "intent", &errs)
	p.Confidence = requireNumber(frame, "confidence", &errs)
	p.TargetEntity = requireString(frame, "target_entity", &errs)
	p.SuggestedAction = requireString(frame, "suggested_action", &errs)
	p.Timestamp = requireString(frame, "timestamp", &errs)

	if m, ok := frame["entities"].(map[string]any); ok {
		p.Entities = m
	} else {
		errs = append(errs, "entities: missing or not an object")
	}
	if d, ok := frame["dataset"].([]any); ok {
		p.Dataset = d
	} else {
		errs = append(errs, "dataset: missing or not an array")
	}
	if origin, ok := frame["origin"].(string); ok {
		p.Origin = origin
	} else {
		p.Origin = protocol.OriginUser
	}

	strat, err := structuralStrategy(frame["strategy"])
	if err != nil {
		errs = append(errs, err.Error())
	}
	p.Strategy = strat

	if len(errs) > 0 {
		keep := lift(frame)
		keep.PlateID = p.PlateID
		keep.Strategy = p.Strategy
		return keep, fmt.Errorf("structural: %s", strings.Join(errs, "; "))
	}
	return p, nil
}

// structuralStrategy checks the nested strategy block.
func structuralStrategy(v any) (protocol.UIStrategy, error) {
	var s protocol.UIStrategy
	m, ok := v.(map[string]any)
	if !ok {
		return s, fmt.Errorf("strategy: missing or not an object")
	}
	var errs []string
	if skin, ok := m["skin"].(string); ok {
		s.Skin = protocol.Skin(skin)
		if !s.Skin.Valid() {
			errs = append(errs, fmt.Sprintf("strategy.skin: unknown skin %q", skin))
		}
	} else {
		errs = append(errs, "strategy.skin: missing or not a string")
	}
	if urg, ok := m["urgency"].(float64); ok {
		s.Urgency = int(urg)
	} else {
		errs = append(errs, "strategy.urgency: missing or not a number")
	}
	if vib, ok := m["vibration"].(bool); ok {
		s.Vibration = vib
	} else {
		errs = append(errs, "strategy.vibration: missing or not a bool")
	}
	switch ov := m["overlay"].(type) {
	case nil:
	case string:
		s.Overlay = &ov
	default:
		errs = append(errs, "strategy.overlay: not a string or null")
	}
	if len(errs) > 0 {
		return s, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return s, nil
}

// lift copies whatever survives from a failed frame so the corrupt plate
// still carries the original data for the error view.
func lift(frame map[string]any) protocol.PlatePayload {
	p := protocol.PlatePayload{}
	p.PlateID, _ = frame["plate_id"].(string)
	p.Intent, _ = frame["intent"].(string)
	p.Confidence, _ = frame["confidence"].(float64)
	p.TargetEntity, _ = frame["target_entity"].(string)
	p.SuggestedAction, _ = frame["suggested_action"].(string)
	p.Timestamp, _ = frame["timestamp"].(string)
	p.Entities, _ = frame["entities"].(map[string]any)
	p.Dataset, _ = frame["dataset"].([]any)
	p.Origin, _ = frame["origin"].(string)
	return p
}

func requireString(frame map[string]any, key string, errs *[]string) string {
	s, ok := frame[key].(string)
	if !ok {
		*errs = append(*errs, key+": missing or not a string")
	}
	return s
}

func requireNumber(frame map[string]any, key string, errs *[]string) float64 {
	n, ok := frame[key].(float64)
	if !ok {
		*errs = append(*errs, key+": missing or not a number")
	}
	return n
}
