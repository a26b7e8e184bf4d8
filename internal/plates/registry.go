// Package plates maps plate identifiers to renderable, independently
// interactive views. Renderers are pure functions of the payload; user
// decisions flow back through the callbacks a view is handed, never by
// mutating orchestrator state directly.
package plates

import (
	"encoding/json"
	"fmt"

	"github.com/autohaus/cos/internal/protocol"
)

// Callbacks are the only levers a plate may pull.
type Callbacks struct {
	Dismiss func()
	Resolve func(protocol.EntityOption)
	Decide  func(approve bool, reason string)
}

// Action is one user decision a mounted plate offers.
type Action struct {
	Key   string // keypress that triggers it
	Label string
	Do    func()
}

// Plate pairs a renderer with its decision surface.
type Plate struct {
	Render  func(p protocol.PlatePayload, width int) string
	Actions func(p protocol.PlatePayload, cb Callbacks) []Action
}

var registry = map[string]Plate{}

// Register installs a plate view. Intended for package init.
func Register(plateID string, pl Plate) {
	registry[plateID] = pl
}

// Render produces the view for a payload. Corrupt payloads render the
// error view; unknown plate ids render the generic fallback built from the
// suggested action and entity map — never nothing.
func Render(p protocol.PlatePayload, width int) string {
	if p.Corrupt {
		return renderCorrupt(p, width)
	}
	if pl, ok := registry[p.PlateID]; ok && pl.Render != nil {
		return pl.Render(p, width)
	}
	return renderFallback(p, width)
}

// Actions lists the decisions the active plate offers. Every plate can be
// dismissed.
func Actions(p protocol.PlatePayload, cb Callbacks) []Action {
	var actions []Action
	if pl, ok := registry[p.PlateID]; ok && pl.Actions != nil && !p.Corrupt {
		actions = pl.Actions(p, cb)
	}
	actions = append(actions, Action{Key: "x", Label: "dismiss", Do: cb.Dismiss})
	return actions
}

// Options decodes the candidate rows of an ambiguity plate. Rows that do
// not decode are skipped; the validation gate has already guaranteed vin
// and entity are present on admitted frames.
func Options(p protocol.PlatePayload) []protocol.EntityOption {
	var opts []protocol.EntityOption
	for _, raw := range p.Dataset {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		data, err := json.Marshal(row)
		if err != nil {
			continue
		}
		var opt protocol.EntityOption
		if err := json.Unmarshal(data, &opt); err != nil {
			continue
		}
		opts = append(opts, opt)
	}
	return opts
}

// Findings decodes the finding rows of a digital-twin or anomaly plate.
func Findings(p protocol.PlatePayload) []protocol.Finding {
	var fs []protocol.Finding
	for _, raw := range p.Dataset {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		data, err := json.Marshal(row)
		if err != nil {
			continue
		}
		var f protocol.Finding
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		fs = append(fs, f)
	}
	return fs
}

func init() {
	Register(protocol.PlateFinanceChart, Plate{Render: renderFinanceChart})
	Register(protocol.PlateFinanceNote, Plate{Render: renderFinanceNote})
	Register(protocol.PlateInventoryTable, Plate{Render: renderInventoryTable})
	Register(protocol.PlateLogisticsMap, Plate{Render: renderLogistics})
	Register(protocol.PlateServiceTimeline, Plate{Render: renderServiceTimeline})
	Register(protocol.PlateCRMProfile, Plate{Render: renderCRMProfile})
	Register(protocol.PlateChatResponse, Plate{Render: renderChatResponse})
	Register(protocol.PlateDigitalTwin, Plate{Render: renderDigitalTwin})
	Register(protocol.PlateAnomalyAlert, Plate{
		Render:  renderAnomalyAlert,
		Actions: anomalyActions,
	})
	Register(protocol.PlateAmbiguity, Plate{
		Render:  renderAmbiguity,
		Actions: ambiguityActions,
	})
}

// anomalyActions exposes the two terminal anomaly decisions. The override
// path prompts for its mandatory reason in the host UI; Decide enforces it.
func anomalyActions(p protocol.PlatePayload, cb Callbacks) []Action {
	return []Action{
		{Key: "a", Label: "approve", Do: func() { cb.Decide(true, "") }},
		{Key: "o", Label: "override (reason required)", Do: nil},
	}
}

// ambiguityActions exposes one numbered selection per candidate.
func ambiguityActions(p protocol.PlatePayload, cb Callbacks) []Action {
	var actions []Action
	for i, opt := range Options(p) {
		opt := opt
		actions = append(actions, Action{
			Key:   fmt.Sprintf("%d", i+1),
			Label: fmt.Sprintf("%s %s", opt.Entity, opt.VIN),
			Do:    func() { cb.Resolve(opt) },
		})
	}
	return actions
}
