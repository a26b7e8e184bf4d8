package validate

import (
	"fmt"

	"github.com/autohaus/cos/internal/protocol"
)

// CheckFunc re-validates a structurally sound payload against the stricter
// shape a specific plate requires. A nil error admits the frame.
type CheckFunc func(p protocol.PlatePayload) error

// registry holds the per-plate semantic schemas. Plate ids without an entry
// pass through on the structural check alone.
var registry = map[string]CheckFunc{}

// Register installs a semantic schema for a plate id, replacing any prior
// entry. Intended for package init; not synchronized.
func Register(plateID string, check CheckFunc) {
	registry[plateID] = check
}

// Registered reports whether a semantic schema exists for the plate id.
func Registered(plateID string) bool {
	_, ok := registry[plateID]
	return ok
}

func init() {
	Register(protocol.PlateFinanceNote, checkFinanceNote)
	Register(protocol.PlateInventoryTable, checkInventoryTable)
	Register(protocol.PlateAmbiguity, checkAmbiguity)
	Register(protocol.PlateAnomalyAlert, checkAnomalyAlert)
}

// checkFinanceNote requires every dataset row to identify the note:
// vin, lender, and principal_amount.
func checkFinanceNote(p protocol.PlatePayload) error {
	if len(p.Dataset) == 0 {
		return fmt.Errorf("%s: dataset is empty", p.PlateID)
	}
	for i, raw := range p.Dataset {
		row, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: dataset[%d] is not an object", p.PlateID, i)
		}
		if err := wantString(row, i, p.PlateID, "vin"); err != nil {
			return err
		}
		if err := wantString(row, i, p.PlateID, "lender"); err != nil {
			return err
		}
		if _, ok := row["principal_amount"].(float64); !ok {
			return fmt.Errorf("%s: dataset[%d].principal_amount: missing or not a number", p.PlateID, i)
		}
	}
	return nil
}

// checkInventoryTable requires vin and status on every row.
func checkInventoryTable(p protocol.PlatePayload) error {
	for i, raw := range p.Dataset {
		row, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: dataset[%d] is not an object", p.PlateID, i)
		}
		if err := wantString(row, i, p.PlateID, "vin"); err != nil {
			return err
		}
		if err := wantString(row, i, p.PlateID, "status"); err != nil {
			return err
		}
	}
	return nil
}

// checkAmbiguity requires each candidate row to carry vin and entity so the
// collision selector can emit a well-formed choice.
func checkAmbiguity(p protocol.PlatePayload) error {
	if len(p.Dataset) == 0 {
		return fmt.Errorf("%s: dataset is empty", p.PlateID)
	}
	for i, raw := range p.Dataset {
		row, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: dataset[%d] is not an object", p.PlateID, i)
		}
		if err := wantString(row, i, p.PlateID, "vin"); err != nil {
			return err
		}
		if err := wantString(row, i, p.PlateID, "entity"); err != nil {
			return err
		}
	}
	return nil
}

// checkAnomalyAlert requires zone, issue, and a known severity per row.
func checkAnomalyAlert(p protocol.PlatePayload) error {
	if len(p.Dataset) == 0 {
		return fmt.Errorf("%s: dataset is empty", p.PlateID)
	}
	for i, raw := range p.Dataset {
		row, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: dataset[%d] is not an object", p.PlateID, i)
		}
		if err := wantString(row, i, p.PlateID, "zone"); err != nil {
			return err
		}
		if err := wantString(row, i, p.PlateID, "issue"); err != nil {
			return err
		}
		sev, _ := row["severity"].(string)
		if !protocol.ValidSeverity(sev) {
			return fmt.Errorf("%s: dataset[%d].severity: %q is not RED|YELLOW|GREEN", p.PlateID, i, sev)
		}
	}
	return nil
}

func wantString(row map[string]any, i int, plateID, key string) error {
	if _, ok := row[key].(string); !ok {
		return fmt.Errorf("%s: dataset[%d].%s: missing or not a string", plateID, i, key)
	}
	return nil
}
