package hub

import (
	"strings"

	"github.com/autohaus/cos/internal/models"
	"github.com/autohaus/cos/internal/protocol"
	"gorm.io/gorm"
)

// ambiguityThreshold is the confidence floor below which a routed intent is
// overridden to collision resolution.
const ambiguityThreshold = 0.7

// maxDatasetRows caps plate hydration so one mount never ships the whole
// table.
const maxDatasetRows = 50

// emptyFallbacks covers the plates whose client schema rejects an empty
// dataset. When hydration finds no rows, the mount downgrades to a chat
// reply carrying the fallback line instead of shipping a frame the client
// would flag corrupt.
var emptyFallbacks = map[string]string{
	protocol.PlateFinanceNote: "No floor plan note on file for that unit.",
	protocol.PlateAmbiguity:   "No matching units found. Give me a VIN or stock number.",
}

// BuildMount translates a routed intent into a MOUNT_PLATE frame with the
// dataset hydrated from the store.
func BuildMount(gdb *gorm.DB, routed Routed, urgency int) protocol.ServerFrame {
	plateID := plateFor[routed.Intent]

	if routed.Confidence < ambiguityThreshold && routed.Intent != IntentUnknown {
		plateID = protocol.PlateAmbiguity
	}
	// A finance ask scoped to one VIN mounts the note, not the chart.
	if plateID == protocol.PlateFinanceChart {
		if _, ok := routed.Entities["vin"]; ok {
			plateID = protocol.PlateFinanceNote
		}
	}

	if routed.Entities == nil {
		routed.Entities = map[string]any{}
	}
	dataset := hydrate(gdb, plateID, routed)
	if msg, ok := emptyFallbacks[plateID]; ok && len(dataset) == 0 {
		plateID = protocol.PlateChatResponse
		routed.SuggestedAction = msg
	}
	frame := protocol.ServerFrame{
		Type:            protocol.FrameMountPlate,
		PlateID:         plateID,
		Intent:          routed.Intent,
		Confidence:      routed.Confidence,
		Entities:        routed.Entities,
		TargetEntity:    routed.TargetEntity,
		SuggestedAction: routed.SuggestedAction,
		Timestamp:       protocol.Now(),
		Origin:          protocol.OriginUser,
		Dataset:         dataset,
	}
	strategy := ResolveSkin(urgency, routed.TargetEntity)
	frame.Strategy = &strategy
	return frame
}

// hydrate loads the dataset rows backing a plate. An empty slice is valid
// for plates whose schema allows it; nil never is, so every branch returns
// at least [].
func hydrate(gdb *gorm.DB, plateID string, routed Routed) []any {
	rows := []any{}
	if gdb == nil {
		return rows
	}

	switch plateID {
	case protocol.PlateFinanceChart:
		var revs []models.WeeklyRevenue
		q := gdb.Order("lane, week").Limit(maxDatasetRows)
		if lane, ok := routed.Entities["lane"].(string); ok {
			q = q.Where("lane = ?", lane)
		}
		q.Find(&revs)
		for _, r := range revs {
			rows = append(rows, map[string]any{
				"lane":    r.Lane,
				"week":    r.Week,
				"entity":  r.Entity,
				"revenue": r.Revenue.InexactFloat64(),
			})
		}

	case protocol.PlateFinanceNote:
		var notes []models.FinanceNote
		q := gdb.Limit(maxDatasetRows)
		if vin, ok := routed.Entities["vin"].(string); ok {
			q = q.Where("vin = ?", vin)
		}
		q.Find(&notes)
		for _, n := range notes {
			rows = append(rows, map[string]any{
				"vin":              n.VIN,
				"lender":           n.Lender,
				"principal_amount": n.PrincipalAmount.InexactFloat64(),
				"rate":             n.Rate,
				"lane":             n.Lane,
			})
		}

	case protocol.PlateInventoryTable:
		var vehicles []models.Vehicle
		gdb.Order("days_in_stock desc").Limit(maxDatasetRows).Find(&vehicles)
		for _, v := range vehicles {
			rows = append(rows, map[string]any{
				"vin":           v.VIN,
				"status":        v.Status,
				"year":          v.Year,
				"make":          v.Make,
				"model":         v.Model,
				"price":         v.Price.InexactFloat64(),
				"days_in_stock": v.DaysInStock,
			})
		}

	case protocol.PlateLogisticsMap:
		var jobs []models.LogisticsJob
		gdb.Order("created_at desc").Limit(maxDatasetRows).Find(&jobs)
		for _, j := range jobs {
			row := map[string]any{
				"vin":         j.VIN,
				"driver":      j.Driver,
				"status":      j.Status,
				"destination": j.Destination,
			}
			if j.ETA != nil {
				row["eta"] = j.ETA.UTC().Format("15:04 MST")
			}
			rows = append(rows, row)
		}

	case protocol.PlateDigitalTwin:
		// Recon and aging units become zone findings.
		var vehicles []models.Vehicle
		gdb.Where("status = ? OR days_in_stock >= ?", models.VehicleRecon, 60).
			Order("days_in_stock desc").Limit(maxDatasetRows).Find(&vehicles)
		for _, v := range vehicles {
			severity := protocol.SeverityYellow
			if v.DaysInStock >= 90 {
				severity = protocol.SeverityRed
			}
			rows = append(rows, map[string]any{
				"zone":       v.Location,
				"issue":      agingIssue(v),
				"severity":   severity,
				"confidence": 90,
			})
		}

	case protocol.PlateAmbiguity:
		rows = candidateVehicles(gdb, routed)
	}

	return rows
}

// candidateVehicles builds the collision-selector options: units matching
// whatever partial signal the utterance carried.
func candidateVehicles(gdb *gorm.DB, routed Routed) []any {
	rows := []any{}
	var vehicles []models.Vehicle
	q := gdb.Limit(8)
	if vin, ok := routed.Entities["vin"].(string); ok {
		q = q.Where("vin = ?", vin)
	}
	q.Find(&vehicles)
	for _, v := range vehicles {
		rows = append(rows, map[string]any{
			"vin":           v.VIN,
			"entity":        v.Entity,
			"year":          v.Year,
			"model":         strings.TrimSpace(v.Make + " " + v.Model),
			"color":         v.Color,
			"insurance":     v.Insurance,
			"location":      v.Location,
			"days_in_state": v.DaysInStock,
		})
	}
	return rows
}

func agingIssue(v models.Vehicle) string {
	if v.Status == models.VehicleRecon {
		return "Unit held in recon"
	}
	return "Unit aging past threshold"
}
