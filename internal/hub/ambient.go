package hub

import (
	"context"
	"fmt"
	"log"

	"github.com/autohaus/cos/internal/models"
	"github.com/autohaus/cos/internal/notify"
	"github.com/autohaus/cos/internal/protocol"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Sweep is the ambient recon job: on a cron schedule it scans inventory for
// aging units and pushes an ANOMALY_ALERT broadcast with the ambient origin
// tag. Critical findings additionally escalate through the notifier.
type Sweep struct {
	db                *gorm.DB
	manager           *ConnectionManager
	notifier          notify.Notifier
	agingThreshold    int
	criticalThreshold int
	cron              *cron.Cron
}

// SweepOpts holds parameters for starting the ambient sweep.
type SweepOpts struct {
	DB                *gorm.DB
	Manager           *ConnectionManager
	Notifier          notify.Notifier
	Cron              string // 5-field cron expression
	AgingThreshold    int    // days in stock before a unit is flagged
	CriticalThreshold int    // days in stock before escalation
}

// StartSweep schedules the recon job. The first run happens on schedule,
// not immediately.
func StartSweep(opts SweepOpts) (*Sweep, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("hub: sweep db is required")
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("hub: sweep manager is required")
	}
	s := &Sweep{
		db:                opts.DB,
		manager:           opts.Manager,
		notifier:          opts.Notifier,
		agingThreshold:    opts.AgingThreshold,
		criticalThreshold: opts.CriticalThreshold,
		cron:              cron.New(),
	}
	if _, err := s.cron.AddFunc(opts.Cron, s.Run); err != nil {
		return nil, fmt.Errorf("hub: sweep cron %q: %w", opts.Cron, err)
	}
	s.cron.Start()
	log.Printf("hub: ambient sweep scheduled (%s, aging >= %d days)", opts.Cron, opts.AgingThreshold)
	return s, nil
}

// Stop halts the schedule. Runs already in flight finish.
func (s *Sweep) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Run executes one sweep pass. Exported so the serve path and tests can
// force a pass without waiting for the schedule.
func (s *Sweep) Run() {
	var aging []models.Vehicle
	err := s.db.Where("status = ? AND days_in_stock >= ?", models.VehicleAvailable, s.agingThreshold).
		Order("days_in_stock desc").Find(&aging).Error
	if err != nil {
		log.Printf("hub: sweep query failed: %v", err)
		return
	}
	if len(aging) == 0 {
		return
	}

	urgency := 5
	findings := []any{}
	for _, v := range aging {
		severity := protocol.SeverityYellow
		if v.DaysInStock >= s.criticalThreshold {
			severity = protocol.SeverityRed
			urgency = 9
		}
		findings = append(findings, map[string]any{
			"zone":       v.Location,
			"issue":      fmt.Sprintf("%d %s %s aging at %d days", v.Year, v.Make, v.Model, v.DaysInStock),
			"severity":   severity,
			"confidence": 95,
			"vin":        v.VIN,
		})
	}

	strategy := protocol.UIStrategy{Skin: protocol.SkinAmbientRecon, Urgency: urgency}
	if urgency >= 9 {
		strategy.Vibration = true
	}
	frame := protocol.ServerFrame{
		Type:            protocol.FrameMountPlate,
		PlateID:         protocol.PlateAnomalyAlert,
		Intent:          IntentCompliance,
		Confidence:      1.0,
		Entities:        map[string]any{"count": len(aging)},
		TargetEntity:    "CARBON_LLC",
		SuggestedAction: fmt.Sprintf("%d unit(s) past the aging threshold. Review pricing or wholesale.", len(aging)),
		Strategy:        &strategy,
		Timestamp:       protocol.Now(),
		Dataset:         findings,
		Origin:          protocol.OriginAmbient,
	}

	log.Printf("hub: ambient sweep flagged %d unit(s), urgency %d", len(aging), urgency)
	s.manager.Broadcast(frame)

	if urgency >= 9 && s.notifier != nil {
		evt := notify.Event{
			Title:    "Aging inventory escalation",
			Body:     frame.SuggestedAction,
			Severity: notify.SeverityRed,
			VIN:      aging[0].VIN,
			Zone:     aging[0].Location,
		}
		if err := s.notifier.Notify(context.Background(), evt); err != nil {
			log.Printf("hub: sweep escalation failed: %v", err)
		}
		s.recordEscalation(aging[0].VIN)
	}
}

// recordEscalation lands the escalation in the ledger, keyed per VIN per
// day so repeated sweeps do not spam the audit trail.
func (s *Sweep) recordEscalation(vin string) {
	evt := models.LedgerEvent{
		EventID:        uuid.NewString(),
		EventType:      models.EventAmbientEscalation,
		ActorType:      "SYSTEM",
		ActorID:        "ambient-sweep",
		TargetType:     "VEHICLE",
		TargetID:       vin,
		IdempotencyKey: fmt.Sprintf("ambient:%s:%s", vin, protocol.Now()[:10]),
	}
	if err := s.db.Create(&evt).Error; err != nil {
		log.Printf("hub: escalation ledger write failed: %v", err)
	}
}
