package hub

import (
	"regexp"
	"strings"

	"github.com/autohaus/cos/internal/protocol"
)

// Intent domains the classifier can route to.
const (
	IntentFinance    = "FINANCE"
	IntentInventory  = "INVENTORY"
	IntentService    = "SERVICE"
	IntentCRM        = "CRM"
	IntentLogistics  = "LOGISTICS"
	IntentCompliance = "COMPLIANCE"
	IntentUnknown    = "UNKNOWN"
)

// plateFor maps an intent domain to the plate the client mounts.
var plateFor = map[string]string{
	IntentFinance:    protocol.PlateFinanceChart,
	IntentInventory:  protocol.PlateInventoryTable,
	IntentService:    protocol.PlateServiceTimeline,
	IntentCRM:        protocol.PlateCRMProfile,
	IntentLogistics:  protocol.PlateLogisticsMap,
	IntentCompliance: protocol.PlateDigitalTwin,
	IntentUnknown:    protocol.PlateChatResponse,
}

// intentKeywords drives the deterministic router. The first domain whose
// keywords match the most wins; ties break in declaration order.
var intentKeywords = []struct {
	intent string
	words  []string
}{
	{IntentFinance, []string{"finance", "financial", "revenue", "money", "cash", "floor plan", "floorplan", "lender", "note", "principal", "margin", "profit", "lane"}},
	{IntentInventory, []string{"inventory", "stock", "units", "vehicles", "cars", "lot", "listing", "available"}},
	{IntentService, []string{"service", "repair", "recon", "maintenance", "oil", "brake", "inspection", "shop"}},
	{IntentCRM, []string{"customer", "client", "crm", "lead", "follow up", "follow-up", "buyer", "contact"}},
	{IntentLogistics, []string{"logistics", "transport", "driver", "delivery", "dispatch", "haul", "transit", "eta"}},
	{IntentCompliance, []string{"compliance", "audit", "title", "zone", "twin", "damage", "defect", "violation"}},
}

// vinPattern matches a 17-character VIN (no I, O, Q per ISO 3779).
var vinPattern = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)

// lanePattern matches "lane A" style references.
var lanePattern = regexp.MustCompile(`(?i)\blane\s+([A-Z])\b`)

// clientFacingWords flips the target entity to a handshake context.
var clientFacingWords = []string{"for the client", "to the client", "web lead", "external", "send to customer"}

// Routed is the classifier's verdict for one utterance.
type Routed struct {
	Intent          string
	Confidence      float64 // fraction in [0,1]
	Entities        map[string]any
	TargetEntity    string
	SuggestedAction string
}

// Classify routes an utterance to an intent domain with a confidence
// fraction. Deterministic keyword scoring stands in for a learned router;
// the wire contract is identical either way.
func Classify(text string) Routed {
	lower := strings.ToLower(text)

	bestIntent := IntentUnknown
	bestHits := 0
	for _, domain := range intentKeywords {
		hits := 0
		for _, w := range domain.words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestIntent = domain.intent
		}
	}

	// Confidence grows with corroborating keywords and saturates at 0.97.
	// A lone keyword stays below the collision threshold so the client
	// asks instead of guessing; a VIN in the utterance restores trust.
	confidence := 0.5
	switch {
	case bestHits >= 3:
		confidence = 0.97
	case bestHits == 2:
		confidence = 0.85
	case bestHits == 1:
		confidence = 0.65
	}

	entities := map[string]any{}
	if vin := vinPattern.FindString(strings.ToUpper(text)); vin != "" {
		entities["vin"] = vin
		if confidence < 0.85 {
			confidence = 0.85
		}
	}
	if m := lanePattern.FindStringSubmatch(text); m != nil {
		entities["lane"] = strings.ToUpper(m[1])
	}

	target := "CARBON_LLC"
	for _, w := range clientFacingWords {
		if strings.Contains(lower, w) {
			target = "CLIENT"
			break
		}
	}

	return Routed{
		Intent:          bestIntent,
		Confidence:      confidence,
		Entities:        entities,
		TargetEntity:    target,
		SuggestedAction: suggestedActionFor(bestIntent),
	}
}

// suggestedActionFor supplies the one-line next step shown in the transcript.
func suggestedActionFor(intent string) string {
	switch intent {
	case IntentFinance:
		return "Review weekly revenue by lane; flag notes due within 30 days."
	case IntentInventory:
		return "Check aging units and adjust pricing on anything past 60 days."
	case IntentService:
		return "Confirm open repair orders and recon queue depth."
	case IntentCRM:
		return "Follow up on the newest leads before end of day."
	case IntentLogistics:
		return "Verify in-transit units and confirm driver ETAs."
	case IntentCompliance:
		return "Walk the flagged zones and clear outstanding findings."
	default:
		return "Tell me more about what you need."
	}
}

// urgencyKeywords maps phrases to escalation and de-escalation signals.
var (
	criticalWords = []string{"fire", "accident", "crash", "stolen", "theft", "injury", "flood"}
	urgentWords   = []string{"urgent", "emergency", "now", "immediately", "asap", "leak", "damage", "broken", "overdue"}
	quietWords    = []string{"fyi", "no rush", "whenever", "later", "someday", "heads up", "heads-up"}
)

// ScoreUrgency maps an utterance to the 0-10 urgency scale. Critical
// phrases hit 9 so the client raises an audible alert; quiet phrasing
// drops to the ghost band.
func ScoreUrgency(text string) int {
	lower := strings.ToLower(text)
	for _, w := range criticalWords {
		if strings.Contains(lower, w) {
			return 9
		}
	}
	for _, w := range urgentWords {
		if strings.Contains(lower, w) {
			return 8
		}
	}
	for _, w := range quietWords {
		if strings.Contains(lower, w) {
			return 2
		}
	}
	return 5
}
