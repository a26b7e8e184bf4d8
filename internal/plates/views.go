package plates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/autohaus/cos/internal/protocol"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).Padding(0, 1)
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).Padding(0, 1)
	corruptTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160")).Padding(0, 1)
	corruptFrame = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("160")).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	severityStyles = map[string]lipgloss.Style{
		protocol.SeverityRed:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160")),
		protocol.SeverityYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		protocol.SeverityGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// chrome wraps body content in the shared plate frame.
func chrome(title, body string, width int) string {
	if width <= 0 {
		width = 72
	}
	head := titleStyle.Render(title)
	return frameStyle.Width(width - 2).Render(head + "\n" + body)
}

// renderCorrupt is the visible error state for frames that failed the
// validation gate. The directive is shown, not silently dropped.
func renderCorrupt(p protocol.PlatePayload, width int) string {
	if width <= 0 {
		width = 72
	}
	var b strings.Builder
	b.WriteString(corruptTitle.Render("PLATE VALIDATION FAILED"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("plate: %s\n", orUnknown(p.PlateID)))
	b.WriteString(fmt.Sprintf("error: %s\n", p.ValidationError))
	if p.TargetEntity != "" {
		b.WriteString(fmt.Sprintf("target: %s\n", p.TargetEntity))
	}
	b.WriteString(dimStyle.Render("The directive was reported to the ledger for diagnosis."))
	return corruptFrame.Width(width - 2).Render(b.String())
}

// renderFallback is the generic view for unknown plate ids.
func renderFallback(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	if p.SuggestedAction != "" {
		b.WriteString(p.SuggestedAction + "\n")
	}
	if len(p.Entities) > 0 {
		keys := make([]string, 0, len(p.Entities))
		for k := range p.Entities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("%s: %v\n", labelStyle.Render(k), p.Entities[k]))
		}
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("unrecognized plate %q rendered generically", p.PlateID)))
	return chrome(orUnknown(p.PlateID), b.String(), width)
}

// renderFinanceChart draws one bar row per dataset entry. Rows are
// week-keyed objects whose remaining numeric fields are series values.
func renderFinanceChart(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	maxVal := 0.0
	type row struct {
		label  string
		series map[string]float64
	}
	var rows []row
	for _, raw := range p.Dataset {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		r := row{series: map[string]float64{}}
		for k, v := range m {
			switch val := v.(type) {
			case string:
				if r.label == "" {
					r.label = val
				}
			case float64:
				r.series[k] = val
				if val > maxVal {
					maxVal = val
				}
			}
		}
		rows = append(rows, r)
	}
	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	for _, r := range rows {
		keys := make([]string, 0, len(r.series))
		for k := range r.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := r.series[k]
			n := 0
			if maxVal > 0 {
				n = int(v / maxVal * float64(barWidth))
			}
			b.WriteString(fmt.Sprintf("%-4s %-12s %s %.0f\n",
				r.label, k, barStyle.Render(strings.Repeat("█", n)), v))
		}
	}
	if b.Len() == 0 {
		b.WriteString(dimStyle.Render("no finance rows in dataset"))
	}
	return chrome("FINANCE · "+p.TargetEntity, b.String(), width)
}

// renderFinanceNote lists the note fields the semantic schema guarantees.
func renderFinanceNote(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	for _, raw := range p.Dataset {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		vin, _ := m["vin"].(string)
		lender, _ := m["lender"].(string)
		principal, _ := m["principal_amount"].(float64)
		b.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render("VIN"), vin))
		b.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render("Lender"), lender))
		b.WriteString(fmt.Sprintf("%s  $%.2f\n", labelStyle.Render("Principal"), principal))
		if rate, ok := m["rate"].(float64); ok {
			b.WriteString(fmt.Sprintf("%s  %.2f%%\n", labelStyle.Render("Rate"), rate))
		}
		b.WriteString("\n")
	}
	return chrome("FLOOR PLAN NOTE", strings.TrimRight(b.String(), "\n"), width)
}

// renderInventoryTable draws the vehicle grid. vin and status are schema
// guaranteed; the rest is best-effort.
func renderInventoryTable(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-18s %-5s %-22s %-12s %s\n",
		"VIN", "YEAR", "MODEL", "STATUS", "DAYS"))
	for _, raw := range p.Dataset {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		vin, _ := m["vin"].(string)
		status, _ := m["status"].(string)
		year, _ := m["year"].(float64)
		model, _ := m["model"].(string)
		days, _ := m["days_in_stock"].(float64)
		b.WriteString(fmt.Sprintf("%-18s %-5.0f %-22s %-12s %.0f\n",
			vin, year, model, status, days))
	}
	return chrome("INVENTORY · "+p.TargetEntity, strings.TrimRight(b.String(), "\n"), width)
}

// renderLogistics lists jobs or map points.
func renderLogistics(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	for _, raw := range p.Dataset {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		driver, _ := m["driver"].(string)
		status, _ := m["status"].(string)
		dest, _ := m["destination"].(string)
		vin, _ := m["vin"].(string)
		b.WriteString(fmt.Sprintf("%s %-10s %-12s → %s\n", labelStyle.Render("▸"), driver, status, dest))
		if vin != "" {
			b.WriteString(dimStyle.Render("  "+vin) + "\n")
		}
	}
	if b.Len() == 0 {
		b.WriteString(dimStyle.Render("no dispatches in flight"))
	}
	return chrome("LOGISTICS", strings.TrimRight(b.String(), "\n"), width)
}

// renderServiceTimeline lists repair orders in arrival order.
func renderServiceTimeline(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	for _, raw := range p.Dataset {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		stage, _ := m["stage"].(string)
		vin, _ := m["vin"].(string)
		note, _ := m["note"].(string)
		b.WriteString(fmt.Sprintf("%-14s %s %s\n", labelStyle.Render(stage), vin, dimStyle.Render(note)))
	}
	if b.Len() == 0 {
		b.WriteString(dimStyle.Render("service lane is clear"))
	}
	return chrome("SERVICE TIMELINE", strings.TrimRight(b.String(), "\n"), width)
}

// renderCRMProfile shows the resolved person card.
func renderCRMProfile(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	for _, raw := range p.Dataset {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("%s  %v\n", labelStyle.Render(k), m[k]))
		}
	}
	return chrome("CRM · "+p.TargetEntity, strings.TrimRight(b.String(), "\n"), width)
}

// renderChatResponse is the no-plate-needed view: just the suggested action.
func renderChatResponse(p protocol.PlatePayload, width int) string {
	return chrome("RESPONSE", p.SuggestedAction, width)
}

// renderDigitalTwin shows zone findings ordered most severe first.
func renderDigitalTwin(p protocol.PlatePayload, width int) string {
	fs := Findings(p)
	order := map[string]int{protocol.SeverityRed: 0, protocol.SeverityYellow: 1, protocol.SeverityGreen: 2}
	sort.SliceStable(fs, func(i, j int) bool { return order[fs[i].Severity] < order[fs[j].Severity] })

	var b strings.Builder
	for _, f := range fs {
		sev := severityStyles[f.Severity].Render(fmt.Sprintf("%-7s", f.Severity))
		b.WriteString(fmt.Sprintf("%s %-14s %s", sev, f.Zone, f.Issue))
		if f.Source != "" {
			b.WriteString(dimStyle.Render(" (" + f.Source + ")"))
		}
		b.WriteString(fmt.Sprintf(" %d%%\n", f.Confidence))
	}
	if b.Len() == 0 {
		b.WriteString(dimStyle.Render("no findings recorded"))
	}
	return chrome("DIGITAL TWIN · "+p.TargetEntity, strings.TrimRight(b.String(), "\n"), width)
}

// renderAnomalyAlert shows the flagged condition and the two terminal
// decisions.
func renderAnomalyAlert(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	for _, f := range Findings(p) {
		sev := severityStyles[f.Severity].Render(f.Severity)
		b.WriteString(fmt.Sprintf("%s  %s — %s\n", sev, f.Zone, f.Issue))
	}
	if p.SuggestedAction != "" {
		b.WriteString("\n" + p.SuggestedAction + "\n")
	}
	b.WriteString(dimStyle.Render("[a] approve as-is   [o] override with reason"))
	return chrome("ANOMALY · urgency "+fmt.Sprint(p.Strategy.Urgency), b.String(), width)
}

// renderAmbiguity shows the numbered candidate selector.
func renderAmbiguity(p protocol.PlatePayload, width int) string {
	var b strings.Builder
	b.WriteString("Multiple matches. Select one to resume:\n\n")
	for i, opt := range Options(p) {
		b.WriteString(fmt.Sprintf("%s %d %s %d %s (%s)\n",
			labelStyle.Render("▸"), i+1, opt.Entity, opt.Year, opt.Model, opt.VIN))
		detail := []string{}
		if opt.Location != "" {
			detail = append(detail, opt.Location)
		}
		if opt.Insurance != "" {
			detail = append(detail, opt.Insurance)
		}
		if opt.DaysInState > 0 {
			detail = append(detail, fmt.Sprintf("%d days", opt.DaysInState))
		}
		if len(detail) > 0 {
			b.WriteString(dimStyle.Render("    "+strings.Join(detail, " · ")) + "\n")
		}
	}
	return chrome("RESOLVE COLLISION", strings.TrimRight(b.String(), "\n"), width)
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
