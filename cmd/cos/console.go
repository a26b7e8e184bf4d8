package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/autohaus/cos/internal/feedback"
	"github.com/autohaus/cos/internal/orchestrator"
	"github.com/autohaus/cos/internal/plates"
	"github.com/autohaus/cos/internal/protocol"
	"github.com/autohaus/cos/internal/report"
	"github.com/autohaus/cos/internal/transport"
)

func newConsoleCmd() *cobra.Command {
	var (
		configPath string
		hubURL     string
		userID     string
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Start the operator console",
		Long: `Launches the terminal console: a chat transcript, hydrated plates,
and the decision surfaces for collisions and anomaly verdicts.

With --offline the console runs without a hub, answering with canned
replies so the interface can be exercised on the road.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, configPath, hubURL, userID, offline)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cos.yaml", "path to C-OS config file")
	cmd.Flags().StringVar(&hubURL, "hub", "", "hub base URL (overrides config)")
	cmd.Flags().StringVar(&userID, "user", "", "operator user id (overrides config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "run without a hub connection")
	return cmd
}

// nopSender satisfies the orchestrator's sender in offline mode.
type nopSender struct{}

func (nopSender) Send(v any) error { return nil }

func runConsole(cmd *cobra.Command, configPath, hubURL, userID string, offline bool) error {
	cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if hubURL == "" {
		hubURL = cfg.Client.HubURL
	}
	if userID == "" {
		userID = cfg.Client.UserID
	}

	var (
		ctrl   *transport.Controller
		sender orchestrator.Sender = nopSender{}
		rep    orchestrator.Reporter
	)
	if !offline {
		ctrl, err = transport.New(transport.Opts{Endpoint: transport.EndpointFor(hubURL)})
		if err != nil {
			return err
		}
		sender = ctrl
		rep, err = report.New(hubURL)
		if err != nil {
			return err
		}
	}

	// The change hook fires before the program exists; the pointer is
	// assigned before Run, and Send on a nil program is the only race.
	var p *tea.Program
	orch, err := orchestrator.New(orchestrator.Opts{
		UserID:   userID,
		Sender:   sender,
		Feedback: feedback.New(feedback.Opts{}),
		Reporter: rep,
		Simulate: offline,
		OnChange: func() {
			if p != nil {
				p.Send(stateMsg{})
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ctrl != nil {
		ctrl.Start(ctx)
		defer ctrl.Close()
		go func() {
			for frame := range ctrl.Frames() {
				orch.HandleFrame(frame)
			}
		}()
		go func() {
			for s := range ctrl.States() {
				if p != nil {
					p.Send(connMsg{state: s})
				}
			}
		}()
	}

	p = tea.NewProgram(
		newConsoleModel(orch, ctrl, hubURL, userID, offline),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// Messages delivered into the bubbletea loop.
type (
	stateMsg  struct{}
	connMsg   struct{ state transport.State }
	statusMsg struct{ note string }
)

type consoleTheme struct {
	status    lipgloss.Style
	human     lipgloss.Style
	bot       lipgloss.Style
	failed    lipgloss.Style
	timestamp lipgloss.Style
	chip      lipgloss.Style
	plateBox  lipgloss.Style
	help      lipgloss.Style
	skins     map[protocol.Skin]lipgloss.Color
}

func newConsoleTheme() consoleTheme {
	muted := lipgloss.Color("241")
	return consoleTheme{
		status:    lipgloss.NewStyle().Bold(true).Padding(0, 1),
		human:     lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1")).Bold(true),
		bot:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7fd4ff")).Bold(true),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f87")),
		timestamp: lipgloss.NewStyle().Foreground(muted),
		chip:      lipgloss.NewStyle().Foreground(muted),
		plateBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7fd4ff")).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(muted),
		skins: map[protocol.Skin]lipgloss.Color{
			protocol.SkinSuperAdmin:      lipgloss.Color("#7fd4ff"),
			protocol.SkinFieldDiagnostic: lipgloss.Color("#ff5f87"),
			protocol.SkinClientHandshake: lipgloss.Color("#05ffa1"),
			protocol.SkinGhost:           lipgloss.Color("243"),
			protocol.SkinAmbientRecon:    lipgloss.Color("#ffd166"),
		},
	}
}

type consoleModel struct {
	orch    *orchestrator.Orchestrator
	ctrl    *transport.Controller
	hubURL  string
	userID  string
	offline bool

	input   textinput.Model
	vp      viewport.Model
	spinner spinner.Model
	theme   consoleTheme

	conn         transport.State
	width        int
	height       int
	reasonPrompt bool
	note         string
}

func newConsoleModel(orch *orchestrator.Orchestrator, ctrl *transport.Controller, hubURL, userID string, offline bool) consoleModel {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Placeholder = "Ask about inventory, finance, logistics... (/attach, /mode, /dismiss)"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 4

	return consoleModel{
		orch:    orch,
		ctrl:    ctrl,
		hubURL:  hubURL,
		userID:  userID,
		offline: offline,
		input:   input,
		vp:      vp,
		spinner: sp,
		theme:   newConsoleTheme(),
		conn:    transport.StateConnecting,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case stateMsg:
		m.refreshViewport()
	case connMsg:
		m.conn = msg.state
		m.refreshViewport()
	case statusMsg:
		m.note = msg.note
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = maxInt(3, msg.Height-5)
		m.input.Width = maxInt(20, msg.Width-4)
		m.refreshViewport()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.reasonPrompt {
				m.reasonPrompt = false
				m.note = "override canceled"
				m.input.Placeholder = ""
				return m, tea.Batch(cmds...)
			}
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if cmd := m.submit(text); cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// submit routes one entered line: override reasons first, then slash
// commands, then single-key plate actions, then a plain send.
func (m *consoleModel) submit(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	if m.reasonPrompt {
		m.reasonPrompt = false
		m.input.Placeholder = ""
		if err := m.orch.DecideAnomaly(false, text); err != nil {
			m.note = err.Error()
		}
		return nil
	}
	if strings.HasPrefix(text, "/") {
		m.runSlash(text)
		return nil
	}

	if active := m.orch.ActivePlate(); active != nil && !active.Corrupt {
		for _, action := range plates.Actions(*active, m.callbacks()) {
			if text != action.Key {
				continue
			}
			if action.Do == nil {
				// The override path: collect the mandatory reason first.
				m.reasonPrompt = true
				m.input.Placeholder = "Override reason (required)"
				return nil
			}
			action.Do()
			return nil
		}
	}

	return m.sendCmd(text)
}

func (m *consoleModel) runSlash(text string) {
	fields := strings.Fields(text)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}
	switch fields[0] {
	case "/attach":
		if arg == "" {
			m.note = "usage: /attach <path>"
			return
		}
		info, err := os.Stat(arg)
		if err != nil {
			m.note = fmt.Sprintf("attach: %v", err)
			return
		}
		dropped := m.orch.StageFiles(orchestrator.StagedFile{
			Name: filepath.Base(arg),
			Size: info.Size(),
			MIME: mime.TypeByExtension(filepath.Ext(arg)),
			Path: arg,
		})
		if dropped > 0 {
			m.note = fmt.Sprintf("staging is full, dropped %d file(s)", dropped)
		} else {
			m.note = fmt.Sprintf("staged %s", filepath.Base(arg))
		}
	case "/mode":
		switch strings.ToUpper(arg) {
		case string(protocol.ModeStandard):
			m.orch.SetMode(protocol.ModeStandard)
		case string(protocol.ModeField):
			m.orch.SetMode(protocol.ModeField)
		case string(protocol.ModeAmbient):
			m.orch.SetMode(protocol.ModeAmbient)
		default:
			m.note = "usage: /mode STANDARD|FIELD|AMBIENT"
		}
	case "/dismiss":
		m.orch.DismissPlate()
	case "/retry":
		if err := m.orch.Retry(); err != nil {
			m.note = err.Error()
		}
	case "/quit":
		m.note = "ctrl+c to quit"
	default:
		m.note = fmt.Sprintf("unknown command %s", fields[0])
	}
}

// sendCmd uploads any staged attachments, then hands the utterance to the
// orchestrator referencing them by upload id.
func (m *consoleModel) sendCmd(text string) tea.Cmd {
	staged := m.orch.StagedFiles()
	orch := m.orch
	hubURL := m.hubURL
	userID := m.userID
	offline := m.offline
	return func() tea.Msg {
		var ids []string
		if len(staged) > 0 && !offline {
			var err error
			ids, err = uploadStaged(hubURL, userID, staged)
			if err != nil {
				return statusMsg{note: fmt.Sprintf("upload: %v", err)}
			}
		}
		if err := orch.Send(text, ids...); err != nil {
			return statusMsg{note: err.Error()}
		}
		return statusMsg{note: ""}
	}
}

func (m *consoleModel) callbacks() plates.Callbacks {
	orch := m.orch
	return plates.Callbacks{
		Dismiss: orch.DismissPlate,
		Resolve: func(opt protocol.EntityOption) {
			if err := orch.ResolveCollision(opt); err != nil {
				m.note = err.Error()
			}
		},
		Decide: func(approve bool, reason string) {
			if err := orch.DecideAnomaly(approve, reason); err != nil {
				m.note = err.Error()
			}
		},
	}
}

func (m *consoleModel) refreshViewport() {
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(m.renderTranscript())
	if atBottom {
		m.vp.GotoBottom()
	}
}

func (m *consoleModel) renderTranscript() string {
	width := maxInt(20, m.width-2)
	var b strings.Builder
	for _, msg := range m.orch.Transcript() {
		label := m.theme.bot.Render("c-os")
		if msg.Origin == orchestrator.OriginHuman {
			label = m.theme.human.Render(m.userID)
		}
		b.WriteString(m.theme.timestamp.Render(msg.Timestamp))
		b.WriteString(" ")
		b.WriteString(label)
		if msg.Intent != "" {
			b.WriteString(" ")
			b.WriteString(m.theme.chip.Render(fmt.Sprintf("[%s %d%%]", msg.Intent, msg.Confidence)))
		}
		b.WriteString("\n")
		text := msg.Text
		if msg.Failed {
			text = m.theme.failed.Render(text + "  (/retry)")
		}
		b.WriteString(text)
		for _, att := range msg.Attachments {
			b.WriteString(fmt.Sprintf("\n  📎 %s (%d bytes)", att.Name, att.Size))
		}
		b.WriteString("\n\n")
	}

	if active := m.orch.ActivePlate(); active != nil {
		box := m.theme.plateBox
		if color, ok := m.theme.skins[active.Strategy.Skin]; ok {
			box = box.BorderForeground(color)
		}
		b.WriteString(box.Width(width).Render(plates.Render(*active, width-4)))
		b.WriteString("\n")
		var hints []string
		for _, action := range plates.Actions(*active, m.callbacks()) {
			hints = append(hints, fmt.Sprintf("%s=%s", action.Key, action.Label))
		}
		b.WriteString(m.theme.help.Render(strings.Join(hints, "  ")))
		b.WriteString("\n")
	}
	return b.String()
}

func (m consoleModel) View() string {
	skin := m.orch.Skin()
	status := m.theme.status
	if color, ok := m.theme.skins[skin]; ok {
		status = status.Foreground(color)
	}
	conn := m.conn.String()
	if m.offline {
		conn = "offline"
	}
	header := status.Render(fmt.Sprintf("⬡ C-OS · %s · %s · %s · staged %d",
		conn, skin, m.orch.Mode(), len(m.orch.StagedFiles())))

	activity := " "
	if m.orch.Processing() || m.orch.DecisionPending() {
		activity = m.spinner.View() + " processing"
	} else if m.note != "" {
		activity = m.theme.help.Render(m.note)
	}

	help := m.theme.help.Render("/attach /mode /dismiss /retry · a approve · o override · 1-9 select · ctrl+c quit")

	return strings.Join([]string{
		header,
		m.vp.View(),
		activity,
		m.input.View(),
		help,
	}, "\n")
}

// uploadStaged posts the staged files to the hub's upload endpoint and
// returns their upload ids.
func uploadStaged(hubURL, userID string, staged []orchestrator.StagedFile) ([]string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("user_id", userID)
	for _, sf := range staged {
		f, err := os.Open(sf.Path)
		if err != nil {
			return nil, err
		}
		fw, err := mw.CreateFormFile("files", sf.Name)
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := io.Copy(fw, f); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(hubURL, "/")+"/api/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hub returned %s", resp.Status)
	}

	var out struct {
		UploadIDs []string `json:"upload_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.UploadIDs, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
