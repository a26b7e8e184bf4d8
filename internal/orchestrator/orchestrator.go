// Package orchestrator holds the client-side state machine for the plate
// hydration protocol: transcript, staged attachments, active plate, skin,
// interaction mode, and the send/decision flows. The Orchestrator is the
// single writer of this state; plates and the transport only read it or
// invoke the callbacks they are handed.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autohaus/cos/internal/protocol"
	"github.com/autohaus/cos/internal/report"
)

const (
	// maxStagedFiles bounds concurrently staged attachments. Excess is
	// silently dropped, keeping the first five of the combined set.
	maxStagedFiles = 5
	// maxTranscript bounds the transcript; oldest entries are dropped.
	maxTranscript = 500
	// defaultReplyTimeout is how long a sent command may await a reply
	// before the exchange is marked failed on the transcript.
	defaultReplyTimeout = 15 * time.Second
	// decisionDelay is the short fixed pause before the audit-style
	// confirmation of an anomaly decision appears.
	decisionDelay = 600 * time.Millisecond

	// Simulated reply delays for the offline demo path.
	simulateReplyText       = 1100 * time.Millisecond
	simulateReplyAttachment = 1800 * time.Millisecond
)

// Message origins.
const (
	OriginBot   = "bot"
	OriginHuman = "human"
)

// Guard errors for user-recoverable input conditions. The UI is expected
// to disable controls on these rather than surface them after submission.
var (
	ErrEmptySend      = errors.New("orchestrator: nothing to send")
	ErrSendInFlight   = errors.New("orchestrator: a send is already in flight")
	ErrReasonRequired = errors.New("orchestrator: override requires a reason")
	ErrNoActivePlate  = errors.New("orchestrator: no active plate")
	ErrNothingToRetry = errors.New("orchestrator: no failed send to retry")
)

// StagedFile is a user-selected attachment awaiting send.
type StagedFile struct {
	Name    string
	Size    int64
	MIME    string
	Preview string // client-side preview handle, images only
	Path    string // underlying file handle
}

// ChatMessage is one transcript entry. Confidence is on the 0–100 display
// scale. Messages are never mutated after creation except the in-place
// replacement of the greeting placeholder.
type ChatMessage struct {
	ID           string
	Origin       string
	Timestamp    string
	Text         string
	Intent       string
	TargetEntity string
	Confidence   int
	Attachments  []StagedFile
	Findings     []protocol.Finding
	Failed       bool
}

// Sender is the transport-side send primitive.
type Sender interface {
	Send(v any) error
}

// Feedback applies a strategy's sensory directives.
type Feedback interface {
	Apply(protocol.UIStrategy)
}

// Reporter delivers render-error diagnostics.
type Reporter interface {
	Send(ctx context.Context, re report.RenderError) error
}

// Opts holds parameters for creating an Orchestrator.
type Opts struct {
	UserID   string
	Sender   Sender
	Feedback Feedback // optional
	Reporter Reporter // optional; nil disables diagnostics
	Greeting string   // placeholder greeting text, replaced by the welcome frame

	ReplyTimeout time.Duration // default 15s
	Simulate     bool          // offline demo: synthesize replies locally
	OnChange     func()        // invoked after every state mutation
	Now          func() time.Time
}

// Orchestrator is the single source of truth for client UI state.
type Orchestrator struct {
	userID       string
	sender       Sender
	feedback     Feedback
	reporter     Reporter
	replyTimeout time.Duration
	simulate     bool
	onChange     func()
	now          func() time.Time

	mu              sync.Mutex
	transcript      []ChatMessage
	staged          []StagedFile
	skin            protocol.Skin
	mode            protocol.Mode
	active          *protocol.PlatePayload
	processing      bool
	greetingID      string // non-empty while the greeting placeholder is unfilled
	pendingCmd      *protocol.Command
	pendingHumanID  string
	lastFailedCmd   *protocol.Command
	replyTimer      *time.Timer
	decisionPending bool
}

// New creates an Orchestrator and seeds the transcript with the greeting
// placeholder.
func New(opts Opts) (*Orchestrator, error) {
	if opts.UserID == "" {
		return nil, errors.New("orchestrator: user id is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("orchestrator: sender is required")
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultReplyTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Greeting == "" {
		opts.Greeting = "Establishing secure channel..."
	}

	o := &Orchestrator{
		userID:       opts.UserID,
		sender:       opts.Sender,
		feedback:     opts.Feedback,
		reporter:     opts.Reporter,
		replyTimeout: opts.ReplyTimeout,
		simulate:     opts.Simulate,
		onChange:     opts.OnChange,
		now:          opts.Now,
		skin:         protocol.SkinSuperAdmin,
		mode:         protocol.ModeStandard,
	}
	greeting := o.newMessage(OriginBot)
	greeting.Text = opts.Greeting
	o.greetingID = greeting.ID
	o.transcript = append(o.transcript, greeting)
	return o, nil
}

// newMessage builds a transcript entry with identity and display timestamp.
func (o *Orchestrator) newMessage(origin string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Origin:    origin,
		Timestamp: o.now().Format("15:04:05"),
	}
}

// notify invokes the change hook outside the lock.
func (o *Orchestrator) notify() {
	if o.onChange != nil {
		o.onChange()
	}
}

// appendLocked appends to the transcript under the cap. The unfilled
// greeting placeholder at position 0 survives truncation. Caller holds o.mu.
func (o *Orchestrator) appendLocked(msg ChatMessage) {
	o.transcript = append(o.transcript, msg)
	if len(o.transcript) <= maxTranscript {
		return
	}
	if o.greetingID != "" && o.transcript[0].ID == o.greetingID {
		copy(o.transcript[1:], o.transcript[2:])
		o.transcript = o.transcript[:len(o.transcript)-1]
		return
	}
	o.transcript = o.transcript[1:]
}

// Transcript returns a copy of the transcript.
func (o *Orchestrator) Transcript() []ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ChatMessage, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// ActivePlate returns the currently mounted plate, or nil.
func (o *Orchestrator) ActivePlate() *protocol.PlatePayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return nil
	}
	cp := *o.active
	return &cp
}

// Skin returns the server-driven visual theme.
func (o *Orchestrator) Skin() protocol.Skin {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.skin
}

// Mode returns the user-selected layout density preference.
func (o *Orchestrator) Mode() protocol.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetMode records a user-initiated mode change. Mode and skin are
// independent axes; this never touches the skin.
func (o *Orchestrator) SetMode(m protocol.Mode) {
	o.mu.Lock()
	o.mode = m
	o.mu.Unlock()
	o.notify()
}

// Processing reports whether a send is awaiting its reply.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// DecisionPending reports whether an anomaly decision's confirmation is
// still in its fixed delay window.
func (o *Orchestrator) DecisionPending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decisionPending
}

// StageFiles stages attachments for the next send, keeping the first five
// of the combined set and silently dropping the rest. It returns how many
// were dropped.
func (o *Orchestrator) StageFiles(files ...StagedFile) int {
	o.mu.Lock()
	combined := append(o.staged, files...)
	dropped := 0
	if len(combined) > maxStagedFiles {
		dropped = len(combined) - maxStagedFiles
		combined = combined[:maxStagedFiles]
	}
	o.staged = combined
	o.mu.Unlock()
	o.notify()
	return dropped
}

// StagedFiles returns a copy of the staged attachment list.
func (o *Orchestrator) StagedFiles() []StagedFile {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]StagedFile, len(o.staged))
	copy(out, o.staged)
	return out
}

// RemoveStaged removes one staged attachment by index. Out-of-range
// indices are ignored.
func (o *Orchestrator) RemoveStaged(i int) {
	o.mu.Lock()
	if i >= 0 && i < len(o.staged) {
		o.staged = append(o.staged[:i], o.staged[i+1:]...)
	}
	o.mu.Unlock()
	o.notify()
}

// DismissPlate clears the active plate.
func (o *Orchestrator) DismissPlate() {
	o.mu.Lock()
	o.active = nil
	o.mu.Unlock()
	o.notify()
}
