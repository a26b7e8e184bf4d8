package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/autohaus/cos/internal/protocol"
	"github.com/autohaus/cos/internal/report"
	"github.com/autohaus/cos/internal/validate"
)

// Send runs the core interactive cycle: guard, append the human message,
// clear staged files, transmit, arm the reply timeout. Attachments are
// referenced by upload id; uploading happens before Send via the hub's
// upload endpoint.
func (o *Orchestrator) Send(text string, uploadIDs ...string) error {
	text = strings.TrimSpace(text)

	o.mu.Lock()
	if text == "" && len(o.staged) == 0 {
		o.mu.Unlock()
		return ErrEmptySend
	}
	if o.processing {
		o.mu.Unlock()
		return ErrSendInFlight
	}

	msg := o.newMessage(OriginHuman)
	msg.Text = text
	msg.Attachments = o.staged
	hadAttachments := len(o.staged) > 0
	o.staged = nil
	o.appendLocked(msg)
	o.processing = true
	o.pendingHumanID = msg.ID

	cmd := &protocol.Command{
		Type:        protocol.FrameCommand,
		Message:     text,
		UserID:      o.userID,
		ClientMsgID: msg.ID, // idempotency key: a resend reuses it
		UploadIDs:   uploadIDs,
	}
	o.pendingCmd = cmd
	o.lastFailedCmd = nil
	o.armReplyTimerLocked()
	o.mu.Unlock()
	o.notify()

	if err := o.sender.Send(*cmd); err != nil {
		log.Printf("orchestrator: send: %v", err)
	}
	if o.simulate {
		delay := simulateReplyText
		if hadAttachments {
			delay = simulateReplyAttachment
		}
		go o.simulateReply(msg.ID, text, delay)
	}
	return nil
}

// Retry resends the last failed command with its original idempotency key
// so the hub does not duplicate effects.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	if o.lastFailedCmd == nil {
		o.mu.Unlock()
		return ErrNothingToRetry
	}
	if o.processing {
		o.mu.Unlock()
		return ErrSendInFlight
	}
	cmd := o.lastFailedCmd
	o.lastFailedCmd = nil
	o.pendingCmd = cmd
	o.pendingHumanID = cmd.ClientMsgID
	o.processing = true
	o.armReplyTimerLocked()
	o.mu.Unlock()
	o.notify()

	if err := o.sender.Send(*cmd); err != nil {
		log.Printf("orchestrator: retry send: %v", err)
	}
	return nil
}

// armReplyTimerLocked starts the reply timeout for the in-flight send.
// Caller holds o.mu.
func (o *Orchestrator) armReplyTimerLocked() {
	if o.replyTimer != nil {
		o.replyTimer.Stop()
	}
	o.replyTimer = time.AfterFunc(o.replyTimeout, o.replyTimedOut)
}

// replyTimedOut marks the in-flight exchange failed on the transcript and
// keeps the command for a manual retry.
func (o *Orchestrator) replyTimedOut() {
	o.mu.Lock()
	if !o.processing {
		o.mu.Unlock()
		return
	}
	o.processing = false
	o.lastFailedCmd = o.pendingCmd
	o.pendingCmd = nil
	msg := o.newMessage(OriginBot)
	msg.Text = "No response from the hub. The command was kept and can be retried."
	msg.Failed = true
	o.appendLocked(msg)
	o.mu.Unlock()
	o.notify()
}

// settleReplyLocked clears the in-flight send state. Caller holds o.mu.
func (o *Orchestrator) settleReplyLocked() {
	if o.replyTimer != nil {
		o.replyTimer.Stop()
		o.replyTimer = nil
	}
	o.processing = false
	o.pendingCmd = nil
	o.pendingHumanID = ""
}

// HandleFrame applies one inbound server frame to orchestrator state.
// Undecodable frames never reach here; the transport drops them.
func (o *Orchestrator) HandleFrame(frame map[string]any) {
	typ, _ := frame["type"].(string)
	switch typ {
	case protocol.FrameWelcome:
		o.handleWelcome(frame)
	case protocol.FrameChat, protocol.FrameSystem, protocol.FrameError:
		o.handleChat(frame)
	case protocol.FrameMountPlate:
		o.handleMount(frame)
	default:
		log.Printf("orchestrator: ignoring frame type %q", typ)
	}
}

// handleWelcome replaces the greeting placeholder in place; identity and
// position are preserved. A second welcome appends like a normal message.
func (o *Orchestrator) handleWelcome(frame map[string]any) {
	text, _ := frame["message"].(string)
	if text == "" {
		return
	}
	o.mu.Lock()
	if o.greetingID != "" {
		for i := range o.transcript {
			if o.transcript[i].ID == o.greetingID {
				o.transcript[i].Text = text
				o.transcript[i].Timestamp = o.now().Format("15:04:05")
				break
			}
		}
		o.greetingID = ""
	} else {
		msg := o.newMessage(OriginBot)
		msg.Text = text
		o.appendLocked(msg)
	}
	o.mu.Unlock()
	o.notify()
}

// handleChat appends a bot transcript entry from a chat/system frame.
func (o *Orchestrator) handleChat(frame map[string]any) {
	o.mu.Lock()
	o.settleReplyLocked()
	msg := o.newMessage(OriginBot)
	if text, ok := frame["message"].(string); ok {
		msg.Text = text
	} else if text, ok := frame["text"].(string); ok {
		msg.Text = text
	}
	msg.Intent, _ = frame["intent"].(string)
	if te, ok := frame["target_entity"].(string); ok {
		msg.TargetEntity = te
	} else if te, ok := frame["entity"].(string); ok {
		msg.TargetEntity = te
	}
	if conf, ok := frame["confidence"].(float64); ok {
		msg.Confidence = protocol.DisplayConfidence(conf)
	}
	o.appendLocked(msg)
	o.mu.Unlock()
	o.notify()
}

// handleMount gates the frame, supersedes the active plate (newest always
// wins), switches the skin, and fires sensory feedback. A frame that fails
// the gate mounts as a visible corrupt plate and triggers exactly one
// diagnostics report.
func (o *Orchestrator) handleMount(frame map[string]any) {
	payload, gateErr := validate.Gate(frame)

	o.mu.Lock()
	o.settleReplyLocked()
	o.active = &payload
	if !payload.Corrupt {
		o.skin = payload.Strategy.Skin
		if payload.SuggestedAction != "" {
			msg := o.newMessage(OriginBot)
			msg.Text = payload.SuggestedAction
			msg.Intent = payload.Intent
			msg.TargetEntity = payload.TargetEntity
			msg.Confidence = protocol.DisplayConfidence(payload.Confidence)
			o.appendLocked(msg)
		}
	}
	o.mu.Unlock()
	o.notify()

	if payload.Corrupt {
		log.Printf("orchestrator: corrupt plate %q: %v", payload.PlateID, gateErr)
		o.reportRenderError(frame, payload)
		return
	}
	if o.feedback != nil {
		o.feedback.Apply(payload.Strategy)
	}
}

// reportRenderError makes the single, decoupled diagnostics attempt.
func (o *Orchestrator) reportRenderError(frame map[string]any, payload protocol.PlatePayload) {
	if o.reporter == nil {
		return
	}
	re := report.RenderError{
		PlateType:           payload.PlateID,
		Reason:              payload.ValidationError,
		PayloadSnapshotHash: report.SnapshotHash(frame),
		TargetID:            payload.TargetEntity,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.reporter.Send(ctx, re); err != nil {
			log.Printf("orchestrator: render-error report: %v", err)
		}
	}()
}

// ResolveCollision transmits the selected candidate, appends exactly one
// confirmation entry naming it, and clears the plate so the paused
// workflow resumes.
func (o *Orchestrator) ResolveCollision(opt protocol.EntityOption) error {
	o.mu.Lock()
	if o.active == nil || o.active.PlateID != protocol.PlateAmbiguity {
		o.mu.Unlock()
		return ErrNoActivePlate
	}
	o.active = nil
	msg := o.newMessage(OriginBot)
	msg.Text = fmt.Sprintf("Collision resolved: proceeding with %s (%s).", opt.Entity, opt.VIN)
	msg.TargetEntity = opt.Entity
	o.appendLocked(msg)
	o.mu.Unlock()
	o.notify()

	choice := protocol.CollisionChoice{
		Type:   protocol.FrameResolveCollision,
		UserID: o.userID,
		VIN:    opt.VIN,
		Entity: opt.Entity,
	}
	if err := o.sender.Send(choice); err != nil {
		log.Printf("orchestrator: resolve collision: %v", err)
	}
	return nil
}

// DecideAnomaly records an approve or override verdict for the active
// anomaly plate. Overrides are blocked until a non-empty reason is given.
// The audit-style confirmation appears after a short fixed delay; durable
// logging is the hub's responsibility.
func (o *Orchestrator) DecideAnomaly(approve bool, reason string) error {
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return ErrReasonRequired
	}

	o.mu.Lock()
	if o.active == nil || o.active.PlateID != protocol.PlateAnomalyAlert {
		o.mu.Unlock()
		return ErrNoActivePlate
	}
	plateID := o.active.PlateID
	o.active = nil
	o.decisionPending = true
	o.mu.Unlock()
	o.notify()

	decision := protocol.AnomalyDecision{
		Type:     protocol.FrameAnomalyDecision,
		UserID:   o.userID,
		PlateID:  plateID,
		Approved: approve,
		Reason:   reason,
	}
	if err := o.sender.Send(decision); err != nil {
		log.Printf("orchestrator: anomaly decision: %v", err)
	}

	time.AfterFunc(decisionDelay, func() {
		o.mu.Lock()
		o.decisionPending = false
		msg := o.newMessage(OriginBot)
		if approve {
			msg.Text = "Anomaly accepted as-is. Decision logged to the ledger."
		} else {
			msg.Text = fmt.Sprintf("Anomaly overridden: %s. Decision logged to the ledger.", reason)
		}
		o.appendLocked(msg)
		o.mu.Unlock()
		o.notify()
	})
	return nil
}

// simulateReply stands in for the hub round trip in offline demo mode.
func (o *Orchestrator) simulateReply(humanID, text string, delay time.Duration) {
	time.Sleep(delay)
	o.mu.Lock()
	if o.pendingHumanID != humanID {
		o.mu.Unlock()
		return
	}
	o.settleReplyLocked()
	msg := o.newMessage(OriginBot)
	msg.Text = simulatedResponse(text)
	msg.Intent = "SIMULATED"
	msg.Confidence = 100
	o.appendLocked(msg)
	o.mu.Unlock()
	o.notify()
}

// simulatedResponse picks a canned reply for the offline path.
func simulatedResponse(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "inventory"):
		return "Offline mode: inventory data is unavailable without a hub connection."
	case strings.Contains(lower, "finance"), strings.Contains(lower, "margin"):
		return "Offline mode: finance plates require a live hub connection."
	default:
		return "Acknowledged. Connect to a hub for hydrated plates."
	}
}
