// Package feedback translates a mount directive's UI strategy into
// host-device feedback. Everything here is best-effort: failures are
// returned for logging at the caller's boundary and never block the
// plate-mount flow.
package feedback

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/autohaus/cos/internal/protocol"
)

const (
	// vibratePulses is the fixed haptic pattern length.
	vibratePulses = 3
	// vibrateGap separates haptic pulses.
	vibrateGap = 120 * time.Millisecond
	// tonePulses approximates the rising alert tone. The terminal bell has
	// no pitch control, so a tightening cadence stands in for the rise.
	tonePulses = 4
)

// toneGaps is the tightening cadence between alert pulses.
var toneGaps = []time.Duration{90 * time.Millisecond, 70 * time.Millisecond, 50 * time.Millisecond}

// Controller issues terminal-bell feedback for mount directives.
type Controller struct {
	out         io.Writer
	interactive bool
	sleep       func(time.Duration)
}

// Opts holds parameters for creating a Controller.
type Opts struct {
	Out   io.Writer // defaults to os.Stdout
	Force bool      // treat Out as capable even if it is not a terminal
	Sleep func(time.Duration)
}

// New creates a Controller. Capability is probed once: a non-terminal
// output disables feedback rather than erroring at mount time.
func New(opts Opts) *Controller {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	interactive := opts.Force
	if !interactive {
		if f, ok := out.(*os.File); ok {
			interactive = term.IsTerminal(int(f.Fd()))
		}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Controller{out: out, interactive: interactive, sleep: sleep}
}

// Apply fires the feedback a strategy calls for in the background. The two
// triggers are independent: vibration and the urgency tone may both fire
// for one directive. Failures are logged here, the caller proceeds
// regardless.
func (c *Controller) Apply(s protocol.UIStrategy) {
	go func() {
		if s.Vibration {
			if err := c.Vibrate(); err != nil {
				log.Printf("feedback: vibrate: %v", err)
			}
		}
		if s.Audible() {
			if err := c.Tone(); err != nil {
				log.Printf("feedback: tone: %v", err)
			}
		}
	}()
}

// Vibrate issues the fixed three-pulse haptic pattern.
func (c *Controller) Vibrate() error {
	if !c.interactive {
		return fmt.Errorf("feedback: output is not a terminal")
	}
	for i := 0; i < vibratePulses; i++ {
		if i > 0 {
			c.sleep(vibrateGap)
		}
		if _, err := c.out.Write([]byte("\a")); err != nil {
			return fmt.Errorf("feedback: write pulse: %w", err)
		}
	}
	return nil
}

// Tone plays the short rising-pitch alert for urgency ≥ 9 directives.
func (c *Controller) Tone() error {
	if !c.interactive {
		return fmt.Errorf("feedback: output is not a terminal")
	}
	for i := 0; i < tonePulses; i++ {
		if i > 0 {
			c.sleep(toneGaps[(i-1)%len(toneGaps)])
		}
		if _, err := c.out.Write([]byte("\a")); err != nil {
			return fmt.Errorf("feedback: write tone: %w", err)
		}
	}
	return nil
}
