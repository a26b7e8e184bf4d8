// Package transport owns the duplex WebSocket channel between a client and
// the hub. It is the only component holding the connection handle; everyone
// else sees connectivity state, a frame channel, and a send primitive.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connectivity state of the channel.
type State int

const (
	StateConnecting State = iota
	StateLive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

const (
	// defaultBaseBackoff is the initial reconnect delay.
	defaultBaseBackoff = 1 * time.Second
	// defaultMaxBackoff caps the exponential reconnect delay.
	defaultMaxBackoff = 30 * time.Second
	// defaultOutboxLimit bounds the pending-command queue held across
	// disconnects. Oldest entries are dropped beyond this.
	defaultOutboxLimit = 32
)

// Controller manages the channel lifecycle: dial, read pump, reconnect with
// exponential backoff, and outbox flush on reconnect.
type Controller struct {
	endpoint    string
	baseBackoff time.Duration
	maxBackoff  time.Duration
	outboxLimit int

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	outbox [][]byte
	closed bool
	cancel context.CancelFunc

	frames chan map[string]any
	states chan State
}

// Opts holds parameters for creating a Controller.
type Opts struct {
	Endpoint    string        // ws:// or wss:// URL of the hub chat endpoint
	BaseBackoff time.Duration // initial reconnect delay (default 1s)
	MaxBackoff  time.Duration // reconnect delay cap (default 30s)
	OutboxLimit int           // pending-send queue bound (default 32)
}

// New creates a Controller. The channel is not opened until Start.
func New(opts Opts) (*Controller, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("transport: endpoint is required")
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("transport: parse endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("transport: endpoint scheme %q is not ws or wss", u.Scheme)
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.OutboxLimit <= 0 {
		opts.OutboxLimit = defaultOutboxLimit
	}
	return &Controller{
		endpoint:    opts.Endpoint,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		outboxLimit: opts.OutboxLimit,
		state:       StateConnecting,
		frames:      make(chan map[string]any, 16),
		states:      make(chan State, 8),
	}, nil
}

// EndpointFor derives the ws endpoint from an HTTP base URL, mirroring the
// base's scheme (https → wss, http → ws).
func EndpointFor(httpBase string) string {
	e := httpBase
	switch {
	case strings.HasPrefix(e, "https://"):
		e = "wss://" + strings.TrimPrefix(e, "https://")
	case strings.HasPrefix(e, "http://"):
		e = "ws://" + strings.TrimPrefix(e, "http://")
	}
	return strings.TrimSuffix(e, "/") + "/ws/chat"
}

// Start opens the channel and keeps it open until ctx is cancelled or Close
// is called, reconnecting with jittered exponential backoff. It returns
// immediately; connection management runs in the background.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	go c.run(ctx)
}

// run is the dial/read/reconnect loop.
func (c *Controller) run(ctx context.Context) {
	defer close(c.frames)
	backoff := c.baseBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		c.setState(StateConnecting)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
		if err != nil {
			c.setState(StateDisconnected)
			log.Printf("transport: dial %s: %v (retry in %s)", c.endpoint, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter(backoff)):
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
			continue
		}

		c.goLive(conn)
		backoff = c.baseBackoff

		c.readPump(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()
		c.setState(StateDisconnected)
		if closed || ctx.Err() != nil {
			return
		}
		log.Printf("transport: connection lost, reconnecting in %s", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter(backoff)):
		}
		backoff = nextBackoff(backoff, c.maxBackoff)
	}
}

// readPump delivers decoded frames until the connection drops. A malformed
// frame is logged and skipped: the channel never fails closed on one bad
// frame.
func (c *Controller) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !c.isClosed() {
				log.Printf("transport: read: %v", err)
			}
			return
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("transport: discarding undecodable frame: %v", err)
			continue
		}
		select {
		case c.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// Send serializes v and transmits it if the channel is live. Otherwise the
// message is queued in the bounded outbox and flushed on reconnect; beyond
// the bound the oldest entry is dropped with a logged warning.
func (c *Controller) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: marshal: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("transport: channel is closed")
	}
	if c.state == StateLive && c.conn != nil {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// The read pump will notice the broken connection; keep the
			// message for the next flush.
			c.enqueueLocked(data)
			return fmt.Errorf("transport: write: %w", err)
		}
		return nil
	}
	c.enqueueLocked(data)
	return nil
}

// enqueueLocked appends to the outbox, dropping the oldest entry when full.
// Caller holds c.mu.
func (c *Controller) enqueueLocked(data []byte) {
	if len(c.outbox) >= c.outboxLimit {
		log.Printf("transport: outbox full (%d), dropping oldest pending send", c.outboxLimit)
		c.outbox = c.outbox[1:]
	}
	c.outbox = append(c.outbox, data)
}

// goLive installs the new connection, drains the outbox in order, and marks
// the channel live, all in one critical section. Send writes under the same
// lock, so a flush write can never interleave with a concurrent Send, and no
// send can slip ahead of the queue between the flush and the live transition.
func (c *Controller) goLive(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	flushed := 0
	for len(c.outbox) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, c.outbox[0]); err != nil {
			// Connection already broken; keep the rest for the next attempt.
			log.Printf("transport: outbox flush: %v", err)
			break
		}
		c.outbox = c.outbox[1:]
		flushed++
	}
	changed := c.state != StateLive
	c.state = StateLive
	c.mu.Unlock()

	if flushed > 0 {
		log.Printf("transport: flushed %d pending sends", flushed)
	}
	if changed {
		select {
		case c.states <- StateLive:
		default:
		}
	}
}

// Frames returns the inbound frame channel. It is closed when the
// controller shuts down.
func (c *Controller) Frames() <-chan map[string]any { return c.frames }

// States returns a best-effort stream of connectivity transitions.
func (c *Controller) States() <-chan State { return c.states }

// State returns the current connectivity state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of sends waiting in the outbox.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outbox)
}

// Close tears the channel down deterministically.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// setState records a transition and notifies the state channel without
// blocking.
func (c *Controller) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	select {
	case c.states <- s:
	default:
	}
}

// nextBackoff doubles the delay up to the cap.
func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// jitter spreads reconnect attempts by ±25%.
func jitter(d time.Duration) time.Duration {
	delta := time.Duration(rand.Int63n(int64(d) / 2))
	return d*3/4 + delta
}
