// Package report sends render-error diagnostics to the hub's audit ledger.
// Reports are single-attempt and decoupled from the state transition they
// describe: a failed report is logged, never retried, never surfaced.
package report

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Path is the hub endpoint receiving render-error events.
const Path = "/api/events/render-error"

// defaultTimeout bounds the single report attempt.
const defaultTimeout = 5 * time.Second

// RenderError describes one failed plate mount.
type RenderError struct {
	PlateType           string `json:"plate_type"`
	Reason              string `json:"reason"`
	PayloadSnapshotHash string `json:"payload_snapshot_hash"`
	TargetID            string `json:"target_id"`
}

// Client posts diagnostics to a hub base URL.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client for the given hub base URL (scheme + host).
func New(base string) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("report: base URL is required")
	}
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Send makes exactly one attempt to deliver the report.
func (c *Client) Send(ctx context.Context, re RenderError) error {
	body, err := json.Marshal(re)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+Path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("report: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("report: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("report: hub returned %s", resp.Status)
	}
	return nil
}

// SnapshotHash produces the payload hash recorded alongside a report.
func SnapshotHash(frame map[string]any) string {
	data, err := json.Marshal(frame)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
