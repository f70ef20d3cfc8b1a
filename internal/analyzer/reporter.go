// Package analyzer posts a fire-and-forget notification to an operator
// webhook whenever the policy engine's overall verdict for a fork event is
// Deny. It never blocks the decision path: Report returns immediately and
// delivery always runs in its own goroutine, and a failed delivery is only
// passed to the caller's error callback.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"zynx/internal/config"
	"zynx/internal/model"
	"zynx/internal/policy"
)

// DenyReporter posts one JSON document per denied fork event to a
// configured webhook URL.
type DenyReporter struct {
	cfg    config.ReporterConfig
	client *http.Client
}

// denyEvent is the payload delivered to the webhook.
type denyEvent struct {
	UID      uint32          `json:"uid"`
	GID      uint32          `json:"gid"`
	Packages []string        `json:"packages"`
	Results  []policy.Result `json:"results"`
}

// New constructs a DenyReporter. Reporting is a no-op if cfg.Enabled is
// false; callers can construct one unconditionally.
func New(cfg config.ReporterConfig) *DenyReporter {
	return &DenyReporter{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Report delivers a deny event built from fast and results asynchronously
// if the reporter is enabled. It
// returns immediately; delivery failures are logged by the caller-supplied
// onError, or dropped if onError is nil.
func (r *DenyReporter) Report(fast model.FastArgs, results []policy.Result, onError func(error)) {
	if !r.cfg.Enabled {
		return
	}

	packages := make([]string, len(fast.PackageInfo))
	for i, p := range fast.PackageInfo {
		packages[i] = p.PackageName
	}
	evt := denyEvent{UID: fast.UID, GID: fast.GID, Packages: packages, Results: results}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.post(ctx, evt); err != nil && onError != nil {
			onError(err)
		}
	}()
}

func (r *DenyReporter) post(ctx context.Context, evt denyEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal deny event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
