// Package notify posts run summaries to a webhook. Delivery is
// fire-and-forget: notification failure never fails a run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// RunSummary is the webhook payload for one finished run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Slot       string    `json:"slot,omitempty"`
	Success    bool      `json:"success"`
	Found      int       `json:"found"`
	New        int       `json:"new"`
	Updated    int       `json:"updated"`
	Merged     int       `json:"merged"`
	Queued     int       `json:"queued_for_review"`
	Dropped    int       `json:"dropped"`
	Retired    int       `json:"retired"`
	DurationMS int64     `json:"duration_ms"`
	Errors     []string  `json:"errors,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier delivers run summaries over HTTP.
type Notifier struct {
	cfg    config.NotifyConfig
	client *http.Client
}

// New creates a Notifier. An empty webhook URL disables delivery.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyRun posts a summary of the finished run. Errors are logged and
// swallowed.
func (n *Notifier) NotifyRun(ctx context.Context, run *model.Run) {
	if n.cfg.WebhookURL == "" {
		return
	}

	summary := buildSummary(run)
	body, err := json.Marshal(summary)
	if err != nil {
		zap.L().Warn("notify: marshal summary", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		zap.L().Warn("notify: build request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		zap.L().Warn("notify: webhook delivery failed",
			zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zap.L().Warn("notify: webhook rejected summary",
			zap.String("run_id", run.ID), zap.Int("status", resp.StatusCode))
		return
	}
	zap.L().Debug("notify: run summary delivered", zap.String("run_id", run.ID))
}

func buildSummary(run *model.Run) RunSummary {
	summary := RunSummary{
		RunID:     run.ID,
		Trigger:   string(run.Trigger),
		Slot:      run.Slot,
		Success:   run.Success,
		Found:     run.Found,
		New:       run.New,
		Updated:   run.Updated,
		Merged:    run.Merged,
		Queued:    run.Queued,
		Dropped:   run.Dropped,
		Retired:   run.Retired,
		Timestamp: time.Now().UTC(),
	}
	if run.CompletedAt != nil {
		summary.DurationMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	}
	for _, src := range run.Sources {
		for _, e := range src.Errors {
			summary.Errors = append(summary.Errors, src.Platform+": "+e)
		}
	}
	return summary
}
