package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDegradedRate    AlertType = "degraded_rate"
	AlertSlowEvaluations AlertType = "slow_evaluations"
	AlertBidFailureSpike AlertType = "bid_failure_spike"
)

const (
	minFinishedForRate   = 5
	bidFailureAlertRatio = 0.5
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.RunsComplete + snap.RunsDegraded
	if finished >= minFinishedForRate && snap.DegradedRate > a.cfg.DegradedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDegradedRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Degraded evaluation rate %.1f%% exceeds threshold %.1f%% (%d degraded / %d finished in last %dh)",
				snap.DegradedRate*100, a.cfg.DegradedRateThreshold*100,
				snap.RunsDegraded, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"degraded_rate": snap.DegradedRate,
				"threshold":     a.cfg.DegradedRateThreshold,
				"degraded":      snap.RunsDegraded,
				"finished":      finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.SlowEvaluationSecs > 0 && snap.SlowRuns > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertSlowEvaluations,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d evaluation(s) took longer than %.0fs in last %dh (max %.1fs)",
				snap.SlowRuns, a.cfg.SlowEvaluationSecs, snap.LookbackHours, snap.MaxProcessingSecs,
			),
			Details: map[string]any{
				"slow_runs":       snap.SlowRuns,
				"threshold_secs":  a.cfg.SlowEvaluationSecs,
				"max_secs":        snap.MaxProcessingSecs,
				"avg_secs":        snap.AvgProcessingSecs,
				"runs_considered": snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	if snap.BidsTotal >= minFinishedForRate && float64(snap.BidsFailed)/float64(snap.BidsTotal) > bidFailureAlertRatio {
		alerts = append(alerts, Alert{
			Type:     AlertBidFailureSpike,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d of %d bids failed analysis in last %dh",
				snap.BidsFailed, snap.BidsTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"bids_failed": snap.BidsFailed,
				"bids_total":  snap.BidsTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
