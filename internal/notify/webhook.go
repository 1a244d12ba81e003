package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dcmio/dcm/internal/store"
)

// Webhook is a Notifier that POSTs a proposal.opened payload to a single
// configured URL. It retries transient failures with exponential backoff
// and, after a run of consecutive failures, falls back to a slower
// long-outage interval rather than hammering an endpoint that is down —
// the same shape as the retry loop specmcp's client used against its
// upstream server, re-homed onto an outbound webhook call.
type Webhook struct {
	URL        string
	HTTPClient *http.Client
	Logger     *slog.Logger

	MaxRetries             int
	LongOutageThreshold    int
	LongOutageIntervalMins int
}

// NewWebhook builds a Webhook notifier with the package's default retry
// tuning (mirrors the teacher client's defaults: 5-minute long-outage
// interval, exponential backoff capped at one minute).
func NewWebhook(url string, logger *slog.Logger) *Webhook {
	return &Webhook{
		URL:                    url,
		HTTPClient:             &http.Client{Timeout: 10 * time.Second},
		Logger:                 logger,
		MaxRetries:             5,
		LongOutageThreshold:    5,
		LongOutageIntervalMins: 5,
	}
}

type proposalOpenedPayload struct {
	ProposalID      string   `json:"proposal_id"`
	AssetID         string   `json:"asset_id"`
	ChangeType      string   `json:"change_type"`
	ConsumerTeamIDs []string `json:"consumer_team_ids"`
	ProposedVersion string   `json:"proposed_version"`
}

func (w *Webhook) NotifyProposalOpened(ctx context.Context, proposal *store.Proposal, consumerTeamIDs []string) error {
	body, err := json.Marshal(proposalOpenedPayload{
		ProposalID:      proposal.ID,
		AssetID:         proposal.AssetID,
		ChangeType:      string(proposal.ChangeType),
		ConsumerTeamIDs: consumerTeamIDs,
		ProposedVersion: proposal.ProposedVersion,
	})
	if err != nil {
		return fmt.Errorf("encoding proposal.opened payload: %w", err)
	}

	return w.withRetry(ctx, "notify proposal.opened", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := w.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}

type retryConfig struct {
	maxRetries          int
	initialBackoff      time.Duration
	maxBackoff          time.Duration
	longOutageInterval  time.Duration
	longOutageThreshold int
}

func (w *Webhook) getRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:          w.MaxRetries,
		initialBackoff:      500 * time.Millisecond,
		maxBackoff:          1 * time.Minute,
		longOutageInterval:  time.Duration(w.LongOutageIntervalMins) * time.Minute,
		longOutageThreshold: w.LongOutageThreshold,
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	switch err.Error() {
	case "EOF", "unexpected EOF", "connection reset by peer", "broken pipe":
		return true
	}
	return false
}

func (w *Webhook) withRetry(ctx context.Context, operation string, fn func() error) error {
	cfg := w.getRetryConfig()
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	attempt := 0
	consecutiveFailures := 0
	for {
		if cfg.maxRetries >= 0 && attempt > cfg.maxRetries {
			break
		}

		if attempt > 0 {
			inLongOutageMode := consecutiveFailures >= cfg.longOutageThreshold
			var backoff time.Duration
			if inLongOutageMode {
				backoff = cfg.longOutageInterval
				logger.Warn("retrying webhook in long outage mode", "operation", operation, "attempt", attempt, "consecutive_failures", consecutiveFailures, "backoff", backoff, "error", lastErr)
			} else {
				multiplier := 1 << uint(attempt-1)
				backoff = cfg.initialBackoff * time.Duration(multiplier)
				if backoff > cfg.maxBackoff {
					backoff = cfg.maxBackoff
				}
				logger.Warn("retrying webhook after error", "operation", operation, "attempt", attempt, "backoff", backoff, "error", lastErr)
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%s: context cancelled during retry: %w", operation, ctx.Err())
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if !shouldRetry(err) {
			return fmt.Errorf("%s: %w", operation, err)
		}

		attempt++
		consecutiveFailures++
		if consecutiveFailures == cfg.longOutageThreshold {
			logger.Warn("webhook switching to long outage mode", "operation", operation, "consecutive_failures", consecutiveFailures, "new_interval", cfg.longOutageInterval)
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", operation, attempt, lastErr)
}
