// Package forward relays normalized message payloads to an optional,
// operator-configured secondary endpoint.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pagebot/internal/domain"
)

const requestTimeout = 10 * time.Second

// Forwarder posts payloads to the configured URL. Best effort: one
// attempt per payload, bounded timeout, no retries.
type Forwarder struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

type Config struct {
	URL    string // empty disables forwarding
	Logger *slog.Logger

	// HTTPClient overrides the default (used by tests).
	HTTPClient *http.Client
}

func New(cfg Config) *Forwarder {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: requestTimeout}
	}
	return &Forwarder{
		url:    cfg.URL,
		client: httpc,
		logger: cfg.Logger,
	}
}

// Enabled reports whether a forward endpoint is configured.
func (f *Forwarder) Enabled() bool { return f.url != "" }

// Forward posts one payload. A nil error means the endpoint acknowledged
// with a 2xx status.
func (f *Forwarder) Forward(ctx context.Context, payload domain.ForwardPayload) error {
	if f.url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal forward payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward endpoint not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("forward endpoint returned %d", resp.StatusCode)
	}
	f.logger.Debug("payload forwarded", "chat_id", payload.ChatID)
	return nil
}
