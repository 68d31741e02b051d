package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"pagebot/internal/domain"
)

// webhookPath is where the service shell accepts platform updates.
const webhookPath = "/api/webhook"

// Registrar idempotently (re)points the platform webhook at this service.
// Re-setting the same URL is a no-op from the platform's perspective, so
// it runs at startup in hosted mode and on every manual trigger.
type Registrar struct {
	client        *Client
	publicBaseURL string
	logger        *slog.Logger
}

// NewRegistrar builds a registrar around an existing client. publicBaseURL
// must carry a scheme (config.PublicBaseURL does that) or be empty when
// the service has no public address yet.
func NewRegistrar(client *Client, publicBaseURL string, logger *slog.Logger) *Registrar {
	return &Registrar{
		client:        client,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// CallbackURL returns the full webhook callback, or "" when the public
// URL is not configured.
func (r *Registrar) CallbackURL() string {
	if r.publicBaseURL == "" {
		return ""
	}
	return r.publicBaseURL + webhookPath
}

type setWebhookRequest struct {
	URL string `json:"url"`
}

// Register calls setWebhook with the callback URL. Missing token or
// public URL fails without a network call. The result is never cached:
// every invocation performs its own platform call.
func (r *Registrar) Register(ctx context.Context) domain.RegistrationResult {
	callback := r.CallbackURL()
	if r.client.token == "" || callback == "" {
		return domain.RegistrationResult{Detail: "telegram token or public URL not configured"}
	}

	payload, err := json.Marshal(setWebhookRequest{URL: callback})
	if err != nil {
		return domain.RegistrationResult{Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	api, err := r.client.call(ctx, http.MethodPost, r.client.methodURL("setWebhook"), payload)
	if err != nil {
		r.logger.Error("webhook registration failed", "err", err)
		return domain.RegistrationResult{Detail: err.Error()}
	}
	if !api.Ok {
		r.logger.Error("webhook registration rejected", "code", api.ErrorCode, "description", api.Description)
		return domain.RegistrationResult{Detail: fmt.Sprintf("telegram error %d: %s", api.ErrorCode, api.Description)}
	}

	r.logger.Info("webhook set", "url", callback)
	return domain.RegistrationResult{OK: true}
}
