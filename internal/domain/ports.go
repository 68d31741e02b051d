package domain

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SendResult reports one outbound delivery attempt. Failures come back as
// values so callers decide reply/no-reply without crashing the handler.
type SendResult struct {
	Delivered bool
	Detail    string
}

// RegistrationResult reports one webhook (re-)registration attempt.
type RegistrationResult struct {
	OK     bool   `json:"success"`
	Detail string `json:"detail,omitempty"`
}

// Messenger sends outbound chat messages. One network attempt per call.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) SendResult
}

// FileResolver performs the two-step attachment download: resolve the
// opaque handle to a remote path, then fetch the raw bytes.
type FileResolver interface {
	ResolveFile(ctx context.Context, fileID string) (FileDescriptor, error)
	FetchFile(ctx context.Context, remotePath string) ([]byte, error)
}

// Summary is the derived result of processing document content.
// All counts are non-negative.
type Summary struct {
	Words int
	Chars int
	Title string
}

// ContentProcessor derives a summary from raw document content.
// Implementations must be pure and non-failing.
type ContentProcessor interface {
	Process(content []byte) Summary
}

// Forwarder relays a normalized payload to the secondary endpoint.
// Best effort: failures never affect the primary reply.
type Forwarder interface {
	Enabled() bool
	Forward(ctx context.Context, payload ForwardPayload) error
}

// UpdateDispatcher drives one inbound update to a terminal outcome.
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update) DispatchOutcome
}

// WebhookRegistrar (re)points the platform webhook at this service.
type WebhookRegistrar interface {
	Register(ctx context.Context) RegistrationResult
	CallbackURL() string
}
