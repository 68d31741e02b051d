// Package dispatch classifies inbound updates, drives the file-retrieval
// pipeline for supported documents, and guarantees a single best-effort
// reply per actionable update.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

const (
	replyUnsupported   = "❌ Unsupported message type. Send text or an HTML document."
	replyError         = "⚠️ An unexpected error occurred while handling your message."
	replyForwardFailed = "⚠️ Failed to forward your message."
)

func echoReply(text string) string {
	return "💬 You said: " + text
}

func processedReply(s domain.Summary) string {
	title := s.Title
	if title == "" {
		title = "document"
	}
	return fmt.Sprintf("📄 Processed %q: %d words, %d characters.", title, s.Words, s.Chars)
}

// Dispatcher drives one inbound update to a terminal outcome. Exactly one
// primary reply is attempted for each terminal outcome; none for updates
// with nothing to reply to. All state is request-local.
type Dispatcher struct {
	messenger domain.Messenger
	files     domain.FileResolver
	processor domain.ContentProcessor
	forwarder domain.Forwarder
	logger    *slog.Logger

	outcomes        map[domain.OutcomeKind]*metrics.Counter
	sendFailures    *metrics.Counter
	forwardFailures *metrics.Counter
}

type Config struct {
	Messenger domain.Messenger
	Files     domain.FileResolver
	Processor domain.ContentProcessor
	Forwarder domain.Forwarder
	Logger    *slog.Logger
	Metrics   *metrics.Collector // optional; a private collector is used when nil
}

func New(cfg Config) *Dispatcher {
	coll := cfg.Metrics
	if coll == nil {
		coll = metrics.New()
	}

	outcomes := make(map[domain.OutcomeKind]*metrics.Counter)
	for _, kind := range []domain.OutcomeKind{
		domain.OutcomeNone,
		domain.OutcomeEchoed,
		domain.OutcomeProcessedDocument,
		domain.OutcomeUnsupported,
		domain.OutcomeError,
	} {
		outcomes[kind] = coll.Counter(
			"pagebot_dispatch_outcomes_total",
			fmt.Sprintf("outcome=%q", string(kind)),
			"Dispatched updates by terminal outcome.",
		)
	}

	return &Dispatcher{
		messenger:       cfg.Messenger,
		files:           cfg.Files,
		processor:       cfg.Processor,
		forwarder:       cfg.Forwarder,
		logger:          cfg.Logger,
		outcomes:        outcomes,
		sendFailures:    coll.Counter("pagebot_send_failures_total", "", "Outbound replies that were not delivered."),
		forwardFailures: coll.Counter("pagebot_forward_failures_total", "", "Forward attempts rejected or unreachable."),
	}
}

// Dispatch classifies the update, runs the matching path, sends the
// single primary reply, and then attempts best-effort forwarding. The
// returned outcome is decided before forwarding and never changed by it.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) domain.DispatchOutcome {
	cls := Classify(update)
	log := d.logger.With(
		"trace_id", uuid.NewString(),
		"kind", string(cls.Kind),
		"chat_id", cls.ChatID,
	)

	var out domain.DispatchOutcome
	switch cls.Kind {
	case domain.KindNone:
		out = domain.DispatchOutcome{Kind: domain.OutcomeNone}
	case domain.KindText:
		out = domain.DispatchOutcome{Kind: domain.OutcomeEchoed, ReplyText: echoReply(cls.Text)}
	case domain.KindDocument:
		out = d.retrieveAndProcess(ctx, log, cls)
	default:
		log.Info("unsupported message", "mime_type", cls.MimeType)
		out = domain.DispatchOutcome{Kind: domain.OutcomeUnsupported, ReplyText: replyUnsupported}
	}

	if out.ReplyText != "" {
		if res := d.messenger.SendMessage(ctx, cls.ChatID, out.ReplyText); !res.Delivered {
			d.sendFailures.Inc()
			log.Error("reply delivery failed", "detail", res.Detail)
		}
	}

	d.forward(ctx, log, cls, out)

	d.outcomes[out.Kind].Inc()
	log.Info("update dispatched", "outcome", string(out.Kind))
	return out
}

// forward relays a normalized payload after the primary reply. Only
// outcomes that produced a user-visible result are forwarded; a failure
// adds one secondary notice and never touches the decided outcome.
func (d *Dispatcher) forward(ctx context.Context, log *slog.Logger, cls domain.Classification, out domain.DispatchOutcome) {
	if d.forwarder == nil || !d.forwarder.Enabled() {
		return
	}
	if out.Kind != domain.OutcomeEchoed && out.Kind != domain.OutcomeProcessedDocument {
		return
	}

	text := cls.Text
	if text == "" {
		text = out.ReplyText
	}
	err := d.forwarder.Forward(ctx, domain.ForwardPayload{
		ChatID:     cls.ChatID,
		Text:       text,
		SenderID:   cls.SenderID,
		SenderName: cls.SenderName,
		Timestamp:  cls.SentAt.Unix(),
	})
	if err != nil {
		d.forwardFailures.Inc()
		log.Warn("forwarding failed", "err", err)
		if res := d.messenger.SendMessage(ctx, cls.ChatID, replyForwardFailed); !res.Delivered {
			d.sendFailures.Inc()
			log.Error("forward-failure notice delivery failed", "detail", res.Detail)
		}
	}
}
