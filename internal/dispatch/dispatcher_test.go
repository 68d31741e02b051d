package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

// --- fakes ---

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	sends []sentMessage
	fail  bool
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) domain.SendResult {
	f.sends = append(f.sends, sentMessage{chatID, text})
	if f.fail {
		return domain.SendResult{Detail: "send failed"}
	}
	return domain.SendResult{Delivered: true}
}

type fakeFiles struct {
	resolveErr error
	fetchErr   error
	content    []byte
	resolved   []string
	fetched    []string
}

func (f *fakeFiles) ResolveFile(ctx context.Context, fileID string) (domain.FileDescriptor, error) {
	f.resolved = append(f.resolved, fileID)
	if f.resolveErr != nil {
		return domain.FileDescriptor{}, f.resolveErr
	}
	return domain.FileDescriptor{RemotePath: "documents/file.html"}, nil
}

func (f *fakeFiles) FetchFile(ctx context.Context, remotePath string) ([]byte, error) {
	f.fetched = append(f.fetched, remotePath)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.content, nil
}

type fakeProcessor struct {
	got [][]byte
}

func (f *fakeProcessor) Process(content []byte) domain.Summary {
	f.got = append(f.got, content)
	return domain.Summary{Words: 2, Chars: 5, Title: "Hi"}
}

type fakeForwarder struct {
	enabled bool
	err     error
	got     []domain.ForwardPayload
}

func (f *fakeForwarder) Enabled() bool { return f.enabled }

func (f *fakeForwarder) Forward(ctx context.Context, payload domain.ForwardPayload) error {
	f.got = append(f.got, payload)
	return f.err
}

type fixture struct {
	dispatcher *Dispatcher
	messenger  *fakeMessenger
	files      *fakeFiles
	processor  *fakeProcessor
	forwarder  *fakeForwarder
}

func newFixture() *fixture {
	f := &fixture{
		messenger: &fakeMessenger{},
		files:     &fakeFiles{content: []byte("<p>hi</p>")},
		processor: &fakeProcessor{},
		forwarder: &fakeForwarder{},
	}
	f.dispatcher = New(Config{
		Messenger: f.messenger,
		Files:     f.files,
		Processor: f.processor,
		Forwarder: f.forwarder,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	return f
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: 7, UserName: "alice"},
		Date: 1700000000,
		Text: text,
	}}
}

func documentUpdate(chatID int64, fileID, mimeType string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: 7, UserName: "alice"},
		Date:     1700000000,
		Document: &tgbotapi.Document{FileID: fileID, MimeType: mimeType},
	}}
}

// --- tests ---

func TestDispatch_NoMessage(t *testing.T) {
	f := newFixture()

	out := f.dispatcher.Dispatch(context.Background(), tgbotapi.Update{})
	if out.Kind != domain.OutcomeNone {
		t.Fatalf("expected none outcome, got %s", out.Kind)
	}
	if len(f.messenger.sends) != 0 {
		t.Errorf("expected zero replies, got %d", len(f.messenger.sends))
	}
	if len(f.files.resolved) != 0 {
		t.Errorf("expected zero file calls, got %d", len(f.files.resolved))
	}
}

func TestDispatch_NoChat(t *testing.T) {
	f := newFixture()

	out := f.dispatcher.Dispatch(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Text: "hello"},
	})
	if out.Kind != domain.OutcomeNone {
		t.Fatalf("expected none outcome, got %s", out.Kind)
	}
	if len(f.messenger.sends) != 0 {
		t.Errorf("expected zero replies, got %d", len(f.messenger.sends))
	}
}

func TestDispatch_TextEcho(t *testing.T) {
	f := newFixture()

	out := f.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if out.Kind != domain.OutcomeEchoed {
		t.Fatalf("expected echoed outcome, got %s", out.Kind)
	}
	if len(f.messenger.sends) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(f.messenger.sends))
	}
	sent := f.messenger.sends[0]
	if sent.chatID != 42 {
		t.Errorf("expected reply to chat 42, got %d", sent.chatID)
	}
	if !strings.Contains(sent.text, "hello") {
		t.Errorf("reply should contain the input text, got %q", sent.text)
	}
	if len(f.files.resolved) != 0 {
		t.Error("text path must never call file APIs")
	}
}

func TestDispatch_TextEchoDeterministic(t *testing.T) {
	first := newFixture()
	second := newFixture()

	first.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	second.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if first.messenger.sends[0].text != second.messenger.sends[0].text {
		t.Errorf("same input must produce the same reply: %q vs %q",
			first.messenger.sends[0].text, second.messenger.sends[0].text)
	}
}

func TestDispatch_UnsupportedMime(t *testing.T) {
	f := newFixture()

	out := f.dispatcher.Dispatch(context.Background(), documentUpdate(42, "abc", "image/png"))
	if out.Kind != domain.OutcomeUnsupported {
		t.Fatalf("expected unsupported outcome, got %s", out.Kind)
	}
	if len(f.messenger.sends) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(f.messenger.sends))
	}
	if len(f.files.resolved) != 0 || len(f.files.fetched) != 0 {
		t.Error("unsupported documents must not trigger file resolution or download")
	}
}

func TestDispatch_EmptyMessage(t *testing.T) {
	f := newFixture()

	// Neither text nor document: unsupported, not an error.
	out := f.dispatcher.Dispatch(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
	})
	if out.Kind != domain.OutcomeUnsupported {
		t.Fatalf("expected unsupported outcome, got %s", out.Kind)
	}
	if len(f.messenger.sends) != 1 {
		t.Errorf("expected exactly one reply, got %d", len(f.messenger.sends))
	}
}

func TestDispatch_DocumentHappyPath(t *testing.T) {
	f := newFixture()

	out := f.dispatcher.Dispatch(context.Background(), documentUpdate(42, "abc", "text/html"))
	if out.Kind != domain.OutcomeProcessedDocument {
		t.Fatalf("expected processed outcome, got %s: %s", out.Kind, out.Detail)
	}
	if len(f.files.resolved) != 1 || f.files.resolved[0] != "abc" {
		t.Errorf("expected one resolve of %q, got %v", "abc", f.files.resolved)
	}
	if len(f.files.fetched) != 1 || f.files.fetched[0] != "documents/file.html" {
		t.Errorf("expected one fetch of the resolved path, got %v", f.files.fetched)
	}
	if len(f.processor.got) != 1 || string(f.processor.got[0]) != "<p>hi</p>" {
		t.Errorf("processor should receive the downloaded bytes, got %v", f.processor.got)
	}
	if len(f.messenger.sends) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(f.messenger.sends))
	}
	if !strings.Contains(f.messenger.sends[0].text, "2 words") {
		t.Errorf("reply should report the derived summary, got %q", f.messenger.sends[0].text)
	}
}

func TestDispatch_ResolveFailure(t *testing.T) {
	f := newFixture()
	f.files.resolveErr = errors.New("getFile timed out")

	out := f.dispatcher.Dispatch(context.Background(), documentUpdate(42, "abc", "text/html"))
	if out.Kind != domain.OutcomeError {
		t.Fatalf("expected error outcome, got %s", out.Kind)
	}
	if len(f.files.fetched) != 0 {
		t.Error("download must not run after a failed metadata lookup")
	}
	if len(f.processor.got) != 0 {
		t.Error("processor must not run after a failed metadata lookup")
	}
	if len(f.messenger.sends) != 1 {
		t.Fatalf("expected exactly one error notice, got %d", len(f.messenger.sends))
	}
	if strings.Contains(f.messenger.sends[0].text, "words") {
		t.Errorf("no processed reply may be sent on failure, got %q", f.messenger.sends[0].text)
	}
}

func TestDispatch_FetchFailure(t *testing.T) {
	f := newFixture()
	f.files.fetchErr = errors.New("download timed out")

	out := f.dispatcher.Dispatch(context.Background(), documentUpdate(42, "abc", "text/html"))
	if out.Kind != domain.OutcomeError {
		t.Fatalf("expected error outcome, got %s", out.Kind)
	}
	if len(f.files.resolved) != 1 {
		t.Errorf("metadata lookup should have run once, got %d", len(f.files.resolved))
	}
	if len(f.processor.got) != 0 {
		t.Error("processor must not run after a failed download")
	}
	if len(f.messenger.sends) != 1 {
		t.Errorf("expected exactly one error notice, got %d", len(f.messenger.sends))
	}
}

func TestDispatch_SendFailureKeepsOutcome(t *testing.T) {
	f := newFixture()
	f.messenger.fail = true

	out := f.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if out.Kind != domain.OutcomeEchoed {
		t.Fatalf("a failed delivery must not change the outcome, got %s", out.Kind)
	}
}

func TestDispatch_ForwardSuccess(t *testing.T) {
	f := newFixture()
	f.forwarder.enabled = true

	f.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if len(f.forwarder.got) != 1 {
		t.Fatalf("expected one forward, got %d", len(f.forwarder.got))
	}
	p := f.forwarder.got[0]
	if p.ChatID != 42 || p.Text != "hello" || p.SenderID != 7 || p.SenderName != "alice" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if len(f.messenger.sends) != 1 {
		t.Errorf("successful forwarding must not add extra replies, got %d", len(f.messenger.sends))
	}
}

func TestDispatch_ForwardFailure(t *testing.T) {
	f := newFixture()
	f.forwarder.enabled = true
	f.forwarder.err = errors.New("endpoint returned 500")

	out := f.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if out.Kind != domain.OutcomeEchoed {
		t.Fatalf("forwarding failure must not change the outcome, got %s", out.Kind)
	}
	if len(f.messenger.sends) != 2 {
		t.Fatalf("expected primary reply plus one forward-failure notice, got %d", len(f.messenger.sends))
	}
	if !strings.Contains(f.messenger.sends[0].text, "hello") {
		t.Errorf("primary reply must be sent first, got %q", f.messenger.sends[0].text)
	}
	if !strings.Contains(f.messenger.sends[1].text, "forward") {
		t.Errorf("secondary notice should mention forwarding, got %q", f.messenger.sends[1].text)
	}
}

func TestDispatch_ForwardDocumentPayload(t *testing.T) {
	f := newFixture()
	f.forwarder.enabled = true

	f.dispatcher.Dispatch(context.Background(), documentUpdate(42, "abc", "text/html"))
	if len(f.forwarder.got) != 1 {
		t.Fatalf("expected one forward, got %d", len(f.forwarder.got))
	}
	p := f.forwarder.got[0]
	// Documents carry no message text, so the payload carries the
	// summary reply instead.
	if p.Text == "" {
		t.Fatal("document forward payload must not have empty text")
	}
	if p.Text != f.messenger.sends[0].text {
		t.Errorf("payload should carry the summary reply, got %q want %q",
			p.Text, f.messenger.sends[0].text)
	}
	if p.ChatID != 42 || p.SenderID != 7 {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestDispatch_ForwardNoticeDeliveryFailure(t *testing.T) {
	coll := metrics.New()
	f := newFixture()
	f.forwarder.enabled = true
	f.forwarder.err = errors.New("endpoint returned 500")
	f.messenger.fail = true
	f.dispatcher = New(Config{
		Messenger: f.messenger,
		Files:     f.files,
		Processor: f.processor,
		Forwarder: f.forwarder,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1})),
		Metrics:   coll,
	})

	out := f.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if out.Kind != domain.OutcomeEchoed {
		t.Fatalf("delivery failures must not change the outcome, got %s", out.Kind)
	}
	// Primary reply and the forward-failure notice were both attempted
	// and both failed; each counts as a send failure.
	if len(f.messenger.sends) != 2 {
		t.Fatalf("expected two send attempts, got %d", len(f.messenger.sends))
	}
	failures := coll.Counter("pagebot_send_failures_total", "", "Outbound replies that were not delivered.")
	if got := failures.Value(); got != 2 {
		t.Errorf("expected 2 recorded send failures, got %d", got)
	}
}

func TestDispatch_NoForwardForUnsupported(t *testing.T) {
	f := newFixture()
	f.forwarder.enabled = true

	f.dispatcher.Dispatch(context.Background(), documentUpdate(42, "abc", "image/png"))
	if len(f.forwarder.got) != 0 {
		t.Errorf("unsupported messages must not be forwarded, got %d", len(f.forwarder.got))
	}
}

func TestDispatch_NoForwardWhenDisabled(t *testing.T) {
	f := newFixture()

	f.dispatcher.Dispatch(context.Background(), textUpdate(42, "hello"))
	if len(f.forwarder.got) != 0 {
		t.Errorf("disabled forwarder must not receive payloads, got %d", len(f.forwarder.got))
	}
}
