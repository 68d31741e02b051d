// Package server is the HTTP shell: it accepts platform updates, exposes
// the operator endpoints, and reports health and metrics.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pagebot/internal/config"
	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

const maxBodySize = 1 << 20 // 1MB

// TestMessage is the canned message sent by the test endpoint and the
// send-test CLI command.
const TestMessage = "🔄 Test message from bot"

// Server wires the HTTP surface to the dispatcher, messenger, and
// registrar. It holds no per-request state.
type Server struct {
	cfg        *config.Config
	dispatcher domain.UpdateDispatcher
	messenger  domain.Messenger
	registrar  domain.WebhookRegistrar
	collector  *metrics.Collector
	logger     *slog.Logger
	server     *http.Server
}

type Config struct {
	Cfg        *config.Config
	Dispatcher domain.UpdateDispatcher
	Messenger  domain.Messenger
	Registrar  domain.WebhookRegistrar
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

func New(cfg Config) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	s := &Server{
		cfg:        cfg.Cfg,
		dispatcher: cfg.Dispatcher,
		messenger:  cfg.Messenger,
		registrar:  cfg.Registrar,
		collector:  cfg.Metrics,
		logger:     cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/set_webhook", s.handleSetWebhook)
	mux.HandleFunc("GET /api/test", s.handleTest)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())

	s.server = &http.Server{
		Addr:              cfg.Cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("server starting", "addr", s.server.Addr)

	go func() {
		<-ctx.Done()
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"status":              "ok",
		"telegram_configured": s.cfg.TelegramConfigured(),
		"forward_configured":  s.cfg.ForwardConfigured(),
		"webhook_url":         s.registrar.CallbackURL(),
	})
}

// handleWebhook receives one platform update. It answers 200 even for
// malformed bodies so the platform does not retry-storm a webhook that is
// failing downstream; only an unreadable body yields a 500.
func (s *Server) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "cannot read body"})
		return
	}
	defer r.Body.Close()

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		s.logger.Error("malformed update body", "err", err, "body_len", len(body))
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	s.dispatcher.Dispatch(r.Context(), update)
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetWebhook(rw http.ResponseWriter, r *http.Request) {
	res := s.registrar.Register(r.Context())
	code := http.StatusOK
	if !res.OK {
		code = http.StatusInternalServerError
	}
	writeJSON(rw, code, res)
}

func (s *Server) handleTest(rw http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("chat_id")
	if raw == "" {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "chat_id required"})
		return
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid chat_id"})
		return
	}

	res := s.messenger.SendMessage(r.Context(), chatID, TestMessage)
	if !res.Delivered {
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"success": false, "message": res.Detail})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"success": true, "message": "test message sent"})
}

func writeJSON(rw http.ResponseWriter, code int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	json.NewEncoder(rw).Encode(v)
}
