// Package telegram implements the outbound Bot API surface: sending
// messages, the two-step file download, and webhook registration.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pagebot/internal/domain"
)

const (
	defaultAPIHost = "https://api.telegram.org"

	// Every outbound call makes exactly one attempt, bounded by this timeout.
	requestTimeout = 10 * time.Second

	// maxDownloadBytes caps attachment downloads before processing.
	maxDownloadBytes = 10 << 20
)

// Client talks to the Telegram Bot API over plain HTTP. Failures are
// returned as values; the client never retries and never panics.
type Client struct {
	token   string
	apiHost string
	client  *http.Client
	logger  *slog.Logger
}

type ClientConfig struct {
	Token   string
	APIHost string // default: https://api.telegram.org
	Logger  *slog.Logger

	// HTTPClient overrides the pooled default (used by tests).
	HTTPClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.APIHost == "" {
		cfg.APIHost = defaultAPIHost
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = newHTTPClient(requestTimeout)
	}
	return &Client{
		token:   cfg.Token,
		apiHost: strings.TrimSuffix(cfg.APIHost, "/"),
		client:  httpc,
		logger:  cfg.Logger,
	}
}

// newHTTPClient returns a pooled HTTP client shared across requests.
// The pool is the only cross-request shared resource and is safe for
// concurrent use by construction.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiHost, c.token, method)
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendMessage posts one message to the chat. At most one network attempt;
// a failure comes back as an undelivered result with detail.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) domain.SendResult {
	if c.token == "" {
		return domain.SendResult{Detail: "telegram token not configured"}
	}
	if chatID == 0 {
		return domain.SendResult{Detail: "chat id required"}
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return domain.SendResult{Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	api, err := c.call(ctx, http.MethodPost, c.methodURL("sendMessage"), payload)
	if err != nil {
		return domain.SendResult{Detail: err.Error()}
	}
	if !api.Ok {
		return domain.SendResult{Detail: fmt.Sprintf("telegram error %d: %s", api.ErrorCode, api.Description)}
	}
	c.logger.Debug("message sent", "chat_id", chatID, "chars", len(text))
	return domain.SendResult{Delivered: true}
}

// ResolveFile looks up the remote download path for an opaque file handle.
func (c *Client) ResolveFile(ctx context.Context, fileID string) (domain.FileDescriptor, error) {
	if c.token == "" {
		return domain.FileDescriptor{}, fmt.Errorf("telegram token not configured")
	}
	if fileID == "" {
		return domain.FileDescriptor{}, fmt.Errorf("file id required")
	}

	u := c.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)
	api, err := c.call(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.FileDescriptor{}, err
	}
	if !api.Ok {
		return domain.FileDescriptor{}, fmt.Errorf("telegram error %d: %s", api.ErrorCode, api.Description)
	}

	var file tgbotapi.File
	if err := json.Unmarshal(api.Result, &file); err != nil {
		return domain.FileDescriptor{}, fmt.Errorf("decode getFile result: %w", err)
	}
	if file.FilePath == "" {
		return domain.FileDescriptor{}, fmt.Errorf("getFile response missing file_path")
	}
	return domain.FileDescriptor{RemotePath: file.FilePath}, nil
}

// FetchFile downloads the raw bytes behind a resolved remote path.
// Downloads are capped at maxDownloadBytes.
func (c *Client) FetchFile(ctx context.Context, remotePath string) ([]byte, error) {
	if c.token == "" {
		return nil, fmt.Errorf("telegram token not configured")
	}
	if remotePath == "" {
		return nil, fmt.Errorf("remote path required")
	}

	u := fmt.Sprintf("%s/file/bot%s/%s", c.apiHost, c.token, strings.TrimPrefix(remotePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file exceeds %d byte limit", maxDownloadBytes)
	}
	return data, nil
}

// call performs one Bot API request and decodes the envelope.
func (c *Client) call(ctx context.Context, method, url string, body []byte) (*tgbotapi.APIResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram not reachable: %w", err)
	}
	defer resp.Body.Close()

	var api tgbotapi.APIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&api); err != nil {
		return nil, fmt.Errorf("decode telegram response: %w", err)
	}
	return &api, nil
}
