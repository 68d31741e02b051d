package domain

import "time"

// MimeHTML is the only attachment MIME type the bot processes.
const MimeHTML = "text/html"

// MessageKind is the single dispatch-driving kind of an inbound message.
// A message carries at most one kind; classification is total.
type MessageKind string

const (
	KindNone        MessageKind = "none" // no message, or no chat to reply to
	KindText        MessageKind = "text"
	KindDocument    MessageKind = "document" // supported attachment (text/html)
	KindUnsupported MessageKind = "unsupported"
)

// Classification is the normalized view of one inbound update. It is
// request-local and carries everything the dispatcher needs: the kind,
// where to reply, and sender metadata for forwarding.
type Classification struct {
	Kind       MessageKind
	ChatID     int64
	Text       string
	FileID     string
	MimeType   string
	SenderID   int64
	SenderName string
	SentAt     time.Time
}

// FileDescriptor is the result of resolving an opaque file handle.
// Created per request, discarded once the download completes or fails.
type FileDescriptor struct {
	RemotePath string
}

// ForwardPayload is the normalized message copy relayed to the optional
// secondary endpoint.
type ForwardPayload struct {
	ChatID     int64  `json:"chat_id"`
	Text       string `json:"text"`
	SenderID   int64  `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}
