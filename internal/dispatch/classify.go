package dispatch

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pagebot/internal/domain"
)

// Classify reduces a raw update to exactly one message kind. Total over
// all inputs; first match wins: nothing to reply to, text, supported
// document, then everything else.
func Classify(update tgbotapi.Update) domain.Classification {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID == 0 {
		return domain.Classification{Kind: domain.KindNone}
	}

	c := domain.Classification{
		ChatID: msg.Chat.ID,
		SentAt: time.Unix(int64(msg.Date), 0),
	}
	if msg.From != nil {
		c.SenderID = msg.From.ID
		c.SenderName = msg.From.UserName
		if c.SenderName == "" {
			c.SenderName = msg.From.FirstName
		}
	}

	switch {
	case msg.Text != "":
		c.Kind = domain.KindText
		c.Text = msg.Text
	case msg.Document != nil && msg.Document.MimeType == domain.MimeHTML:
		c.Kind = domain.KindDocument
		c.FileID = msg.Document.FileID
		c.MimeType = msg.Document.MimeType
	default:
		// Covers documents with other MIME types as well as messages
		// carrying neither text nor document.
		c.Kind = domain.KindUnsupported
		if msg.Document != nil {
			c.MimeType = msg.Document.MimeType
		}
	}
	return c
}
