// Package processor derives a summary from downloaded document content.
package processor

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"pagebot/internal/domain"
)

// documentURL anchors relative links during extraction; the content never
// came from a real page address.
var documentURL = &url.URL{Scheme: "https", Host: "document.invalid", Path: "/"}

// Readability summarizes HTML by extracting the readable article text and
// counting it. Process never fails: when extraction finds nothing, the
// whole input is counted instead.
type Readability struct{}

func New() *Readability { return &Readability{} }

func (p *Readability) Process(content []byte) domain.Summary {
	text := string(content)
	title := ""

	article, err := readability.FromReader(bytes.NewReader(content), documentURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		text = article.TextContent
		title = strings.TrimSpace(article.Title)
	}

	text = strings.TrimSpace(text)
	return domain.Summary{
		Words: len(strings.Fields(text)),
		Chars: utf8.RuneCountInString(text),
		Title: title,
	}
}
