// Package mailparse turns raw RFC 5322 messages and MIME parts into the plain
// text the classifier works on.
package mailparse

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mikey/job-mail-tracker/internal/core"
	"golang.org/x/text/encoding/htmlindex"
)

const maxNestingDepth = 10

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

type header interface {
	Get(key string) string
}

// Parse reads a complete message. The ID is the Message-Id header, or a
// content hash when the header is missing.
func Parse(data []byte) (core.RawMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return core.RawMessage{}, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := ExtractText(msg.Header, msg.Body)
	if err != nil {
		return core.RawMessage{}, fmt.Errorf("failed to extract message text: %w", err)
	}

	// Zero when the Date header is missing or malformed
	received, _ := msg.Header.Date()

	return core.RawMessage{
		ID:         MessageID(msg.Header.Get("Message-Id"), data),
		Sender:     DecodeHeader(msg.Header.Get("From")),
		Subject:    DecodeHeader(msg.Header.Get("Subject")),
		Body:       body,
		ReceivedAt: received,
	}, nil
}

// MessageID returns the Message-Id without angle brackets, falling back to a
// SHA-256 of the raw message
func MessageID(headerValue string, raw []byte) string {
	id := strings.Trim(strings.TrimSpace(headerValue), "<>")
	if id != "" {
		return id
	}
	sum := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(sum[:16])
}

// DecodeHeader decodes RFC 2047 encoded words. Undecodable input is returned as is.
func DecodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// ExtractText returns the best text rendition of a message body: text/plain
// parts when present, otherwise text/html converted to text
func ExtractText(h header, body io.Reader) (string, error) {
	var plain, html strings.Builder
	if err := collect(h, body, &plain, &html, 0); err != nil {
		if plain.Len() == 0 && html.Len() == 0 {
			return "", err
		}
	}

	if plain.Len() > 0 {
		return strings.TrimSpace(plain.String()), nil
	}
	if html.Len() > 0 {
		return HTMLToText(html.String()), nil
	}
	return "", nil
}

func collect(h header, body io.Reader, plain, html *strings.Builder, depth int) error {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxNestingDepth {
			return nil
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read multipart section: %w", err)
			}
			if err := collect(part.Header, part, plain, html, depth+1); err != nil {
				return err
			}
		}
	}

	if strings.HasPrefix(strings.ToLower(h.Get("Content-Disposition")), "attachment") {
		return nil
	}

	var target *strings.Builder
	switch mediaType {
	case "text/plain":
		target = plain
	case "text/html":
		target = html
	default:
		return nil
	}

	data, err := io.ReadAll(DecodeTransfer(h.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return fmt.Errorf("failed to decode %s part: %w", mediaType, err)
	}

	if target.Len() > 0 {
		target.WriteString("\n")
	}
	target.WriteString(DecodeCharset(params["charset"], data))
	return nil
}

// DecodeTransfer wraps r with a decoder for the Content-Transfer-Encoding
func DecodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// DecodeCharset converts data in the named charset to UTF-8
func DecodeCharset(charset string, data []byte) string {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return string(data)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(data)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// HTMLToText renders HTML as plain text, one block element per line
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("head, script, style, noscript").Remove()
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6, table").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	return cleanWhitespace(doc.Text())
}

func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
