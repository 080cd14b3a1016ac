package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

var replyHeader = regexp.MustCompile(`(?m)^\s*(On .{1,200} wrote:|-{2,}\s*Original Message\s*-{2,})\s*$`)

// TextProcessor prepares message bodies before classification
type TextProcessor struct {
	logger  *zap.Logger
	maxSize int
}

// NewTextProcessor creates a new TextProcessor. A maxSize of zero disables truncation.
func NewTextProcessor(logger *zap.Logger, maxSize int) *TextProcessor {
	return &TextProcessor{
		logger:  logger,
		maxSize: maxSize,
	}
}

// MaxSize returns the configured byte limit
func (tp *TextProcessor) MaxSize() int {
	return tp.maxSize
}

// TruncateText truncates text to at most maxSize bytes on a rune boundary
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// StripQuotedReply removes quoted lines and everything after a reply header,
// so earlier messages in a thread do not influence classification
func (tp *TextProcessor) StripQuotedReply(text string) string {
	if loc := replyHeader.FindStringIndex(text); loc != nil && loc[0] > 0 {
		text = text[:loc[0]]
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ProcessText sanitizes, strips quoted replies and truncates in one operation
func (tp *TextProcessor) ProcessText(text string) string {
	text = tp.SanitizeUTF8(text)
	text = tp.StripQuotedReply(text)
	return tp.TruncateText(text, tp.maxSize)
}
