// Package render turns generated summaries into channel-specific
// digest messages.
package render

import (
	"strings"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/summarizer"
)

// Message is a rendered digest ready for delivery.
type Message struct {
	Channel   string
	Text      string
	Bytes     int
	Truncated bool
}

// Renderer produces one channel's view of a digest run.
type Renderer interface {
	Render(items []summarizer.PaperSummary, meta paper.RunMetadata) Message
}

// truncationMarker is appended when a compact render exceeds its
// channel budget. It points readers at the full report file.
const truncationMarker = "\n\n*内容已截断，完整报告请查看 daily_report.md*"

// capText cuts text to at most max characters, replacing the tail with
// an ellipsis. Counting is in runes so multibyte text is not split.
func capText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// joinLines collapses a multi-line section into one display line.
func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, " "))
}
