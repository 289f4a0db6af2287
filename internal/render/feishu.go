package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/summarizer"
)

// Display caps for the Feishu layout. Tighter than WeChat because the
// budget is in bytes and CJK text costs three bytes per character.
const (
	feishuNarrativeMax   = 120
	feishuInnovationMax  = 60
	feishuMaxInnovations = 2
	feishuMaxPapers      = 3
)

// FeishuRenderer builds a key-info-first layout for Feishu group bots.
// The bot enforces a 20KB request body limit, so at most
// feishuMaxPapers papers are shown and the header says how many were
// left out.
type FeishuRenderer struct {
	maxBytes int
	now      func() time.Time
}

func NewFeishuRenderer(maxBytes int) *FeishuRenderer {
	return &FeishuRenderer{maxBytes: maxBytes, now: time.Now}
}

func (r *FeishuRenderer) Render(items []summarizer.PaperSummary, meta paper.RunMetadata) Message {
	shown := items
	if len(shown) > feishuMaxPapers {
		shown = shown[:feishuMaxPapers]
	}

	parts := []string{r.header(meta, len(shown), len(items))}
	for _, item := range shown {
		parts = append(parts, r.renderPaper(item), "---")
	}
	parts = append(parts, fmt.Sprintf("> 📅 %s | 📊 共**%d**篇", r.now().Format("2006-01-02 15:04"), len(items)))

	text := strings.Join(parts, "\n")

	truncated := false
	if len(text) > r.maxBytes {
		marker := truncationMarker
		cut := r.maxBytes - len(marker)
		if cut < 0 {
			// Budget too small for the marker itself; hard cut.
			marker = ""
			cut = r.maxBytes
		}
		// Back off to a rune boundary so the cut never splits a
		// multibyte character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + marker
		truncated = true
	}

	return Message{Channel: "feishu", Text: text, Bytes: len(text), Truncated: truncated}
}

func (r *FeishuRenderer) header(meta paper.RunMetadata, shown, total int) string {
	header := fmt.Sprintf("# 📅 **AI 论文日报** | %s\n\n", meta.Date.Format("2006-01-02"))
	header += fmt.Sprintf("**主题**: %s\n\n", meta.Topic)
	if shown < total {
		header += fmt.Sprintf("精选 **%d** 篇（共 %d 篇）\n", shown, total)
	} else {
		header += fmt.Sprintf("精选 **%d** 篇\n", shown)
	}
	return header
}

func (r *FeishuRenderer) renderPaper(item summarizer.PaperSummary) string {
	s := item.Summary

	title := s.TitleZH
	if title == "" {
		title = item.Paper.Title
	}
	author := s.Author
	if author == "" {
		author = item.Paper.FirstAuthor()
	}

	parts := []string{fmt.Sprintf("## 📌 %s", title)}

	info := []string{fmt.Sprintf("**👤**: %s", author)}
	if item.Paper.Source != "" {
		info = append(info, fmt.Sprintf("**📚**: %s", item.Paper.Source))
	}
	if item.Paper.URL != "" {
		info = append(info, fmt.Sprintf("**🔗**: [%s](%s)", item.Paper.URL, item.Paper.URL))
	}
	parts = append(parts, strings.Join(info, "\n"))

	if narrative := joinLines(s.Narrative); narrative != "" {
		parts = append(parts, fmt.Sprintf("**💡 核心摘要**: %s", capText(narrative, feishuNarrativeMax)))
	}

	if len(s.Innovations) > 0 {
		lines := []string{"**🎯 核心创新**"}
		for _, innovation := range s.Innovations {
			if len(lines) > feishuMaxInnovations {
				break
			}
			lines = append(lines, fmt.Sprintf("- %s", capText(innovation, feishuInnovationMax)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if comment := joinLines(s.Comment); comment != "" {
		parts = append(parts, fmt.Sprintf("**📝 简评**: %s", comment))
	}

	return strings.Join(parts, "\n")
}
