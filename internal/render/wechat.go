package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/summarizer"
)

// Display caps for the WeChat compact layout.
const (
	wechatNarrativeMax   = 150
	wechatInnovationMax  = 80
	wechatMaxInnovations = 3
)

// WeChatRenderer builds the compact mobile layout for WeChat Work
// group bots. The budget is counted in characters; the bot rejects
// messages beyond roughly 4096.
type WeChatRenderer struct {
	maxChars int
	now      func() time.Time
}

func NewWeChatRenderer(maxChars int) *WeChatRenderer {
	return &WeChatRenderer{maxChars: maxChars, now: time.Now}
}

func (r *WeChatRenderer) Render(items []summarizer.PaperSummary, meta paper.RunMetadata) Message {
	parts := []string{r.header(meta, len(items)), "---"}
	for _, item := range items {
		parts = append(parts, r.renderPaper(item), "---")
	}
	parts = append(parts, "", r.footer(len(items)))

	text := strings.Join(parts, "\n")

	truncated := false
	if runes := []rune(text); len(runes) > r.maxChars {
		marker := []rune(truncationMarker)
		if r.maxChars > len(marker) {
			text = string(runes[:r.maxChars-len(marker)]) + truncationMarker
		} else {
			// Budget too small for the marker itself; hard cut.
			text = string(runes[:r.maxChars])
		}
		truncated = true
	}

	return Message{Channel: "wechat", Text: text, Bytes: len(text), Truncated: truncated}
}

func (r *WeChatRenderer) header(meta paper.RunMetadata, count int) string {
	return fmt.Sprintf("# 📅 AI 前沿论文日报 (%s)\n\n**主题**: %s\n\n今日为您精选 %d 篇最新论文",
		meta.Date.Format("2006-01-02"), meta.Topic, count)
}

func (r *WeChatRenderer) footer(count int) string {
	return fmt.Sprintf("> 📅 %s | 📊 共**%d**篇", r.now().Format("2006-01-02 15:04"), count)
}

func (r *WeChatRenderer) renderPaper(item summarizer.PaperSummary) string {
	s := item.Summary

	title := s.TitleZH
	if title == "" {
		title = item.Paper.Title
	}
	author := s.Author
	if author == "" {
		author = item.Paper.FirstAuthor()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("📌 **%s**", title))
	if s.TitleEN != "" {
		parts = append(parts, fmt.Sprintf("<font color=\"info\">%s</font>", s.TitleEN))
	}

	info := fmt.Sprintf("> 👤 %s", author)
	if item.Paper.Source != "" {
		info += fmt.Sprintf(" | 📚 %s", item.Paper.Source)
	}
	parts = append(parts, info)

	if narrative := joinLines(s.Narrative); narrative != "" {
		parts = append(parts, fmt.Sprintf("💡 %s", capText(narrative, wechatNarrativeMax)))
	}

	if len(s.Innovations) > 0 {
		lines := []string{"> 🎯 <strong>核心创新</strong>"}
		for _, innovation := range s.Innovations {
			if len(lines) > wechatMaxInnovations {
				break
			}
			lines = append(lines, fmt.Sprintf("> • %s", capText(innovation, wechatInnovationMax)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if comment := joinLines(s.Comment); comment != "" {
		parts = append(parts, fmt.Sprintf("📝 <strong>简评</strong>：%s", comment))
	}
	if item.Paper.URL != "" {
		parts = append(parts, fmt.Sprintf("> 🔗 [📖 阅读原文](%s)", item.Paper.URL))
	}

	return strings.Join(parts, "\n")
}
