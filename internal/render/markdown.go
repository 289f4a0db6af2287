package render

import (
	"fmt"
	"strings"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/summarizer"
)

// MarkdownRenderer produces the full unabridged report. It has no byte
// budget; this is the artifact the compact channels point readers at.
type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

func (r *MarkdownRenderer) Render(items []summarizer.PaperSummary, meta paper.RunMetadata) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "# 📅 AI 前沿论文日报 (%s)\n\n", meta.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "**主题**: %s\n\n", meta.Topic)
	fmt.Fprintf(&b, "**数据源**: %s\n\n", strings.Join(meta.SourceNames(), ", "))
	fmt.Fprintf(&b, "今日为您精选 %d 篇最新论文\n\n", len(items))

	for _, item := range items {
		b.WriteString(r.renderPaper(item))
		b.WriteString("---\n\n")
	}

	text := b.String()
	return Message{Channel: "markdown", Text: text, Bytes: len(text)}
}

// renderPaper uses the generated report verbatim; papers whose
// generation failed get a basic block built from source metadata.
func (r *MarkdownRenderer) renderPaper(item summarizer.PaperSummary) string {
	if item.Raw != "" {
		return strings.TrimRight(item.Raw, "\n") + "\n\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## 📄 论文标题：%s\n", item.Paper.Title)
	fmt.Fprintf(&b, "**第一作者**：%s\n", item.Paper.FirstAuthor())
	abstract := item.Paper.Abstract
	if abstract == "" {
		abstract = "无摘要"
	}
	fmt.Fprintf(&b, "\n### 🎯 核心摘要\n%s\n", abstract)
	if item.Paper.URL != "" {
		fmt.Fprintf(&b, "\n🔗 **原文链接**: %s\n", item.Paper.URL)
	}
	if item.Paper.Source != "" {
		fmt.Fprintf(&b, "📚 **来源**: %s\n", item.Paper.Source)
	}
	b.WriteString("\n")
	return b.String()
}
