package summarizer

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"
)

// Report line markers emitted by the prompt template. Models
// occasionally drop the emoji decoration, so the bare 标题 form is
// accepted too.
const (
	markerTitle       = "## 📄 论文标题："
	markerTitleBare   = "标题"
	markerOrigTitle   = "**原标题**："
	markerFirstAuthor = "**第一作者**："
	markerNarrative   = "### 🎯 核心摘要"
	markerInnovations = "### 💡 核心创新点与贡献"
	markerComment     = "### 🧐 简评与启示"
	markerLink        = "🔗 **原文链接**："
	markerSource      = "📚 **来源**："
)

// requiredSections are the report sections a complete summary must
// contain, keyed by the names used in Missing.
var requiredSections = []struct {
	name   string
	marker string
}{
	{"summary", markerNarrative},
	{"innovations", markerInnovations},
	{"comment", markerComment},
}

// ParseSummary extracts the structured fields from a generated report.
// It never fails: unrecognized lines are skipped and absent fields stay
// empty, so a half-formed report still renders as well as it can.
func ParseSummary(raw string) StructuredSummary {
	var result StructuredSummary
	section := ""

	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		switch {
		case strings.HasPrefix(stripped, markerTitle):
			result.applyTitle(strings.TrimSpace(strings.TrimPrefix(stripped, markerTitle)))
		case hasBareTitleMarker(stripped):
			result.applyTitle(trimBareTitleMarker(stripped))
		case strings.HasPrefix(stripped, markerOrigTitle):
			result.TitleEN = strings.TrimSpace(strings.TrimPrefix(stripped, markerOrigTitle))
		case strings.HasPrefix(stripped, markerFirstAuthor):
			info := strings.TrimSpace(strings.TrimPrefix(stripped, markerFirstAuthor))
			parts := strings.SplitN(info, "|", 2)
			result.Author = strings.TrimSpace(parts[0])
			if len(parts) > 1 {
				result.Institution = strings.TrimSpace(parts[1])
			} else {
				result.Institution = "未知"
			}
		case strings.HasPrefix(stripped, markerNarrative):
			section = "summary"
		case strings.HasPrefix(stripped, markerInnovations):
			section = "innovations"
		case strings.HasPrefix(stripped, markerComment):
			section = "comment"
		case strings.HasPrefix(stripped, markerLink), strings.HasPrefix(stripped, markerSource):
			// Metadata echoed back by the model, already known.
		case section == "innovations" && isBulletLine(stripped):
			if item := trimBullet(stripped); item != "" {
				result.Innovations = append(result.Innovations, item)
			}
		case section != "" && !strings.HasPrefix(stripped, "#") && !strings.HasPrefix(stripped, "**"):
			switch section {
			case "summary":
				result.Narrative = append(result.Narrative, stripped)
			case "innovations":
				result.Innovations = append(result.Innovations, stripped)
			case "comment":
				result.Comment = append(result.Comment, stripped)
			}
		}
	}

	return result
}

// ValidateSummary returns the names of required sections missing from
// the report, nil when the report is complete.
func ValidateSummary(raw string) []string {
	var missing []string
	for _, s := range requiredSections {
		if !strings.Contains(raw, s.marker) {
			missing = append(missing, s.name)
		}
	}
	return missing
}

// applyTitle assigns a title line to the Chinese or English slot by
// script rather than by position. Lines like "标题: 某某 / Title: Some"
// carry both.
func (s *StructuredSummary) applyTitle(text string) {
	zh, en := splitTitle(text)
	if zh != "" {
		s.TitleZH = zh
	}
	if en != "" && s.TitleEN == "" {
		s.TitleEN = en
	}
}

func hasBareTitleMarker(stripped string) bool {
	return strings.HasPrefix(stripped, markerTitleBare+":") ||
		strings.HasPrefix(stripped, markerTitleBare+"：")
}

func trimBareTitleMarker(stripped string) string {
	rest := strings.TrimPrefix(stripped, markerTitleBare)
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimPrefix(rest, "：")
	return strings.TrimSpace(rest)
}

func isBulletLine(stripped string) bool {
	if strings.HasPrefix(stripped, "*") ||
		strings.HasPrefix(stripped, "-") ||
		strings.HasPrefix(stripped, "•") {
		return true
	}
	// Numbered bullets: "1. point"
	if len(stripped) > 1 && stripped[0] >= '0' && stripped[0] <= '9' {
		rest := strings.TrimLeft(stripped, "0123456789")
		return strings.HasPrefix(rest, ".")
	}
	return false
}

func trimBullet(stripped string) string {
	s := strings.TrimLeft(stripped, "*-• ")
	if s != stripped {
		return strings.TrimSpace(s)
	}
	s = strings.TrimLeft(stripped, "0123456789")
	s = strings.TrimPrefix(s, ".")
	return strings.TrimSpace(s)
}

// splitTitle divides a title line into its Chinese and English parts.
// A "/" separates the two when both are present; each half is assigned
// by detected script, never by position.
func splitTitle(text string) (zh, en string) {
	if parts := strings.SplitN(text, "/", 2); len(parts) == 2 {
		a := stripTitleLabel(parts[0])
		b := stripTitleLabel(parts[1])
		aZh, bZh := isChinese(a), isChinese(b)
		if aZh && !bZh {
			return a, b
		}
		if bZh && !aZh {
			return b, a
		}
		// Same script on both sides means the slash is part of the
		// title itself.
	}

	single := stripTitleLabel(text)
	if isChinese(single) {
		return single, ""
	}
	return "", single
}

// stripTitleLabel removes a leading "Title:" or "标题:" label.
func stripTitleLabel(s string) string {
	s = strings.TrimSpace(s)
	for _, label := range []string{"Title:", "Title：", "标题:", "标题："} {
		if strings.HasPrefix(s, label) {
			return strings.TrimSpace(strings.TrimPrefix(s, label))
		}
	}
	return s
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// isChinese reports whether text reads as Chinese. Any Han rune decides
// immediately; otherwise a language detector settles borderline input.
func isChinese(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}

	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Chinese, lingua.English).
			Build()
	})
	lang, ok := detector.DetectLanguageOf(text)
	return ok && lang == lingua.Chinese
}
