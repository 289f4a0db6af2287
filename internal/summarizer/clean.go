package summarizer

import (
	"strings"
)

var reasoningHeadings = map[string]bool{
	"### 分析":     true,
	"### 步骤":     true,
	"### 思路":     true,
	"### 输出":     true,
	"### 分析请求":   true,
	"### 思考过程":   true,
	"### 最终输出":   true,
	"### **分析**": true,
	"### **步骤**": true,
	"### **思路**": true,
	"### 最终输出生成": true,
}

var numberedHeadingPrefixes = []string{
	"### 1.", "### 2.", "### 3.", "### 4.", "### 5.", "### 6.",
}

var numberedListPrefixes = []string{
	"1. **", "2. **", "3. **", "4. **", "5. **", "6. **",
}

// ExtractCleanSummary strips chain-of-thought chatter that some models
// emit despite the system prompt. It keeps everything from the report
// start marker onward and drops reasoning sections in between. Input
// with no recognizable report structure is returned untouched.
func ExtractCleanSummary(content string) string {
	lines := strings.Split(content, "\n")

	startIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "## 📄") || strings.Contains(line, "论文标题") {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		for i, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "##") {
				startIdx = i
				break
			}
		}
	}
	if startIdx == -1 {
		return content
	}

	var result []string
	skipReasoning := false

	for _, line := range lines[startIdx:] {
		stripped := strings.TrimSpace(line)

		if isReasoningHeading(stripped) {
			skipReasoning = true
			continue
		}

		if skipReasoning {
			if hasAnyPrefix(stripped, numberedListPrefixes) {
				continue
			}
			// A report section heading ends the reasoning block.
			if strings.HasPrefix(stripped, "## ") ||
				strings.HasPrefix(stripped, "### 🎯") ||
				strings.HasPrefix(stripped, "### 💡") ||
				strings.HasPrefix(stripped, "### 🧐") {
				skipReasoning = false
			}
		}

		if !skipReasoning {
			result = append(result, line)
		}
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}

func isReasoningHeading(stripped string) bool {
	if reasoningHeadings[stripped] {
		return true
	}
	return hasAnyPrefix(stripped, numberedHeadingPrefixes)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
