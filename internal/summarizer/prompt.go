package summarizer

import (
	"fmt"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

const systemPrompt = "你是一个专业的AI论文翻译助手。只输出格式化的中文报告，不要输出任何思考过程或分析说明。"

const promptTemplate = `任务：翻译以下英文论文摘要为中文技术简报。

必须严格按照以下格式输出，不要包含任何其他内容：

## 📄 论文标题：[中文翻译的标题]
**原标题**：%s
**第一作者**：%s | **机构**：未知

### 🎯 核心摘要
[用中文翻译论文摘要，保持专业术语准确性]

### 💡 核心创新点与贡献
* [根据摘要列出3个核心创新点]
* [创新点2]
* [创新点3]

### 🧐 简评与启示
[一句话总结论文价值]

论文摘要：%s

输出要求：
1. 只输出格式化的报告内容
2. 不要输出任何分析、思考过程、步骤说明
3. 不要输出"好的，我来翻译"之类的开头
4. 直接从"## 📄"开始输出
5. 确保核心摘要部分有完整的内容，不要留空`

// BuildPrompt fills the summary prompt template for one paper.
func BuildPrompt(p paper.Paper) string {
	return fmt.Sprintf(promptTemplate, p.Title, p.FirstAuthor(), p.Abstract)
}
