package services

import (
	"strings"
)

// sentencesPerParagraph 段落满多少句后换段
const sentencesPerParagraph = 3

// AnswerFormatter 把生成文本整理为 问候语…正文…结束语 的固定外观
type AnswerFormatter struct {
	greeting     string
	greetingStem string
	footer       string
}

// NewAnswerFormatter 创建回答格式化器
func NewAnswerFormatter(greeting, footer string) *AnswerFormatter {
	return &AnswerFormatter{
		greeting:     greeting,
		greetingStem: strings.TrimRight(greeting, "!.?"),
		footer:       footer,
	}
}

// StripBullets 去掉行首 "- " 并把所有行用单个空格拼接
func StripBullets(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "- ") {
			line = line[2:]
		}
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " ")
}

// Format 去项目符号、去结束语、按句重新分段，再补齐问候语与结束语
func (f *AnswerFormatter) Format(raw string) string {
	text := StripBullets(raw)
	text = strings.TrimSpace(strings.ReplaceAll(text, f.footer, ""))

	var paragraphs, current []string
	closeParagraph := func() {
		paragraphs = append(paragraphs, strings.Join(current, ". ")+".")
		current = nil
	}

	for _, sentence := range strings.Split(text, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		current = append(current, strings.TrimRight(sentence, "."))
		if len(current) >= sentencesPerParagraph || strings.HasSuffix(sentence, "?") {
			closeParagraph()
		}
	}
	if len(current) > 0 {
		closeParagraph()
	}

	if len(paragraphs) == 0 || !strings.HasPrefix(paragraphs[0], f.greetingStem) {
		paragraphs = append([]string{f.greeting}, paragraphs...)
	}
	paragraphs = append(paragraphs, f.footer)
	return strings.Join(paragraphs, "\n\n")
}
