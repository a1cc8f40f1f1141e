package services

import (
	"fmt"
	"time"
)

// PromptBuilder 生成系统指令
type PromptBuilder struct {
	schoolName    string
	greeting      string
	footer        string
	unknownAnswer string
	now           func() time.Time
}

// NewPromptBuilder 创建系统指令生成器，now为nil时使用当前时间
func NewPromptBuilder(schoolName, greeting, footer, unknownAnswer string, now func() time.Time) *PromptBuilder {
	if now == nil {
		now = time.Now
	}
	return &PromptBuilder{
		schoolName:    schoolName,
		greeting:      greeting,
		footer:        footer,
		unknownAnswer: unknownAnswer,
		now:           now,
	}
}

// SystemInstruction 人设、当天日期、问候语与结束语、不知道时的回答、英式拼写
func (p *PromptBuilder) SystemInstruction() string {
	return fmt.Sprintf(
		"You are a friendly, professional assistant for %s.\n"+
			"Today's date is %s.\n"+
			"Begin with '%s' and end with '%s'.\n"+
			"If you do not know the answer, say '%s'\n"+
			"Use British spelling.",
		p.schoolName,
		p.now().Format("2006-01-02"),
		p.greeting,
		p.footer,
		p.unknownAnswer,
	)
}
