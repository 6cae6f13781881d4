package service

import (
	"argumentor-go/pkg/llm"
	"fmt"
	"strings"
)

// NormalPrinciple 表示“未指定伦理框架”，不会进入 prompt 也不会被保存。
const NormalPrinciple = "Normal"

// FilterPrinciples 去掉 "Normal"，保持其余条目的原始顺序。返回值永远不为 nil。
func FilterPrinciples(principles []string) []string {
	filtered := make([]string, 0, len(principles))
	for _, p := range principles {
		if p == NormalPrinciple {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// BuildPrompt 按固定顺序组装本轮 prompt：人设 -> 辩论风格 -> 伦理框架（可选） -> 用户输入。
func BuildPrompt(persona, style string, frameworks []string, userText string) []llm.Message {
	msgs := make([]llm.Message, 0, 4)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: persona})
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf("Debate style: %s. Keep this tone in every reply.", style),
	})
	if len(frameworks) > 0 {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("Argue from the perspective of these ethical frameworks: %s.", strings.Join(frameworks, ", ")),
		})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: userText})
	return msgs
}
