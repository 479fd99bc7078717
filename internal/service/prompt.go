package service

import (
	"fmt"
	"strings"

	"mingling-server/internal/affection"
	"mingling-server/internal/llm"
	"mingling-server/internal/model"
)

// buildSystemPrompt 根据角色设定、persona 和当前好感度生成系统提示词
func buildSystemPrompt(character *model.Character, persona *model.Persona, score int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s.\n", character.Name)
	writeField(&sb, "Personality", character.Personality)
	writeField(&sb, "Description", character.Description)
	writeField(&sb, "Background", character.BackgroundInfo)
	if character.Age != nil {
		fmt.Fprintf(&sb, "Age: %d\n", *character.Age)
	}
	writeField(&sb, "Occupation", character.Occupation)
	writeField(&sb, "Habits", character.Habits)
	writeField(&sb, "Scene", character.FirstSceneSetting)

	fmt.Fprintf(&sb, "\nYou are talking with %s.\n", persona.Name)
	writeField(&sb, "About them", persona.Description)
	writeField(&sb, "Basic info", persona.BasicInfo)

	fmt.Fprintf(&sb, "\nYour current affection toward them is %d/100 (%s).\n", score, affection.Level(score))
	sb.WriteString(affection.BehaviorClause(score))
	sb.WriteString("\n\nStay in character at all times and never mention the affection score directly.")

	return sb.String()
}

func writeField(sb *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", label, value)
}

// buildReplyMessages 组装回复请求：系统提示词、历史对话、当前用户消息
func buildReplyMessages(system string, history []model.ChatMessage, userMessage string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, msg := range history {
		role := llm.RoleAssistant
		if msg.IsUserMessage {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Message})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages
}
