package usecase

import (
	"strings"

	"autogen-chat/internal/domain"
)

func buildPromptMessages(message string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: assistantSystemPrompt()},
		{Role: domain.RoleUser, Content: message},
	}
}

func assistantSystemPrompt() string {
	return strings.Join([]string{
		"You are a helpful assistant who can generate images and speak.",
		"Your responses will be converted to speech automatically.",
	}, "\n")
}
