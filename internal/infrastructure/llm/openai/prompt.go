package openai

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

const systemPrompt = `You are an AI assistant for AMO Events, an events management platform that uses Webflow, Airtable, Xano, n8n, and WhatsApp API.
Answer the user's question based on the provided context. Be concise and clear.
If the context doesn't contain the answer, say "I don't have enough information about that."
Do not make up information. Always reference the source of information if available.
Focus on providing step-by-step instructions for implementation questions.`

// buildChatMessages lays the conversation out as: system prompt, prior
// turns, the question, then the retrieved context as a trailing user
// message.
func buildChatMessages(question, contextBlock string, history []domain.ChatTurn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+3)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	messages = append(messages,
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: question,
		},
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Context: " + contextBlock,
		},
	)
	return messages
}
