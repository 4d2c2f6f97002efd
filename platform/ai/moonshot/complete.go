package moonshot

import (
	"context"
	"strings"
)

// Complete sends a plain chat completion (no tools) and returns the assistant
// message text. Callers that need structured output instruct the model to
// reply with JSON and parse the returned text themselves.
func (m *KimiModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	payload := map[string]interface{}{
		"model":    m.config.Model,
		"messages": messages,
	}
	if m.config.DisableThinking {
		payload["thinking"] = map[string]string{"type": "disabled"}
	}

	result, err := m.postChat(ctx, payload)
	if err != nil {
		return "", err
	}
	return result.Choices[0].Message.Content, nil
}
