// Package moonshot adapts Moonshot's OpenAI-compatible chat API to the ADK
// model.LLM interface, with tool calling mapped onto genai function calls.
package moonshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	defaultBaseURL = "https://api.moonshot.ai/v1"
	defaultModel   = "kimi-k2-turbo-preview"

	// A single completion, even one carrying a long tool transcript, should
	// finish well within this; the cap keeps a wedged upstream from pinning
	// a worker slot forever.
	requestTimeout = 2 * time.Minute
)

// Config selects the model and credentials.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// DisableThinking turns off thinking mode on models that support it.
	// Non-thinking mode runs at the provider's fixed temperature.
	DisableThinking bool
}

// KimiModel is the ADK-facing client.
type KimiModel struct {
	config Config
	client *http.Client
}

func NewModel(cfg Config) *KimiModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &KimiModel{
		config: cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (m *KimiModel) Name() string {
	return m.config.Model
}

// GenerateContent implements model.LLM. Moonshot is not streamed here; the
// sequence yields the single final response.
func (m *KimiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

// Wire types for the chat completions endpoint.

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatToolCallFunc `json:"function"`
}

type chatToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatToolDef struct {
	Type     string          `json:"type"`
	Function chatToolDefFunc `json:"function"`
}

type chatToolDefFunc struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

// postChat sends one chat completion request and returns the decoded body
// with at least one choice, or an error describing what the API did instead.
func (m *KimiModel) postChat(ctx context.Context, payload map[string]interface{}) (*chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode kimi request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// A proxy or gateway error page is not JSON; surface the status.
		return nil, fmt.Errorf("decode kimi response (http %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("kimi api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("kimi api error: empty choices (http %d)", resp.StatusCode)
	}

	return &result, nil
}

func (m *KimiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	payload := map[string]interface{}{
		"model":    m.config.Model,
		"messages": messagesFromContents(req.Contents),
	}
	if m.config.DisableThinking {
		payload["thinking"] = map[string]string{"type": "disabled"}
	} else if req.Config != nil && req.Config.Temperature != nil {
		payload["temperature"] = float64(*req.Config.Temperature)
	}
	if tools := toolsFromRequest(req); len(tools) > 0 {
		payload["tools"] = tools
		payload["tool_choice"] = "auto"
	}

	result, err := m.postChat(ctx, payload)
	if err != nil {
		return nil, err
	}

	choice := result.Choices[0].Message
	parts := make([]*genai.Part, 0, 1+len(choice.ToolCalls))
	if strings.TrimSpace(choice.Content) != "" {
		parts = append(parts, genai.NewPartFromText(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{"_raw": tc.Function.Arguments}
			}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
		})
	}

	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: parts,
		},
	}, nil
}

// messagesFromContents flattens the ADK conversation into chat messages.
// Tool responses become their own tool-role messages; text and tool calls
// from one content collapse into a single assistant or user message.
func messagesFromContents(contents []*genai.Content) []chatMessage {
	messages := make([]chatMessage, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}

		role := "user"
		if content.Role == "model" {
			role = "assistant"
		}

		var (
			toolCalls []chatToolCall
			text      strings.Builder
		)
		for _, part := range content.Parts {
			switch {
			case part == nil:
			case part.FunctionResponse != nil:
				payload, _ := json.Marshal(part.FunctionResponse.Response)
				messages = append(messages, chatMessage{
					Role:       "tool",
					ToolCallID: part.FunctionResponse.ID,
					Content:    string(payload),
					Name:       part.FunctionResponse.Name,
				})
			case part.FunctionCall != nil:
				args, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, chatToolCall{
					ID:   part.FunctionCall.ID,
					Type: "function",
					Function: chatToolCallFunc{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})
			case strings.TrimSpace(part.Text) != "":
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString(part.Text)
			}
		}

		body := strings.TrimSpace(text.String())
		if body != "" || len(toolCalls) > 0 {
			messages = append(messages, chatMessage{
				Role:      role,
				Content:   body,
				ToolCalls: toolCalls,
			})
		}
	}
	return messages
}

func toolsFromRequest(req *model.LLMRequest) []chatToolDef {
	if req == nil || req.Config == nil || len(req.Config.Tools) == 0 {
		return nil
	}

	var tools []chatToolDef
	for _, gt := range req.Config.Tools {
		if gt == nil || gt.FunctionDeclarations == nil {
			continue
		}
		for _, decl := range gt.FunctionDeclarations {
			if decl == nil || decl.Name == "" {
				continue
			}
			var params interface{}
			switch {
			case decl.ParametersJsonSchema != nil:
				params = decl.ParametersJsonSchema
			case decl.Parameters != nil:
				params = decl.Parameters
			}
			tools = append(tools, chatToolDef{
				Type: "function",
				Function: chatToolDefFunc{
					Name:        decl.Name,
					Description: decl.Description,
					Parameters:  params,
				},
			})
		}
	}

	return tools
}
