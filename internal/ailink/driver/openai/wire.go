package openai

import (
	"fmt"
	"strings"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
)

// Chat completions wire format.
type (
	chatCompletionRequest struct {
		Model          string          `json:"model"`
		Messages       []chatMessage   `json:"messages"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
		Temperature    *float64        `json:"temperature,omitempty"`
		MaxTokens      *int            `json:"max_tokens,omitempty"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}

	chatCompletionResponse struct {
		Choices []choice `json:"choices"`
		Usage   *usage   `json:"usage,omitempty"`
	}

	choice struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}

	usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}
)

func buildChatRequest(req *driver.Request) (*chatCompletionRequest, error) {
	switch {
	case req == nil:
		return nil, fmt.Errorf("request is required")
	case strings.TrimSpace(req.Model) == "":
		return nil, fmt.Errorf("model is required")
	case len(req.Messages) == 0:
		return nil, fmt.Errorf("messages are required")
	}

	payload := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		role := strings.TrimSpace(msg.Role)
		if role == "" {
			role = driver.RoleUser
		}
		payload.Messages = append(payload.Messages, chatMessage{Role: role, Content: msg.Content})
	}
	if req.ResponseFormat != nil && strings.TrimSpace(req.ResponseFormat.Type) != "" {
		payload.ResponseFormat = &responseFormat{Type: req.ResponseFormat.Type}
	}
	return payload, nil
}

// toDriverResponse takes the first choice. The search payload is a single
// JSON document, so further choices are ignored.
func toDriverResponse(resp *chatCompletionResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	first := resp.Choices[0]
	out := &driver.Response{Text: first.Message.Content, FinishReason: first.FinishReason}
	if u := resp.Usage; u != nil {
		out.Usage = &driver.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}
