package driver

import (
	"context"
	"strings"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "openai", "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsJSONMode  bool
	SupportsStreaming bool
}

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single text chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// IsJSON reports whether the caller asked for a JSON object.
func (f *ResponseFormat) IsJSON() bool {
	return f != nil && strings.EqualFold(strings.TrimSpace(f.Type), "json_object")
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
}

// SystemAndTurns splits the system message from the conversational turns.
func (r *Request) SystemAndTurns() (string, []Message) {
	if r == nil {
		return "", nil
	}
	var system []string
	turns := make([]Message, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	return strings.Join(system, "\n\n"), turns
}

// Response is a provider-agnostic completion response.
type Response struct {
	Text         string
	FinishReason string
	Usage        *Usage
}
