package ailink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/schema"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
	"github.com/headhuntertrace/headhunter/internal/ailink/prompt"
	"github.com/headhuntertrace/headhunter/internal/core"
)

const (
	// SearchPromptSlug names the prompt and routing role of the analysis function.
	SearchPromptSlug = "osint-search"

	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// Service coordinates prompt loading, provider selection, and driver execution.
type Service struct {
	Providers *Registry
	Prompts   prompt.Registry
}

// NewService builds a service from provider configuration. A non-empty
// PromptsDir replaces the embedded prompt set.
func NewService(cfg Config) (*Service, error) {
	var (
		prompts []*prompt.Prompt
		err     error
	)
	if dir := strings.TrimSpace(cfg.PromptsDir); dir != "" {
		prompts, err = prompt.LoadFromDir(dir)
	} else {
		prompts, err = prompt.LoadDefaults()
	}
	if err != nil {
		return nil, err
	}
	reg, err := prompt.NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	return &Service{Providers: NewRegistry(cfg), Prompts: reg}, nil
}

// Analyze runs the OSINT search prompt for req.Query and returns validated
// search data. Every failure is a *FunctionError.
func (s *Service) Analyze(ctx context.Context, req AnalysisRequest) (*core.SearchData, error) {
	if s == nil || s.Providers == nil || s.Prompts == nil {
		return nil, &FunctionError{Code: CodeNotConfigured, Message: "ailink service not configured", Status: http.StatusInternalServerError}
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &FunctionError{Code: CodeInvalidInput, Message: "query is required", Status: http.StatusBadRequest}
	}

	promptDef, err := s.Prompts.Get(SearchPromptSlug)
	if err != nil {
		return nil, &FunctionError{Code: CodeNotConfigured, Message: "search prompt unavailable", Status: http.StatusInternalServerError, Details: err.Error(), Err: err}
	}

	resolved, err := s.Providers.Resolve(SearchPromptSlug, promptDef, req.Model)
	if err != nil {
		return nil, &FunctionError{Code: CodeNotConfigured, Message: "no analysis provider available", Status: http.StatusInternalServerError, Details: err.Error(), Err: err}
	}

	vars := map[string]string{"query": query}
	driverReq := &driver.Request{
		Model: resolved.Model,
		Messages: []driver.Message{
			{Role: driver.RoleSystem, Content: prompt.Render(promptDef.Config.SystemTemplate, vars)},
			{Role: driver.RoleUser, Content: prompt.Render(userTemplate(promptDef), vars)},
		},
		ResponseFormat: &driver.ResponseFormat{Type: "json_object"},
		PromptSlug:     promptDef.Config.Slug,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		return nil, mapProviderError(err)
	}

	raw := strings.TrimSpace(resp.Text)
	if raw == "" {
		return nil, invalidResponse("No content in AI response", nil, nil)
	}
	raw = stripCodeFence(raw)

	data, err := decodeSearchData([]byte(raw))
	if err != nil {
		return nil, invalidResponse("Failed to parse search results", []byte(raw), err)
	}
	if err := validateResponse(promptDef, []byte(raw)); err != nil {
		return nil, invalidResponse("Search results failed validation", []byte(raw), err)
	}
	if err := data.Validate(); err != nil {
		return nil, invalidResponse("Search results failed validation", []byte(raw), err)
	}
	return data, nil
}

func (s *Service) timeout() time.Duration {
	duration := s.Providers.Config().DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}

func userTemplate(def *prompt.Prompt) string {
	if tmpl := strings.TrimSpace(def.Config.UserTemplate); tmpl != "" {
		return tmpl
	}
	return "{{query}}"
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		raw = raw[idx+1:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func decodeSearchData(raw []byte) (*core.SearchData, error) {
	var data core.SearchData
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return &data, nil
}

func validateResponse(def *prompt.Prompt, payload []byte) error {
	if def == nil || len(def.Config.ResponseSchema) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(def.Config.ResponseSchema)
	if err != nil {
		return fmt.Errorf("encode response schema: %w", err)
	}
	validator, err := schema.NewValidator(schemaBytes)
	if err != nil {
		return fmt.Errorf("compile response schema: %w", err)
	}
	diagnostics, err := validator.ValidateJSON(payload)
	if err != nil {
		return err
	}
	if len(diagnostics) > 0 {
		return fmt.Errorf("response schema validation failed: %s", diagnostics[0].Message)
	}
	return nil
}
