package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"
)

// Load parses a prompt file. A prompt is either plain YAML or YAML
// frontmatter between "---" lines followed by a markdown body; the body is
// the system template unless the frontmatter sets one.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := parsePrompt(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if cfg.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

func parsePrompt(data []byte) (Config, string, error) {
	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if text == "" {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	front, body, hasFront := splitFrontmatter(text)
	var cfg Config
	if !hasFront {
		if err := yaml.Unmarshal([]byte(text), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid yaml: %w", err)
		}
		return cfg, "", nil
	}
	if err := yaml.Unmarshal([]byte(front), &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, body, nil
}

// splitFrontmatter splits text opening with a "---" line. An unterminated
// block is all frontmatter.
func splitFrontmatter(text string) (front, body string, ok bool) {
	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return strings.Join(lines[1:], "\n"), "", true
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Slug) == "" {
		return fmt.Errorf("slug is required")
	}
	for _, name := range cfg.Input.RequiredVariables {
		if !strings.Contains(cfg.SystemTemplate+cfg.UserTemplate, "{{"+name+"}}") {
			return fmt.Errorf("required variable %q not referenced by any template", name)
		}
	}
	if len(cfg.ResponseSchema) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(cfg.ResponseSchema)
	if err != nil {
		return fmt.Errorf("encode response_schema: %w", err)
	}
	if _, err := schema.NewValidator(schemaBytes); err != nil {
		return fmt.Errorf("compile response_schema: %w", err)
	}
	return nil
}

// Render substitutes {{name}} placeholders in template with vars.
// Unknown placeholders are left in place.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
