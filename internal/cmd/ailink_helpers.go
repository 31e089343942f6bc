package cmd

import (
	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/ailink/prompt"
	"github.com/headhuntertrace/headhunter/internal/config"
)

// buildPromptRegistry returns the prompt set the analysis service runs with.
func buildPromptRegistry(cfg *config.Config) (prompt.Registry, error) {
	svc, err := ailink.NewService(cfg.AILink)
	if err != nil {
		return nil, err
	}
	return svc.Prompts, nil
}
