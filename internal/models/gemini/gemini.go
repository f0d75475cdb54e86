// Package gemini builds a Gemini model.LLM, on the Gemini API or Vertex AI.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	adkgemini "google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// Config selects the model and backend. Setting both Project and Region
// switches to Vertex AI.
type Config struct {
	APIKey  string
	Model   string
	Project string
	Region  string
}

// ClientConfig returns the genai client configuration for cfg.
func ClientConfig(cfg Config) *genai.ClientConfig {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey}
	if cfg.Project != "" && cfg.Region != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Region
	}
	return cc
}

// New creates the model.
func New(ctx context.Context, cfg Config, log logger.Logger) (model.LLM, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model name is required")
	}
	cc := ClientConfig(cfg)
	if cc.Backend != genai.BackendVertexAI && cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required without a Vertex AI project")
	}
	if log != nil && cc.Backend == genai.BackendVertexAI {
		log.Info("Using Vertex AI backend",
			logger.StringField("project", cfg.Project),
			logger.StringField("region", cfg.Region))
	}
	return adkgemini.NewModel(ctx, cfg.Model, cc)
}
