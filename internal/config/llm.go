package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/ward_desk/internal/models"
)

// GenerationConfig selects the optional generation fallback.
type GenerationConfig struct {
	// Provider is one of none, openai, anthropic, gemini or bedrock.
	Provider     string        `env:"LLM_PROVIDER" yaml:"provider" default:"none"`
	Timeout      time.Duration `env:"LLM_TIMEOUT" yaml:"timeout" default:"5s"`
	MaxTokens    int           `env:"LLM_MAX_TOKENS" yaml:"max_tokens" default:"200"`
	Temperature  float64       `env:"LLM_TEMPERATURE" yaml:"temperature" default:"0.7"`
	HistoryTurns int           `env:"LLM_HISTORY_TURNS" yaml:"history_turns" default:"5"`

	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Bedrock   BedrockConfig   `yaml:"bedrock"`
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey     string `env:"OPENAI_API_KEY" yaml:"-"`
	Model      string `env:"OPENAI_MODEL" yaml:"model" default:"gpt-4o-mini"`
	APIBaseURL string `env:"OPENAI_API_URL" yaml:"api_base_url"`
}

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey     string `env:"ANTHROPIC_API_KEY" yaml:"-"`
	Model      string `env:"CLAUDE_MODEL" yaml:"model" default:"claude-sonnet-4-5-20250929"`
	APIBaseURL string `env:"ANTHROPIC_API_URL" yaml:"api_base_url"`
}

// GeminiConfig holds Google Gemini-specific configuration
type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY" yaml:"-"`
	Model   string `env:"GEMINI_MODEL" yaml:"model" default:"gemini-2.5-flash"`
	Project string `env:"GOOGLE_CLOUD_PROJECT" yaml:"project"` // Optional: for Vertex AI
	Region  string `env:"GOOGLE_CLOUD_REGION" yaml:"region"`   // Optional: for Vertex AI
}

// BedrockConfig uses the default AWS credential chain.
type BedrockConfig struct {
	Model  string `env:"BEDROCK_MODEL" yaml:"model" default:"anthropic.claude-3-haiku-20240307-v1:0"`
	Region string `env:"BEDROCK_REGION" yaml:"region"`
}

func (g GenerationConfig) provider() string {
	return strings.ToLower(strings.TrimSpace(g.Provider))
}

// Enabled reports whether a generation provider is selected.
func (g GenerationConfig) Enabled() bool {
	p := g.provider()
	return p != "" && p != models.ProviderNone
}

func (g GenerationConfig) Validate() error {
	var result error
	if p := g.provider(); p != "" && !slices.Contains(models.Providers, p) {
		result = multierror.Append(result, fmt.Errorf("llm provider must be one of %v, got %q", models.Providers, g.Provider))
	}
	if !g.Enabled() {
		return result
	}
	if g.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("llm timeout must be greater than 0"))
	}
	if g.MaxTokens <= 0 {
		result = multierror.Append(result, fmt.Errorf("llm max_tokens must be greater than 0"))
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		result = multierror.Append(result, fmt.Errorf("llm temperature must be within [0, 2]"))
	}
	switch g.provider() {
	case models.ProviderOpenAI:
		if g.OpenAI.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required for the openai provider"))
		}
	case models.ProviderAnthropic:
		if g.Anthropic.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	case models.ProviderGemini:
		if g.Gemini.APIKey == "" && g.Gemini.Project == "" {
			result = multierror.Append(result, fmt.Errorf("GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT is required for the gemini provider"))
		}
	}
	return result
}

// ModelConfig maps the selected provider's settings onto models.Config.
func (g GenerationConfig) ModelConfig() models.Config {
	cfg := models.Config{Provider: g.provider()}
	switch cfg.Provider {
	case models.ProviderOpenAI:
		cfg.APIKey, cfg.Model, cfg.BaseURL = g.OpenAI.APIKey, g.OpenAI.Model, g.OpenAI.APIBaseURL
	case models.ProviderAnthropic:
		cfg.APIKey, cfg.Model, cfg.BaseURL = g.Anthropic.APIKey, g.Anthropic.Model, g.Anthropic.APIBaseURL
	case models.ProviderGemini:
		cfg.APIKey, cfg.Model = g.Gemini.APIKey, g.Gemini.Model
		cfg.GeminiProject, cfg.GeminiRegion = g.Gemini.Project, g.Gemini.Region
	case models.ProviderBedrock:
		cfg.Model, cfg.AWSRegion = g.Bedrock.Model, g.Bedrock.Region
	}
	return cfg
}
