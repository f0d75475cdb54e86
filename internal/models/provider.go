package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/adk/model"

	"github.com/lewisedginton/ward_desk/internal/models/anthropic"
	"github.com/lewisedginton/ward_desk/internal/models/bedrock"
	"github.com/lewisedginton/ward_desk/internal/models/gemini"
	"github.com/lewisedginton/ward_desk/internal/models/openai"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// Provider names.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderBedrock   = "bedrock"
)

// Providers lists every accepted provider name.
var Providers = []string{ProviderNone, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderBedrock}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the OpenAI or Anthropic endpoint.
	BaseURL       string
	GeminiProject string
	GeminiRegion  string
	AWSRegion     string
}

// New builds the configured generator. The "none" provider, or an empty
// one, returns a nil Generator and no error.
func New(ctx context.Context, cfg Config, log logger.Logger) (Generator, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var (
		llm model.LLM
		err error
	)
	switch provider {
	case "", ProviderNone:
		log.Info("Generation fallback disabled")
		return nil, nil

	case ProviderOpenAI:
		var opts []openaioption.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, openaioption.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(cfg.APIKey, cfg.Model, log, opts...)

	case ProviderAnthropic:
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		llm, err = anthropic.NewClaudeModel(cfg.APIKey, cfg.Model, log, opts...)

	case ProviderGemini:
		llm, err = gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Project: cfg.GeminiProject,
			Region:  cfg.GeminiRegion,
		}, log)

	case ProviderBedrock:
		llm, err = bedrock.New(ctx, cfg.AWSRegion, cfg.Model, log)

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", provider, err)
	}

	log.Info("Generation fallback enabled",
		logger.StringField("provider", provider),
		logger.StringField("model", llm.Name()))
	return NewLLMGenerator(provider, llm), nil
}
