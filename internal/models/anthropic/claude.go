// Package anthropic provides a Claude implementation of the ADK model.LLM
// interface.
package anthropic

import (
	"context"
	"fmt"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/adk/model"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const defaultMaxTokens = 1024

// ClaudeModel implements the model.LLM interface for Anthropic Claude models
type ClaudeModel struct {
	client    anthropic.Client
	modelName string
	log       logger.Logger
}

// NewClaudeModel creates a new Claude model instance
func NewClaudeModel(apiKey, modelName string, log logger.Logger, opts ...option.RequestOption) (*ClaudeModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if modelName == "" {
		modelName = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := anthropic.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	return &ClaudeModel{
		client:    client,
		modelName: modelName,
		log:       log.WithFields(logger.StringField("component", "claude_model"), logger.StringField("model", modelName)),
	}, nil
}

// Name returns the name of the model
func (c *ClaudeModel) Name() string {
	return c.modelName
}

// GenerateContent implements the model.LLM interface. Streaming requests are
// served as a single complete response.
func (c *ClaudeModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		c.log.Debug("Generating content",
			logger.BoolField("stream", stream),
			logger.IntField("contents_count", len(req.Contents)))

		resp, err := c.generate(ctx, req)
		yield(resp, err)
	}
}

func (c *ClaudeModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	messages, systemPrompt, err := transformADKToAnthropic(req)
	if err != nil {
		return nil, fmt.Errorf("failed to transform request: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if req.Config != nil {
		if req.Config.MaxOutputTokens > 0 {
			params.MaxTokens = int64(req.Config.MaxOutputTokens)
		}
		if req.Config.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*req.Config.Temperature))
		}
		if req.Config.TopP != nil {
			params.TopP = anthropic.Float(float64(*req.Config.TopP))
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude api error: %w", err)
	}

	llmResponse, err := transformAnthropicToADK(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to transform response: %w", err)
	}
	c.log.Debug("Received response", logger.IntField("content_blocks", len(resp.Content)))
	return llmResponse, nil
}
