// Package openai provides an OpenAI chat completion implementation of the
// ADK model.LLM interface.
package openai

import (
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/adk/model"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const defaultMaxTokens = 1024

// Model implements model.LLM for OpenAI's GPT models.
type Model struct {
	client    *openai.Client
	modelName string
	log       logger.Logger
}

// New creates an OpenAI model. Extra options are passed to the client.
func New(apiKey, modelName string, log logger.Logger, opts ...option.RequestOption) (*Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Model{
		client:    &client,
		modelName: modelName,
		log:       log.WithFields(logger.StringField("component", "openai_model"), logger.StringField("model", modelName)),
	}, nil
}

// Name returns the model name.
func (o *Model) Name() string {
	return o.modelName
}

// GenerateContent generates content using the OpenAI model.
// Only non-streaming mode is supported.
func (o *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if stream {
			yield(nil, fmt.Errorf("streaming not supported"))
			return
		}

		response, err := o.generate(ctx, req)
		yield(response, err)
	}
}

func (o *Model) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	messages := transformADKToOpenAI(req.Contents)
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}
	if system := systemText(req); system != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}, messages...)
	}

	var maxTokens int64 = defaultMaxTokens
	if req.Config != nil && req.Config.MaxOutputTokens > 0 {
		maxTokens = int64(req.Config.MaxOutputTokens)
	}

	params := openai.ChatCompletionNewParams{
		Model:     o.modelName,
		MaxTokens: openai.Int(maxTokens),
		Messages:  messages,
	}
	if req.Config != nil && req.Config.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Config.Temperature))
	}
	if req.Config != nil && req.Config.TopP != nil {
		params.TopP = openai.Float(float64(*req.Config.TopP))
	}
	if req.Config != nil && len(req.Config.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Config.StopSequences,
		}
	}

	o.log.Debug("Sending chat completion", logger.IntField("messages", len(messages)))

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	response, err := transformOpenAIToADK(completion)
	if err != nil {
		return nil, fmt.Errorf("failed to transform response: %w", err)
	}
	return response, nil
}
