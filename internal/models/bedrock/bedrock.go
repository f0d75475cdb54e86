// Package bedrock provides an Amazon Bedrock Converse implementation of the
// ADK model.LLM interface.
package bedrock

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const defaultMaxTokens = 1024

// ConverseAPI is the subset of the Bedrock runtime client used here.
type ConverseAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Model implements model.LLM over the Converse API.
type Model struct {
	client  ConverseAPI
	modelID string
	log     logger.Logger
}

// New loads the default AWS configuration for region and returns a model.
func New(ctx context.Context, region, modelID string, log logger.Logger) (*Model, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(bedrockruntime.NewFromConfig(cfg), modelID, log)
}

// NewWithClient wraps an existing client.
func NewWithClient(client ConverseAPI, modelID string, log logger.Logger) (*Model, error) {
	if client == nil {
		return nil, fmt.Errorf("bedrock client is required")
	}
	if modelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Model{
		client:  client,
		modelID: modelID,
		log:     log.WithFields(logger.StringField("component", "bedrock_model"), logger.StringField("model", modelID)),
	}, nil
}

func (m *Model) Name() string { return m.modelID }

// GenerateContent implements model.LLM. Streaming is not supported.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if stream {
			yield(nil, fmt.Errorf("streaming not supported"))
			return
		}
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func textOf(parts []*genai.Part) string {
	var out []string
	for _, p := range parts {
		if p != nil && p.Text != "" {
			out = append(out, p.Text)
		}
	}
	return strings.Join(out, "\n")
}

// buildMessages converts contents to Converse messages. Converse requires
// alternating roles starting with the user, so adjacent messages of one role
// are merged and leading assistant messages are dropped.
func buildMessages(contents []*genai.Content) []types.Message {
	var msgs []types.Message
	var texts []string
	for _, c := range contents {
		if c == nil {
			continue
		}
		text := textOf(c.Parts)
		if text == "" {
			continue
		}
		role := types.ConversationRoleUser
		if c.Role == genai.RoleModel || c.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		if len(msgs) == 0 && role == types.ConversationRoleAssistant {
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			texts[n-1] += "\n\n" + text
			msgs[n-1].Content = []types.ContentBlock{&types.ContentBlockMemberText{Value: texts[n-1]}}
			continue
		}
		texts = append(texts, text)
		msgs = append(msgs, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
		})
	}
	return msgs
}

func (m *Model) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	msgs := buildMessages(req.Contents)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(m.modelID),
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(defaultMaxTokens),
		},
	}
	if req.Config != nil {
		if req.Config.SystemInstruction != nil {
			if sys := textOf(req.Config.SystemInstruction.Parts); sys != "" {
				in.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: sys}}
			}
		}
		if req.Config.MaxOutputTokens > 0 {
			in.InferenceConfig.MaxTokens = aws.Int32(req.Config.MaxOutputTokens)
		}
		if req.Config.Temperature != nil {
			in.InferenceConfig.Temperature = aws.Float32(*req.Config.Temperature)
		}
		if req.Config.TopP != nil {
			in.InferenceConfig.TopP = aws.Float32(*req.Config.TopP)
		}
	}

	m.log.Debug("Sending converse request", logger.IntField("messages", len(msgs)))
	out, err := m.client.Converse(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse error: %w", err)
	}
	return transformOutput(out)
}

func transformOutput(out *bedrockruntime.ConverseOutput) (*model.LLMResponse, error) {
	if out == nil {
		return nil, fmt.Errorf("nil converse output")
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected converse output %T", out.Output)
	}

	var parts []*genai.Part
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok && tb.Value != "" {
			parts = append(parts, &genai.Part{Text: tb.Value})
		}
	}

	var usage *genai.GenerateContentResponseUsageMetadata
	if out.Usage != nil {
		usage = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     aws.ToInt32(out.Usage.InputTokens),
			CandidatesTokenCount: aws.ToInt32(out.Usage.OutputTokens),
			TotalTokenCount:      aws.ToInt32(out.Usage.TotalTokens),
		}
	}

	finish := genai.FinishReasonOther
	switch out.StopReason {
	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		finish = genai.FinishReasonStop
	case types.StopReasonMaxTokens:
		finish = genai.FinishReasonMaxTokens
	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		finish = genai.FinishReasonSafety
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: usage,
		FinishReason:  finish,
		TurnComplete:  true,
	}, nil
}
