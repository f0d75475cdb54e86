package anthropic

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// extractTextParts extracts text content from genai.Parts
func extractTextParts(parts []*genai.Part) []string {
	var textParts []string
	for _, part := range parts {
		if part != nil && part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}
	return textParts
}

// transformADKToAnthropic converts ADK contents to Anthropic messages. The
// system prompt combines the request's system instruction with any contents
// in the "system" role.
func transformADKToAnthropic(req *model.LLMRequest) ([]anthropic.MessageParam, string, error) {
	if len(req.Contents) == 0 {
		return nil, "", fmt.Errorf("no contents provided")
	}

	var system []string
	if req.Config != nil && req.Config.SystemInstruction != nil {
		system = append(system, extractTextParts(req.Config.SystemInstruction.Parts)...)
	}

	var messages []anthropic.MessageParam
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		text := strings.Join(extractTextParts(content.Parts), "\n")
		if text == "" {
			continue
		}
		switch content.Role {
		case "system":
			system = append(system, text)
		case genai.RoleModel, "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("no text messages provided")
	}

	return messages, strings.Join(system, "\n\n"), nil
}

// transformAnthropicToADK converts Anthropic Message response to ADK LLMResponse
func transformAnthropicToADK(message *anthropic.Message) (*model.LLMResponse, error) {
	if message == nil {
		return nil, fmt.Errorf("message is nil")
	}

	var parts []*genai.Part
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
			parts = append(parts, &genai.Part{Text: tb.Text})
		}
	}

	usage := &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(message.Usage.InputTokens),                              //nolint:gosec // G115: token counts fit int32
		CandidatesTokenCount: int32(message.Usage.OutputTokens),                             //nolint:gosec // G115: token counts fit int32
		TotalTokenCount:      int32(message.Usage.InputTokens + message.Usage.OutputTokens), //nolint:gosec // G115: token counts fit int32
	}

	var finishReason genai.FinishReason
	switch message.StopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		finishReason = genai.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		finishReason = genai.FinishReasonMaxTokens
	default:
		finishReason = genai.FinishReasonOther
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: usage,
		FinishReason:  finishReason,
		TurnComplete:  true,
	}, nil
}
