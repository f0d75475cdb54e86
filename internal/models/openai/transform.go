package openai

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Finish reason constants (OpenAI uses plain strings)
const (
	finishReasonStop          = "stop"
	finishReasonLength        = "length"
	finishReasonContentFilter = "content_filter"
)

func joinText(parts []*genai.Part, sep string) string {
	var out []string
	for _, p := range parts {
		if p != nil && p.Text != "" {
			out = append(out, p.Text)
		}
	}
	return strings.Join(out, sep)
}

func systemText(req *model.LLMRequest) string {
	if req.Config == nil || req.Config.SystemInstruction == nil {
		return ""
	}
	return joinText(req.Config.SystemInstruction.Parts, "\n\n")
}

// transformADKToOpenAI converts text contents to chat messages. Contents
// without text are skipped.
func transformADKToOpenAI(contents []*genai.Content) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, content := range contents {
		if content == nil {
			continue
		}
		text := joinText(content.Parts, "\n")
		if text == "" {
			continue
		}
		switch content.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		case genai.RoleModel, "assistant":
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}
	return messages
}

// transformOpenAIToADK converts the first choice of a completion.
func transformOpenAIToADK(completion *openai.ChatCompletion) (*model.LLMResponse, error) {
	if completion == nil {
		return nil, fmt.Errorf("nil completion")
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := completion.Choices[0]
	var parts []*genai.Part
	if choice.Message.Content != "" {
		parts = append(parts, &genai.Part{Text: choice.Message.Content})
	}

	var usage *genai.GenerateContentResponseUsageMetadata
	if completion.Usage.TotalTokens > 0 {
		usage = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(completion.Usage.PromptTokens),     //nolint:gosec // G115: token counts fit int32
			CandidatesTokenCount: int32(completion.Usage.CompletionTokens), //nolint:gosec // G115: token counts fit int32
			TotalTokenCount:      int32(completion.Usage.TotalTokens),      //nolint:gosec // G115: token counts fit int32
		}
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: usage,
		FinishReason:  mapFinishReason(choice.FinishReason),
		TurnComplete:  true,
	}, nil
}

// mapFinishReason converts OpenAI's finish_reason string to genai.FinishReason.
func mapFinishReason(finishReason string) genai.FinishReason {
	switch finishReason {
	case finishReasonStop:
		return genai.FinishReasonStop
	case finishReasonLength:
		return genai.FinishReasonMaxTokens
	case finishReasonContentFilter:
		return genai.FinishReasonSafety
	default:
		return genai.FinishReasonOther
	}
}
