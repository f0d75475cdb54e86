// Package models adapts LLM providers into a single-completion Generator used
// as the optional fallback for free-text replies.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Role names the author of a prior message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior conversation entry.
type Message struct {
	Role Role
	Text string
}

// Request is a single completion request.
type Request struct {
	System      string
	History     []Message
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator returns one completion for a request.
type Generator interface {
	// Provider names the backing service for logs and metrics.
	Provider() string
	Generate(ctx context.Context, req Request) (string, error)
}

// LLMGenerator drives any model.LLM in non-streaming mode.
type LLMGenerator struct {
	provider string
	llm      model.LLM
}

// NewLLMGenerator wraps llm.
func NewLLMGenerator(provider string, llm model.LLM) *LLMGenerator {
	return &LLMGenerator{provider: provider, llm: llm}
}

func (g *LLMGenerator) Provider() string { return g.provider }

// BuildLLMRequest converts req into the request shape every model.LLM accepts.
// History entries become user and model contents followed by the prompt.
func BuildLLMRequest(modelName string, req Request) *model.LLMRequest {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens) //nolint:gosec // G115: bounded by configuration
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	return &model.LLMRequest{Model: modelName, Contents: contents, Config: cfg}
}

// Generate collects the text parts of every response the model yields.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	for resp, err := range g.llm.GenerateContent(ctx, BuildLLMRequest(g.llm.Name(), req), false) {
		if err != nil {
			return "", fmt.Errorf("%s generation failed: %w", g.provider, err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, p := range resp.Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%s: %w", g.provider, ErrEmptyCompletion)
	}
	return text, nil
}
