package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		modelName string
		wantErr   bool
	}{
		{"valid inputs", "test-api-key", "gpt-4o-mini", false},
		{"empty api key", "", "gpt-4o-mini", true},
		{"empty model name", "test-api-key", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.apiKey, tt.modelName, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.modelName, m.Name())
		})
	}
}

func TestGenerateContentStreamingNotSupported(t *testing.T) {
	m, err := New("test-key", "gpt-4o-mini", nil)
	require.NoError(t, err)

	for resp, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, true) {
		assert.Nil(t, resp)
		assert.ErrorContains(t, err, "streaming not supported")
	}
}

func TestGenerateContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Dial *120*8001# to apply."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 7, "total_tokens": 27}
		}`))
	}))
	defer srv.Close()

	m, err := New("test-key", "gpt-4o-mini", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText("hi", genai.RoleUser),
			genai.NewContentFromText("Hello! How can I help?", genai.RoleModel),
			genai.NewContentFromText("how do I get a bursary", genai.RoleUser),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are a ward assistant.", genai.RoleUser),
			MaxOutputTokens:   200,
			Temperature:       genai.Ptr[float32](0.5),
		},
	}

	var responses []*model.LLMResponse
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		require.NoError(t, err)
		responses = append(responses, resp)
	}
	require.Len(t, responses, 1)
	assert.Equal(t, "Dial *120*8001# to apply.", responses[0].Content.Parts[0].Text)
	assert.Equal(t, genai.FinishReasonStop, responses[0].FinishReason)
	assert.Equal(t, int32(27), responses[0].UsageMetadata.TotalTokenCount)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 200, got["max_tokens"])
	assert.InDelta(t, 0.5, got["temperature"], 1e-6)
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
}

func TestGenerateContentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	m, err := New("test-key", "gpt-4o-mini", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	req := &model.LLMRequest{Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)}}
	for _, err := range m.GenerateContent(context.Background(), req, false) {
		assert.ErrorContains(t, err, "openai API error")
	}
}

func TestTransformADKToOpenAI(t *testing.T) {
	msgs := transformADKToOpenAI([]*genai.Content{
		nil,
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: "a"}, {Text: "b"}}},
		{Role: genai.RoleModel, Parts: []*genai.Part{{Text: ""}}},
		{Role: "system", Parts: []*genai.Part{{Text: "rules"}}},
	})
	require.Len(t, msgs, 2)
	assert.NotNil(t, msgs[0].OfUser)
	assert.NotNil(t, msgs[1].OfSystem)
}

func TestTransformOpenAIToADK(t *testing.T) {
	_, err := transformOpenAIToADK(nil)
	assert.Error(t, err)

	_, err = transformOpenAIToADK(&openai.ChatCompletion{})
	assert.Error(t, err)
}

func TestMapFinishReason(t *testing.T) {
	assert.Equal(t, genai.FinishReasonStop, mapFinishReason("stop"))
	assert.Equal(t, genai.FinishReasonMaxTokens, mapFinishReason("length"))
	assert.Equal(t, genai.FinishReasonSafety, mapFinishReason("content_filter"))
	assert.Equal(t, genai.FinishReasonOther, mapFinishReason("tool_calls"))
}
