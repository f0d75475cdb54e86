package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClientConfig(t *testing.T) {
	cc := ClientConfig(Config{APIKey: "k", Model: "gemini-2.0-flash"})
	assert.Equal(t, "k", cc.APIKey)
	assert.NotEqual(t, genai.BackendVertexAI, cc.Backend)

	cc = ClientConfig(Config{Model: "gemini-2.0-flash", Project: "ward-prod", Region: "europe-west1"})
	assert.Equal(t, genai.BackendVertexAI, cc.Backend)
	assert.Equal(t, "ward-prod", cc.Project)
	assert.Equal(t, "europe-west1", cc.Location)

	cc = ClientConfig(Config{APIKey: "k", Project: "ward-prod"})
	assert.NotEqual(t, genai.BackendVertexAI, cc.Backend)
}

func TestNewValidation(t *testing.T) {
	_, err := New(context.Background(), Config{APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "model name is required")

	_, err = New(context.Background(), Config{Model: "gemini-2.0-flash"}, nil)
	assert.ErrorContains(t, err, "API key is required")
}
