package gcp

import (
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("```markdown\nInvoice"), genai.Text("\n```")}},
		}},
	}
	assert.Equal(t, "Invoice", ExtractText(resp))
}

func TestExtractText_Empty(t *testing.T) {
	assert.Equal(t, "", ExtractText(nil))
	assert.Equal(t, "", ExtractText(&genai.GenerateContentResponse{}))
	assert.Equal(t, "", ExtractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("DOCROUTER_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnv("DOCROUTER_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("DOCROUTER_TEST_MISSING", "fallback"))
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: 412}))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: 500}))
	assert.False(t, isPreconditionFailed(errors.New("other")))
}
