package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/documentrouter/internal/oracle"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-pro"

// Phrases that mark a model refusal rather than an answer.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// VertexClient is the Gemini-backed oracle transport. It implements
// oracle.Caller; each call gets its own temperature.
type VertexClient struct {
	modelName  string
	baseClient *genai.Client
}

var _ oracle.Caller = (*VertexClient)(nil)

// NewVertexClient creates a new client for the given project and region.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &VertexClient{
		modelName:  modelName,
		baseClient: baseClient,
	}, nil
}

// Call sends prompt to the model and returns its text answer.
func (c *VertexClient) Call(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := c.model(temperature).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text := ExtractText(resp)
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("gemini response indicates refusal: %q", phrase)
		}
	}
	return text, nil
}

func (c *VertexClient) model(temperature float32) *genai.GenerativeModel {
	model := c.baseClient.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(oracle.SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](temperature),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return model
}

// ExtractText concatenates the text parts of the first candidate.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(b.String())
	text = strings.TrimPrefix(text, "```markdown")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
