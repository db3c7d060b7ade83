package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
)

// GeminiClient is an alternate NerClient backed by Google's Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
	log   logger.Logger
}

// NewGeminiClient builds a Gemini-backed NER client.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key cannot be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiClient{
		model: client.GenerativeModel(modelName),
		log:   logger.NewLogger("ner.gemini"),
	}, nil
}

// Detect implements interfaces.NerClient by prompting Gemini to label
// the given samples and parsing the JSON it returns.
func (c *GeminiClient) Detect(ctx context.Context, column string, texts []string) ([]interfaces.NerEntity, error) {
	prompt := fmt.Sprintf(nerPrompt, column, strings.Join(texts, "\n"))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini ner call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini ner response contained no content")
	}

	var content string
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		content = string(txt)
	}
	content = strings.TrimSpace(content)

	var parsed responseBody
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		c.log.WithField("column", column).Warnf("gemini ner response was not valid JSON: %v", err)
		return nil, nil
	}

	out := make([]interfaces.NerEntity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		out = append(out, interfaces.NerEntity{Text: e.Text, Label: e.Label, Score: e.Score})
	}
	return out, nil
}
