package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
)

// OpenAIClient is an alternate NerClient backed by an OpenAI chat
// model instead of a bespoke NER service: it prompts the model to
// return entity spans as JSON and parses the result the same way the
// HTTP client parses a service response.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    logger.Logger
}

// NewOpenAIClient builds an OpenAI-backed NER client. apiBaseURL may be
// empty to use the default OpenAI endpoint, or set for a compatible
// proxy/self-hosted gateway.
func NewOpenAIClient(apiKey, model, apiBaseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key cannot be empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if apiBaseURL != "" {
		cfg.BaseURL = apiBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logger.NewLogger("ner.openai"),
	}, nil
}

const nerPrompt = `You label personally identifiable entities in a column of database values.
Column name: %s
Values (one per line):
%s

Reply with ONLY a JSON object of the form {"entities":[{"text":"...","label":"...","score":0.0}]}.
label must be one of: EMAIL, SSN, PHONE_NUMBER, CREDIT_CARD, ADDRESS, NAME, DATE_OF_BIRTH, PASSPORT, IP_ADDRESS, IBAN, OTHER.`

// Detect implements interfaces.NerClient by asking the chat model to
// label the given samples and parsing its JSON reply.
func (c *OpenAIClient) Detect(ctx context.Context, column string, texts []string) ([]interfaces.NerEntity, error) {
	prompt := fmt.Sprintf(nerPrompt, column, strings.Join(texts, "\n"))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("openai ner call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai ner response contained no choices")
	}

	var parsed responseBody
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		c.log.WithField("column", column).Warnf("openai ner response was not valid JSON: %v", err)
		return nil, nil
	}

	out := make([]interfaces.NerEntity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		out = append(out, interfaces.NerEntity{Text: e.Text, Label: e.Label, Score: e.Score})
	}
	return out, nil
}
