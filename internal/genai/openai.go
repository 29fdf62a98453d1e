package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/model"
)

// Client generates questions through an OpenAI-compatible API.
type Client struct {
	api    *openai.Client
	config Config
}

// New creates a generator client.
func New(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg), config: cfg}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// questionOutput is the raw generator response before validation.
type questionOutput struct {
	Prompt        string `json:"prompt"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// Generate asks the subject's profile model for one question and
// validates the output against the question schema. Every failure mode
// (API error, malformed output, timeout via ctx) surfaces as a
// *apperr.GenerationError.
func (c *Client) Generate(ctx context.Context, subject, topic string) (model.Question, error) {
	modelName := c.config.ModelFor(subject)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(subject, topic)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return model.Question{}, &apperr.GenerationError{Subject: subject, Topic: topic, Err: err}
	}
	if len(resp.Choices) == 0 {
		return model.Question{}, &apperr.GenerationError{
			Subject: subject, Topic: topic, Err: fmt.Errorf("LLM returned no choices"),
		}
	}

	raw := json.RawMessage(resp.Choices[0].Message.Content)
	slog.Debug("generator response", "subject", subject, "topic", topic, "model", modelName)

	if err := validateOutput(raw); err != nil {
		return model.Question{}, &apperr.GenerationError{Subject: subject, Topic: topic, Err: err}
	}

	var out questionOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.Question{}, &apperr.GenerationError{Subject: subject, Topic: topic, Err: err}
	}

	return model.Question{
		Subject:       subject,
		Topic:         topic,
		Prompt:        out.Prompt,
		OptionA:       out.OptionA,
		OptionB:       out.OptionB,
		OptionC:       out.OptionC,
		OptionD:       out.OptionD,
		CorrectOption: model.Option(out.CorrectOption),
		Explanation:   out.Explanation,
	}, nil
}
