package llm

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider drafts through any server that speaks the Chat Completions
// API: api.openai.com, vLLM, llama.cpp server or LM Studio.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider targets api.openai.com when baseURL is empty.
func NewOpenAIProvider(apiKey string, model string, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// greedyTemperature maps t onto the wire. go-openai omits a zero
// temperature, which servers read as 1.0.
func greedyTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	chat := openai.ChatCompletionRequest{
		Model:       firstModel(req.Model, p.model),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: greedyTemperature(req.Temperature),
	}
	if chat.MaxTokens == 0 {
		chat.MaxTokens = 4096
	}
	for _, m := range req.Messages {
		chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSONMode {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, apiErr.Message)
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", chat.Model)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
	}, nil
}
