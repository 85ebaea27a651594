package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrModelNotFound is returned when the backend host does not serve the
// requested model identifier.
var ErrModelNotFound = errors.New("model not available on backend host")

// OllamaProvider talks to a local Ollama daemon over its /api/chat endpoint.
// Responses are requested unstreamed so the whole draft arrives in one body.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// sampling mirrors the subset of Ollama runtime options a note draft needs.
// temperature has no omitempty: the daemon's own default is 0.8.
type sampling struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatBody struct {
	Model    string     `json:"model"`
	Messages []chatTurn `json:"messages"`
	Stream   bool       `json:"stream"`
	Format   string     `json:"format,omitempty"`
	Options  sampling   `json:"options"`
}

type chatReply struct {
	Model      string   `json:"model"`
	Message    chatTurn `json:"message"`
	DoneReason string   `json:"done_reason"`
	PromptEval int      `json:"prompt_eval_count"`
	Eval       int      `json:"eval_count"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	body := chatBody{
		Model:    firstModel(req.Model, p.model),
		Messages: make([]chatTurn, 0, len(req.Messages)),
		Options: sampling{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatTurn{Role: string(m.Role), Content: m.Content})
	}
	if req.JSONMode {
		body.Format = "json"
	}

	var reply chatReply
	if err := p.post(ctx, "/api/chat", body, &reply); err != nil {
		return nil, err
	}
	return &CompletionResponse{
		Content:      reply.Message.Content,
		InputTokens:  reply.PromptEval,
		OutputTokens: reply.Eval,
		Model:        reply.Model,
		FinishReason: reply.DoneReason,
	}, nil
}

// post sends in as JSON and decodes the reply into out. Ollama reports
// failures as {"error": "..."}; that message is surfaced when present.
func (p *OllamaProvider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama at %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading ollama reply: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
		}
		return fmt.Errorf("ollama status %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding ollama reply: %w", err)
	}
	return nil
}

func firstModel(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
