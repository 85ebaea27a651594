package llm

import (
	"fmt"
	"os"
)

// NewProvider creates a transport for the given engine and model.
// Supported engines: "ollama", "openai". An OpenAI engine pointed at a
// custom baseURL does not require an API key.
func NewProvider(engine string, model string, baseURL string) (Provider, error) {
	switch engine {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" && baseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, baseURL), nil

	case "ollama":
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}
}
