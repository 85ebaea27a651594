package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// DefaultPath is where the wizard writes and the CLI reads configuration.
const DefaultPath = ".notedraft.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .notedraft.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to notedraft! Let's configure the generation backend.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Backend selection.
	backendPrompt := promptui.Select{
		Label: "Select generation backend",
		Items: []string{
			"stub  - deterministic canned output, no model required",
			"heavy - local or hosted model via ollama / OpenAI-compatible server",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	if backendIdx == 1 {
		cfg.Backend = BackendHeavy
	}

	if cfg.Backend == BackendHeavy {
		// 2. Engine.
		enginePrompt := promptui.Select{
			Label: "Select inference engine",
			Items: []string{string(EngineOllama), string(EngineOpenAI)},
		}
		_, engineStr, err := enginePrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("engine selection: %w", err)
		}
		cfg.Engine = EngineType(engineStr)

		// 3. Model identifier.
		modelPrompt := promptui.Prompt{
			Label: "Model identifier",
			Validate: func(s string) error {
				if s == "" {
					return fmt.Errorf("model identifier is required for the heavy backend")
				}
				return nil
			},
		}
		cfg.ModelID, err = modelPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("model identifier: %w", err)
		}

		// 4. Base URL.
		defaultURL := ""
		if cfg.Engine == EngineOllama {
			defaultURL = DefaultOllamaURL
		}
		urlPrompt := promptui.Prompt{
			Label:   "Server base URL (blank for the engine default)",
			Default: defaultURL,
		}
		cfg.BaseURL, err = urlPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
	}

	// 5. Retry budget.
	retriesPrompt := promptui.Prompt{
		Label:   "Extra attempts after a failed one",
		Default: strconv.Itoa(cfg.Retries),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fmt.Errorf("enter a non-negative integer")
			}
			return nil
		},
	}
	retriesStr, err := retriesPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("retries: %w", err)
	}
	cfg.Retries, _ = strconv.Atoi(retriesStr)

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.Engine); envVar != "" && cfg.Backend == BackendHeavy {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running notedraft generate.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}
