package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays the legacy
// bare environment variables (MODEL_PROVIDER, MODEL_ID, RETRIES,
// MAX_NEW_TOKENS) and finally NOTEDRAFT_* overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Empty legacy values are skipped so an exported-but-blank variable
	// does not clobber the file or the defaults.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		mapped, ok := legacyEnv[key]
		if !ok || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return mapped, strings.TrimSpace(value)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading legacy env: %w", err)
	}

	// Overlay environment variables: NOTEDRAFT_BACKEND -> backend, etc.
	if err := k.Load(env.Provider("NOTEDRAFT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "NOTEDRAFT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &ConfigurationError{Key: decodeErrorKey(err), Reason: err.Error()}
	}

	cfg.Normalize()
	return cfg, nil
}

// decodeKey matches the first quoted setting name in a decode error, e.g.
// 'retries' in "'retries' cannot parse value as 'int'".
var decodeKey = regexp.MustCompile(`'([A-Za-z0-9_.]+)'`)

func decodeErrorKey(err error) string {
	if m := decodeKey.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return "config"
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Normalize canonicalizes selector spellings and fills engine-dependent
// defaults. Unknown selectors are left as-is for Validate to reject.
func (c *Config) Normalize() {
	sel := strings.ToLower(strings.TrimSpace(string(c.Backend)))
	if b, ok := backendAliases[sel]; ok {
		c.Backend = b
	} else {
		c.Backend = BackendType(sel)
	}
	c.ModelID = strings.TrimSpace(c.ModelID)
	c.Engine = EngineType(strings.ToLower(strings.TrimSpace(string(c.Engine))))
	if c.Engine == "" {
		c.Engine = EngineOllama
	}
	if c.Backend == BackendHeavy && c.Engine == EngineOllama && c.BaseURL == "" {
		c.BaseURL = DefaultOllamaURL
	}
}

var validEngines = map[EngineType]bool{
	EngineOllama: true,
	EngineOpenAI: true,
}

// Validate checks that the configuration contains valid values. Every
// failure is a *ConfigurationError.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendStub:
	case BackendHeavy:
		if c.ModelID == "" {
			return &ConfigurationError{Key: "model_id", Reason: "heavy backend requires a model identifier (set MODEL_ID or NOTEDRAFT_MODEL_ID)"}
		}
		if !validEngines[c.Engine] {
			return &ConfigurationError{Key: "engine", Reason: fmt.Sprintf("unknown engine %q: must be one of ollama, openai", c.Engine)}
		}
	case "":
		return &ConfigurationError{Key: "backend", Reason: "backend is required"}
	default:
		return &ConfigurationError{Key: "backend", Reason: fmt.Sprintf("unknown backend %q: must be one of stub, heavy", c.Backend)}
	}

	if c.Retries < 0 {
		return &ConfigurationError{Key: "retries", Reason: "must be non-negative"}
	}
	if c.MaxNewTokens <= 0 {
		return &ConfigurationError{Key: "max_new_tokens", Reason: "must be positive"}
	}
	if c.GenerationTimeout < 0 {
		return &ConfigurationError{Key: "generation_timeout", Reason: "must be non-negative"}
	}
	if c.RequestsPerMinute < 0 {
		return &ConfigurationError{Key: "requests_per_minute", Reason: "must be non-negative"}
	}
	if c.MaxConcurrency < 0 {
		return &ConfigurationError{Key: "max_concurrency", Reason: "must be non-negative"}
	}
	if c.DiagnosticPath == "" {
		return &ConfigurationError{Key: "diagnostic_path", Reason: "is required"}
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given engine.
func APIKeyEnvVar(engine EngineType) string {
	switch engine {
	case EngineOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
