package config

import "time"

// BackendType selects the text generation backend.
type BackendType string

const (
	BackendStub  BackendType = "stub"
	BackendHeavy BackendType = "heavy"
)

// EngineType identifies the inference server a heavy backend talks to.
type EngineType string

const (
	EngineOllama EngineType = "ollama"
	EngineOpenAI EngineType = "openai"
)

// Config is the top-level notedraft configuration, corresponding to .notedraft.yml.
type Config struct {
	Backend           BackendType   `yaml:"backend" koanf:"backend"`
	ModelID           string        `yaml:"model_id" koanf:"model_id"`
	Engine            EngineType    `yaml:"engine" koanf:"engine"`
	BaseURL           string        `yaml:"base_url" koanf:"base_url"`
	Retries           int           `yaml:"retries" koanf:"retries"`
	MaxNewTokens      int           `yaml:"max_new_tokens" koanf:"max_new_tokens"`
	GenerationTimeout time.Duration `yaml:"generation_timeout" koanf:"generation_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	JSONMode          bool          `yaml:"json_mode" koanf:"json_mode"`
	PromptVersion     string        `yaml:"prompt_version" koanf:"prompt_version"`
	PromptDir         string        `yaml:"prompt_dir" koanf:"prompt_dir"`
	OutputSchema      string        `yaml:"output_schema" koanf:"output_schema"`
	IntakeSchema      string        `yaml:"intake_schema" koanf:"intake_schema"`
	DiagnosticPath    string        `yaml:"diagnostic_path" koanf:"diagnostic_path"`
	SaveLastPrompt    bool          `yaml:"save_last_prompt" koanf:"save_last_prompt"`
	LastPromptPath    string        `yaml:"last_prompt_path" koanf:"last_prompt_path"`
	HistoryDB         string        `yaml:"history_db" koanf:"history_db"`
	LogLevel          string        `yaml:"log_level" koanf:"log_level"`
	MaxConcurrency    int           `yaml:"max_concurrency" koanf:"max_concurrency"`
	Server            ServerConfig  `yaml:"server" koanf:"server"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
