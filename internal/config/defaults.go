package config

// DefaultOllamaURL is used when a heavy backend on the ollama engine has no base_url.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendStub,
		Engine:         EngineOllama,
		Retries:        2,
		MaxNewTokens:   800,
		PromptVersion:  "step5",
		PromptDir:      "prompts",
		OutputSchema:   "schemas/output.schema.json",
		IntakeSchema:   "schemas/intake.schema.json",
		DiagnosticPath: "last_model_raw.txt",
		LastPromptPath: "last_model_prompt.txt",
		HistoryDB:      ".notedraft/history.db",
		LogLevel:       "info",
		MaxConcurrency: 2,
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// legacyEnv maps the bare environment variable names used by earlier
// deployments to config keys.
var legacyEnv = map[string]string{
	"MODEL_PROVIDER": "backend",
	"MODEL_ID":       "model_id",
	"RETRIES":        "retries",
	"MAX_NEW_TOKENS": "max_new_tokens",
}

// backendAliases maps accepted selector spellings to a BackendType.
var backendAliases = map[string]BackendType{
	"stub":         BackendStub,
	"heavy":        BackendHeavy,
	"transformers": BackendHeavy,
}
