// Package config loads configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies the upstream text-generation backend.
type Provider string

const (
	ProviderGoogleAI  Provider = "googleai"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
)

// DefaultModels is the model priority list used when no models file is
// configured. Order matters: the failover caller tries them front to back.
var DefaultModels = []string{
	"gemini-1.5-pro",
	"gemini-pro",
	"gemini-1.0-pro",
	"gemini-1.5-flash",
}

// Config holds all configuration values.
type Config struct {
	// Server
	ListenAddr string

	// Client
	ServerURL string

	// Provider selection and credentials
	Provider        Provider
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	BedrockRegion   string

	// Model failover priority list
	Models []string

	// Upper bound for a single model attempt. A hung provider call counts
	// as that model's failure and failover moves on.
	GenerateTimeout time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	cfg := Config{
		ListenAddr: getEnv("VROOMIE_ADDR", ":3001"),
		ServerURL:  getEnv("VROOMIE_SERVER_URL", "http://localhost:3001"),

		Provider:        Provider(getEnv("VROOMIE_PROVIDER", string(ProviderGoogleAI))),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		BedrockRegion:   getEnv("VROOMIE_BEDROCK_REGION", ""),

		Models:          DefaultModels,
		GenerateTimeout: parseDuration(getEnv("VROOMIE_GENERATE_TIMEOUT", "30s"), 30*time.Second),

		LogFile:  getEnv("VROOMIE_LOG_FILE", "/tmp/vroomie.log"),
		LogLevel: parseLogLevel(getEnv("VROOMIE_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("VROOMIE_MODELS_FILE"); path != "" {
		if models, err := LoadModels(path); err != nil {
			slog.Warn("failed to load models file, using defaults", "file", path, "error", err)
		} else {
			cfg.Models = models
		}
	}

	return cfg
}

// Validate checks that the selected provider has the credential it needs.
// A missing credential is a startup error, not something to limp along with.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGoogleAI:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
	case ProviderOllama, ProviderBedrock:
		// Ollama is unauthenticated; Bedrock uses the ambient AWS credential chain.
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("model priority list is empty")
	}

	return nil
}

// modelsFile is the YAML layout of a model priority file.
type modelsFile struct {
	Models []string `yaml:"models"`
}

// LoadModels reads a model priority list from a YAML file.
func LoadModels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}

	var f modelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse models file: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("models file %s lists no models", path)
	}

	return f.Models, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
