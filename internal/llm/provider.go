// Package llm provides text generation with model failover using langchaingo.
package llm

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/vroomie/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider is the one-shot "generate text from prompt" contract against the
// external AI capability. The model identifier selects the upstream
// configuration; all provider failures are treated uniformly by callers.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// langchainProvider adapts a langchaingo model to the Provider contract,
// overriding the model identifier per call.
type langchainProvider struct {
	llm llms.Model
}

// Compile-time check that langchainProvider implements Provider.
var _ Provider = (*langchainProvider)(nil)

// NewProvider creates a Provider for the configured backend.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key required")
		}
		model, err = googleai.New(ctx, googleai.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create googleai model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(openai.WithToken(cfg.OpenAIAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(anthropic.WithToken(cfg.AnthropicAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(ollama.WithServerURL(cfg.OllamaHost))
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderBedrock:
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.BedrockRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.BedrockRegion))
		}
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, opts...)
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		model, err = bedrock.New(bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)))
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return &langchainProvider{llm: model}, nil
}

// Generate produces text for a prompt using the given model identifier.
func (p *langchainProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, llms.WithModel(model))
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", model, err)
	}
	return response, nil
}
