package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/pathlab-ai-platform/internal/config"
	"github.com/wolfman30/pathlab-ai-platform/internal/llm"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// AWSConfigLoader loads the AWS SDK config. Binaries pass
// mainconfig.LoadAWSConfig.
type AWSConfigLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// BuildLLMGateway wires the configured model candidates in order: Gemini,
// Bedrock, OpenAI. A provider that fails to initialise is skipped with a
// warning. The returned close function releases provider clients.
func BuildLLMGateway(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger, opts ...llm.GatewayOption) (*llm.Gateway, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		candidates []llm.Candidate
		closers    []func()
	)

	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" && len(cfg.GeminiModels) > 0 {
		gemini, err := llm.NewGeminiClient(ctx, key, cfg.GeminiModels[0])
		if err != nil {
			logger.Warn("gemini provider disabled", "error", err)
		} else {
			closers = append(closers, func() { _ = gemini.Close() })
			for _, model := range cfg.GeminiModels {
				candidates = append(candidates, llm.Candidate{Name: "gemini", Client: gemini, Model: model})
			}
		}
	}

	if len(cfg.BedrockModelIDs) > 0 && loadAWS != nil {
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			logger.Warn("bedrock provider disabled", "error", err)
		} else {
			bedrock := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
			for _, model := range cfg.BedrockModelIDs {
				candidates = append(candidates, llm.Candidate{Name: "bedrock", Client: bedrock, Model: model})
			}
		}
	}

	if key := strings.TrimSpace(cfg.OpenAIAPIKey); key != "" {
		openai, err := llm.NewOpenAIClient(key, cfg.OpenAIBaseURL)
		if err != nil {
			logger.Warn("openai provider disabled", "error", err)
		} else {
			for _, model := range cfg.OpenAIModels {
				candidates = append(candidates, llm.Candidate{Name: "openai", Client: openai, Model: model})
			}
		}
	}

	gateway := llm.NewGateway(candidates, logger, opts...)
	if len(gateway.Models()) == 0 {
		logger.Warn("no language model configured; replies will fail until one is set")
	} else {
		logger.Info("language model gateway ready", "models", gateway.Models())
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return gateway, closeAll, nil
}
