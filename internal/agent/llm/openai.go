package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// OpenAICompleter completes prompts with the Chat Completions API.
type OpenAICompleter struct {
	client     openai.Client
	classifier model.ClassifierModelConfig
	generation model.GenerationModelConfig
}

func NewOpenAICompleter(apiKey, baseURL string, classifier model.ClassifierModelConfig, generation model.GenerationModelConfig) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{
		client:     openai.NewClient(opts...),
		classifier: classifier,
		generation: generation,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, opts model.CompletionOptions) (string, error) {
	name, temperature, maxTokens := c.generation.Model, c.generation.Temperature, c.generation.MaxTokens
	if opts.Model == model.ModelProfileClassifier {
		name, temperature, maxTokens = c.classifier.Model, c.classifier.Temperature, c.classifier.MaxTokens
	}
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(name),
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature:         openai.Float(float64(temperature)),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion with %s: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	prompts, completions := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	_, _, total := model.CostOf(prompts, completions, model.ResolvePricing(name))
	metrics.ObserveLLMUsage(name, prompts, completions, total)
	logx.Debug().
		Str("model", name).
		Int("prompt_tokens", prompts).
		Int("completion_tokens", completions).
		Float64("total_cost_usd", total).
		Msg("LLM usage")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ model.Completer = (*OpenAICompleter)(nil)
