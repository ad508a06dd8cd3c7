package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// ChatCompleter adapts eino chat models to model.Completer. The classifier
// profile routes to the classifier model, everything else to generation.
type ChatCompleter struct {
	models *ChatModels
}

func NewChatCompleter(models *ChatModels) *ChatCompleter {
	return &ChatCompleter{models: models}
}

func (c *ChatCompleter) Complete(ctx context.Context, prompt string, opts model.CompletionOptions) (string, error) {
	cm, name := c.models.Generation, c.models.GenerationModelName
	if opts.Model == model.ModelProfileClassifier {
		cm, name = c.models.Classifier, c.models.ClassifierModelName
	}

	var callOpts []einomodel.Option
	if opts.Temperature != nil {
		callOpts = append(callOpts, einomodel.WithTemperature(*opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, einomodel.WithMaxTokens(opts.MaxTokens))
	}

	out, err := cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", name, err)
	}
	if out == nil {
		return "", nil
	}
	logUsage(ctx, name, out)
	return strings.TrimSpace(out.Content), nil
}

// logUsage computes and logs usage cost when the provider reports tokens.
func logUsage(ctx context.Context, modelName string, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	metrics.ObserveLLMUsage(modelName, usage.PromptTokens, usage.CompletionTokens, totalC)
	logx.Debug().
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

var _ model.Completer = (*ChatCompleter)(nil)
