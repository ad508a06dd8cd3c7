package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// newModelHandler logs chat model calls made through the eino adapter.
func newModelHandler(conversationID string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			if input != nil {
				logx.Debug().
					Str("conversation_id", conversationID).
					Str("model_type", info.Type).
					Int("messages", len(input.Messages)).
					Msg("AI thinking...")
			}
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			if output == nil || output.Message == nil {
				return ctx
			}
			ev := logx.Debug().
				Str("conversation_id", conversationID).
				Str("model_type", info.Type).
				Int("response_chars", len(output.Message.Content))
			if u := output.TokenUsage; u != nil {
				ev = ev.Int("prompt_tokens", u.PromptTokens).Int("completion_tokens", u.CompletionTokens)
			}
			ev.Msg("AI response ready")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("conversation_id", conversationID).Str("model_type", info.Type).Msg("Chat model call failed")
			return ctx
		},
	}
}
