package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// newPromptHandler logs rendered prompts at debug level.
func newPromptHandler(conversationID string) *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output == nil || len(output.Result) == 0 || output.Result[0] == nil {
				return ctx
			}
			logx.Debug().
				Str("conversation_id", conversationID).
				Int("prompt_chars", len(output.Result[0].Content)).
				Str("rendered", output.Result[0].Content).
				Msg("Prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("Prompt render failed")
			return ctx
		},
	}
}
