package observers

import (
	"context"
	"errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

type toolStartKey struct{}

// newToolHandler logs travel tool calls and counts them by result.
func newToolHandler(conversationID string) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			logx.Debug().
				Str("conversation_id", conversationID).
				Str("tool", info.Name).
				Str("arguments", input.ArgumentsInJSON).
				Msg("Tool started")
			return context.WithValue(ctx, toolStartKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			metrics.ToolCalls.WithLabelValues(info.Name, "ok").Inc()
			logx.Debug().
				Str("conversation_id", conversationID).
				Str("tool", info.Name).
				Int("response_bytes", len(output.Response)).
				Dur("elapsed", toolElapsed(ctx)).
				Msg("Tool finished")
			return ctx
		},
		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*tool.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()
				n := 0
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						metrics.ToolCalls.WithLabelValues(info.Name, "error").Inc()
						return
					}
					n += len(chunk.Response)
				}
				metrics.ToolCalls.WithLabelValues(info.Name, "ok").Inc()
				logx.Debug().
					Str("conversation_id", conversationID).
					Str("tool", info.Name).
					Int("response_bytes", n).
					Msg("Tool stream finished")
			}()
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			metrics.ToolCalls.WithLabelValues(info.Name, "error").Inc()
			logx.Warn().
				Err(err).
				Str("conversation_id", conversationID).
				Str("tool", info.Name).
				Dur("elapsed", toolElapsed(ctx)).
				Msg("Tool failed")
			return ctx
		},
	}
}

func toolElapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(toolStartKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
