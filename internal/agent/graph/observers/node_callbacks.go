package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

type nodeStartKey struct{}

// newNodeHandler times every lambda node of the turn graph.
func newNodeHandler(conversationID string) einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			return context.WithValue(ctx, nodeStartKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			observeNode(ctx, conversationID, info, nil)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			observeNode(ctx, conversationID, info, err)
			return ctx
		}).
		Build()
}

func observeNode(ctx context.Context, conversationID string, info *einocb.RunInfo, err error) {
	if info == nil || info.Name == "" {
		return
	}
	var elapsed time.Duration
	if start, ok := ctx.Value(nodeStartKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	metrics.ObserveNode(info.Name, elapsed, err)

	if err != nil {
		logx.Warn().
			Err(err).
			Str("conversation_id", conversationID).
			Str("node", info.Name).
			Dur("elapsed", elapsed).
			Msg("Node failed")
		return
	}
	logx.Debug().
		Str("conversation_id", conversationID).
		Str("node", info.Name).
		Dur("elapsed", elapsed).
		Msg("Node done")
}
