package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

const (
	DefaultRetryLimit  = model.DefaultRetryLimit
	DefaultCallTimeout = model.DefaultCallTimeout
)

// Messages appended when a conversation ends.
const (
	GoodbyeMessage = "Thanks for planning with me. Safe travels, and come back any time!"
	FailureMessage = "I'm sorry, I ran into a problem completing that request and had to stop here. Please try again in a moment."
)

// UnableMessage answers a request that cannot succeed as asked.
const UnableMessage = "I'm sorry, I can't do that with the details I have. Could you adjust the request and try again?"

// normalizeRetryLimit returns a sane default when the provided value is invalid.
func normalizeRetryLimit(n int) int {
	if n <= 0 {
		return DefaultRetryLimit
	}
	return n
}

func normalizeCallTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultCallTimeout
	}
	return d
}

// lastTask reads the task node the current turn last dispatched to.
func lastTask(ctx context.Context) (string, error) {
	var node string
	err := compose.ProcessState(ctx, func(_ context.Context, ts *model.TurnState) error {
		node = ts.LastTask
		return nil
	})
	return node, err
}

// turnPath copies the visited nodes out of the turn state.
func turnPath(ctx context.Context) []string {
	var path []string
	_ = compose.ProcessState(ctx, func(_ context.Context, ts *model.TurnState) error {
		path = append([]string(nil), ts.Steps...)
		return nil
	})
	return path
}
