// Package observers attaches eino callback handlers that log graph activity
// and feed the Prometheus collectors.
package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the node, prompt, model and tool observers into
// one callbacks.Handler for a single turn.
func NewAllCallbacks(conversationID string) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Lambda(newNodeHandler(conversationID)).
		Prompt(newPromptHandler(conversationID)).
		ChatModel(newModelHandler(conversationID)).
		Tool(newToolHandler(conversationID)).
		Handler()
}
