package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/agents"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Classifier  *agents.IntentClassifier
	Extractor   *agents.DetailExtractor
	Retriever   *agents.ContextRetriever
	Handlers    map[string]agents.Handler
	RetryLimit  int
	CallTimeout time.Duration
	MaxRunSteps int
}

// GraphBuilder handles the construction of the conversation turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.ConversationState, *model.ConversationState]
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Classifier == nil || config.Extractor == nil || config.Retriever == nil {
		return nil, fmt.Errorf("graph components are not properly initialized")
	}
	for _, node := range nodes.TaskNodes {
		if config.Handlers[node] == nil {
			return nil, fmt.Errorf("no handler for task node %s", node)
		}
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.ConversationState, *model.ConversationState](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	type lambdaNode struct {
		key    string
		lambda *compose.Lambda
		pre    compose.GraphAddNodeOpt
	}
	steps := func(key string) compose.GraphAddNodeOpt {
		return compose.WithStatePreHandler(nodes.NewStepPreHandler(key))
	}

	all := []lambdaNode{
		{nodes.NodeResumeTurn, nodes.NewResumeTurnNode(), compose.WithStatePreHandler(nodes.NewResumeTurnPreHandler())},
		{nodes.NodeClassifyIntent, nodes.NewClassifyIntentNode(b.config.Classifier), steps(nodes.NodeClassifyIntent)},
		{nodes.NodeExtractDetails, nodes.NewExtractDetailsNode(b.config.Extractor), steps(nodes.NodeExtractDetails)},
		{nodes.NodeCheckInfo, nodes.NewCheckInfoNode(), steps(nodes.NodeCheckInfo)},
		{nodes.NodeRetrieveContext, nodes.NewRetrieveContextNode(b.config.Retriever), steps(nodes.NodeRetrieveContext)},
		{nodes.NodeClarify, nodes.NewClarifyNode(), steps(nodes.NodeClarify)},
		{nodes.NodeHandleError, nodes.NewHandleErrorNode(b.config.RetryLimit), steps(nodes.NodeHandleError)},
		{nodes.NodeEndConversation, nodes.NewEndConversationNode(), steps(nodes.NodeEndConversation)},
		{nodes.NodeFinishTurn, nodes.NewFinishTurnNode(), steps(nodes.NodeFinishTurn)},
	}
	for _, node := range nodes.TaskNodes {
		all = append(all, lambdaNode{
			key:    node,
			lambda: nodes.NewTaskNode(b.config.Handlers[node], b.config.CallTimeout),
			pre:    compose.WithStatePreHandler(nodes.NewTaskPreHandler(node)),
		})
	}

	for _, n := range all {
		if err := b.graph.AddLambdaNode(n.key, n.lambda, n.pre, compose.WithNodeName(n.key)); err != nil {
			logx.Error().Err(err).Str("node", n.key).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", n.key, err)
		}
	}
	return nil
}

// addEdges creates the unconditional connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeResumeTurn},
		{nodes.NodeClassifyIntent, nodes.NodeExtractDetails},
		{nodes.NodeExtractDetails, nodes.NodeCheckInfo},
		{nodes.NodeClarify, nodes.NodeFinishTurn},
		{nodes.NodeEndConversation, nodes.NodeFinishTurn},
		{nodes.NodeFinishTurn, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	resumeBranch := compose.NewGraphBranch(
		nodes.NewResumeTurnCondition(),
		map[string]bool{
			nodes.NodeClassifyIntent:  true,
			nodes.NodeEndConversation: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResumeTurn, resumeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding resume branch")
		return fmt.Errorf("error adding resume branch: %w", err)
	}

	gateBranch := compose.NewGraphBranch(
		nodes.NewCheckInfoCondition(),
		map[string]bool{
			nodes.NodeRetrieveContext: true,
			nodes.NodeClarify:         true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeCheckInfo, gateBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding information gate branch")
		return fmt.Errorf("error adding information gate branch: %w", err)
	}

	dispatchEnds := map[string]bool{nodes.NodeClarify: true}
	retryEnds := map[string]bool{nodes.NodeEndConversation: true}
	for _, node := range nodes.TaskNodes {
		dispatchEnds[node] = true
		retryEnds[node] = true
	}
	if err := b.graph.AddBranch(nodes.NodeRetrieveContext, compose.NewGraphBranch(nodes.NewDispatchCondition(), dispatchEnds)); err != nil {
		logx.Error().Err(err).Msg("Error adding dispatch branch")
		return fmt.Errorf("error adding dispatch branch: %w", err)
	}

	for _, node := range nodes.TaskNodes {
		taskBranch := compose.NewGraphBranch(
			nodes.NewTaskCondition(),
			map[string]bool{
				nodes.NodeFinishTurn:  true,
				nodes.NodeHandleError: true,
			},
		)
		if err := b.graph.AddBranch(node, taskBranch); err != nil {
			logx.Error().Err(err).Str("node", node).Msg("Error adding task branch")
			return fmt.Errorf("error adding task branch for %s: %w", node, err)
		}
	}

	if err := b.graph.AddBranch(nodes.NodeHandleError, compose.NewGraphBranch(nodes.NewHandleErrorCondition(b.config.RetryLimit), retryEnds)); err != nil {
		logx.Error().Err(err).Msg("Error adding retry branch")
		return fmt.Errorf("error adding retry branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	// Longest turn: five nodes before dispatch, task + handle_error per
	// attempt, then end_conversation and finish_turn.
	retries := b.config.RetryLimit
	if retries <= 0 {
		retries = nodes.DefaultRetryLimit
	}
	maxSteps := max(b.config.MaxRunSteps, 5+2*retries+2)

	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("travel_concierge_turn"),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_run_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}
