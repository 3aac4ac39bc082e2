package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/Chative-Banking-Assistant/agent/nodes"
)

const (
	nodeValidateRequest = "validate_request"
	nodeNormalizeInput  = "normalize_input"
	nodeExtractIntent   = "extract_intent"
	nodeMergeSlots      = "merge_slots"
	nodeEvaluatePolicy  = "evaluate_policy"
	nodeDispatchTool    = "dispatch_tool"
	nodeComposeReply    = "compose_reply"
	nodeFinalizeReply   = "finalize_reply"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateRequest, err)
	}

	if err := graph.AddLambdaNode(nodeNormalizeInput,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.NormalizeInput(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeNormalizeInput, err)
	}

	if err := graph.AddLambdaNode(nodeExtractIntent,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExtractIntent(ctx, in, o.extractor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExtractIntent, err)
	}

	if err := graph.AddLambdaNode(nodeMergeSlots,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.MergeSlots(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeMergeSlots, err)
	}

	if err := graph.AddLambdaNode(nodeEvaluatePolicy,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.EvaluatePolicy(ctx, in, o.engine)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeEvaluatePolicy, err)
	}

	if err := graph.AddLambdaNode(nodeDispatchTool,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchTool(ctx, in, o.dispatcher, o.audit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDispatchTool, err)
	}

	if err := graph.AddLambdaNode(nodeComposeReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ComposeReply(ctx, in, o.composer)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeComposeReply, err)
	}

	if err := graph.AddLambdaNode(nodeFinalizeReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalizeReply, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateRequest},
		{nodeValidateRequest, nodeNormalizeInput},
		{nodeExtractIntent, nodeMergeSlots},
		{nodeMergeSlots, nodeEvaluatePolicy},
		{nodeComposeReply, nodeFinalizeReply},
		{nodeFinalizeReply, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	branches := []struct {
		from string
		cond func(*nodex.GraphState) bool
		yes  string
		no   string
	}{
		{nodeNormalizeInput, func(in *nodex.GraphState) bool { return in.Cancelled }, nodeFinalizeReply, nodeExtractIntent},
		{nodeEvaluatePolicy, nodex.ShouldDispatch, nodeDispatchTool, nodeFinalizeReply},
		{nodeDispatchTool, nodex.ShouldCompose, nodeComposeReply, nodeFinalizeReply},
	}

	for _, b := range branches {
		b := b
		branch := compose.NewGraphBranch(
			func(_ context.Context, in *nodex.GraphState) (string, error) {
				if b.cond(in) {
					return b.yes, nil
				}
				return b.no, nil
			},
			map[string]bool{b.yes: true, b.no: true},
		)
		if err := graph.AddBranch(b.from, branch); err != nil {
			return nil, fmt.Errorf("add branch from %s: %w", b.from, err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
