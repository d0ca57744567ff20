package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"asmwalk/internal/ports"
	"asmwalk/internal/shared"
	"asmwalk/internal/types"
)

type WalkOptions struct {
	HideFramework bool
	RuntimeOrder  types.RuntimeOrder
}

// DependencyWalker performs a depth-first, pre-order walk of a module's
// references and emits one tree line per visited node.
type DependencyWalker struct {
	Provider  ports.ModuleMetadataPort
	Framework ports.FrameworkPort
	Sink      ports.TreeSinkPort
	Renderer  TreeRenderer
	Options   WalkOptions
}

// WalkResult lists one outcome per visited reference in walk order,
// pruned framework references included.
type WalkResult struct {
	Summary  types.WalkSummary
	Outcomes []types.NodeOutcome
}

func NewDependencyWalker(provider ports.ModuleMetadataPort, framework ports.FrameworkPort, sink ports.TreeSinkPort, opts WalkOptions) DependencyWalker {
	return DependencyWalker{
		Provider:  provider,
		Framework: framework,
		Sink:      sink,
		Renderer:  NewTreeRenderer(),
		Options:   opts,
	}
}

// walkState is owned by a single Run call.
type walkState struct {
	registry *VisitedRegistry
	runtime  *runtimeComparer
	summary  types.WalkSummary
	outcomes []types.NodeOutcome
}

// Run walks from an already loaded root module. Per-node resolution
// failures are rendered, not returned; the error is non-nil only when the
// sink fails or ctx is done.
func (w DependencyWalker) Run(ctx context.Context, root types.ModuleDescriptor) (WalkResult, error) {
	if w.Sink == nil {
		return WalkResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("walker requires a tree sink")
	}
	state := &walkState{
		registry: NewVisitedRegistry(),
		runtime:  newRuntimeComparer(w.Options.RuntimeOrder),
	}
	err := w.visit(ctx, state, root.Reference, 0, "", &root)
	result := WalkResult{Summary: state.summary, Outcomes: state.outcomes}
	log.Ctx(ctx).Debug().
		Int("nodes", result.Summary.Nodes).
		Int("resolved", result.Summary.Resolved).
		Int("duplicates", result.Summary.Duplicates).
		Int("failed", result.Summary.Failed).
		Int("escalations", result.Summary.Escalations).
		Int("pruned", result.Summary.Pruned).
		Msg("walk completed")
	return result, err
}

func (w DependencyWalker) visit(ctx context.Context, state *walkState, ref types.ReferenceDescriptor, depth int, parentRuntime string, preloaded *types.ModuleDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.Options.HideFramework && w.Framework != nil && w.Framework.IsFramework(ref) {
		state.summary.Pruned++
		state.outcomes = append(state.outcomes, types.NodeOutcome{Reference: ref, Depth: depth, Outcome: types.Pruned()})
		return nil
	}

	// Mark before resolving so a self-referential graph terminates.
	if !state.registry.MarkAndCheck(ref.Identity()) {
		state.summary.Duplicates++
		state.outcomes = append(state.outcomes, types.NodeOutcome{Reference: ref, Depth: depth, Outcome: types.Duplicate()})
		return w.emit(state, depth, types.NodeStatusDuplicate, false, nodeLabel(ref, nil, false), "")
	}

	var outcome types.ResolutionOutcome
	if preloaded != nil {
		outcome = types.Resolved(*preloaded)
	} else {
		outcome = w.resolve(ref)
	}
	state.outcomes = append(state.outcomes, types.NodeOutcome{Reference: ref, Depth: depth, Outcome: outcome})

	if outcome.Kind == types.OutcomeFailed {
		state.summary.Failed++
		log.Ctx(ctx).Debug().Str("module", ref.Identity()).Str("reason", outcome.Reason).Msg("resolution failed")
		return w.emit(state, depth, types.NodeStatusFailed, false, nodeLabel(ref, nil, false), outcome.Reason)
	}

	module := outcome.Module
	escalated := state.runtime.escalates(module.RuntimeVersion, parentRuntime)
	state.summary.Resolved++
	if escalated {
		state.summary.Escalations++
	}
	if err := w.emit(state, depth, types.NodeStatusNormal, escalated, nodeLabel(ref, &module, escalated), ""); err != nil {
		return err
	}
	for _, child := range module.References {
		if err := w.visit(ctx, state, child, depth+1, module.RuntimeVersion, nil); err != nil {
			return err
		}
	}
	return nil
}

func (w DependencyWalker) resolve(ref types.ReferenceDescriptor) (outcome types.ResolutionOutcome) {
	if w.Provider == nil {
		return types.Failed("no module metadata provider configured")
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = types.Failed(fmt.Sprintf("metadata provider panicked: %v", recovered))
		}
	}()
	module, err := w.Provider.Resolve(ref)
	if err != nil {
		reason := shared.ErrorReason(err)
		if reason == "" {
			reason = "unknown resolution failure"
		}
		return types.Failed(reason)
	}
	return types.Resolved(module)
}

func (w DependencyWalker) emit(state *walkState, depth int, status types.NodeStatus, escalated bool, label string, reason string) error {
	state.summary.Nodes++
	return w.Sink.Emit(types.TreeLine{
		Depth:     depth,
		Status:    status,
		Escalated: escalated,
		Label:     label,
		Reason:    reason,
		Text:      w.Renderer.Render(depth, status, label, reason),
	})
}
