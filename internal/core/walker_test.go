package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asmwalk/internal/adapters"
	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

type testProvider struct {
	modules map[string]types.ModuleDescriptor
	panics  map[string]bool
	calls   map[string]int
}

func newTestProvider(modules ...types.ModuleDescriptor) *testProvider {
	p := &testProvider{
		modules: map[string]types.ModuleDescriptor{},
		panics:  map[string]bool{},
		calls:   map[string]int{},
	}
	for _, module := range modules {
		p.modules[module.Reference.Identity()] = module
	}
	return p
}

func (p *testProvider) Resolve(ref types.ReferenceDescriptor) (types.ModuleDescriptor, error) {
	p.calls[ref.Identity()]++
	if p.panics[ref.Identity()] {
		panic("bad image")
	}
	module, ok := p.modules[ref.Identity()]
	if !ok {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("could not locate module %s", ref.DisplayName()))
	}
	return module, nil
}

func (p *testProvider) SetFallback(ports.FallbackFunc) {}

func ref(name string, version string) types.ReferenceDescriptor {
	v, err := types.ParseVersion(version)
	if err != nil {
		panic(err)
	}
	return types.ReferenceDescriptor{Name: name, Version: v}
}

func module(r types.ReferenceDescriptor, runtime string, refs ...types.ReferenceDescriptor) types.ModuleDescriptor {
	return types.ModuleDescriptor{Reference: r, RuntimeVersion: runtime, References: refs}
}

func runWalk(t *testing.T, provider ports.ModuleMetadataPort, opts WalkOptions, root types.ModuleDescriptor) ([]string, WalkResult) {
	t.Helper()
	sink := &adapters.TreeCollector{}
	walker := NewDependencyWalker(provider, NewFrameworkClassifier(), sink, opts)
	result, err := walker.Run(t.Context(), root)
	require.NoError(t, err)
	return sink.Texts(), result
}

func TestWalkerSharedDependencyRendersDuplicate(t *testing.T) {
	d := module(ref("D", "1.0"), "4.0", ref("E", "1.0"))
	b := module(ref("B", "1.0"), "4.0", ref("D", "1.0"))
	c := module(ref("C", "1.0"), "4.0", ref("D", "1.0"))
	e := module(ref("E", "1.0"), "4.0")
	root := module(ref("A", "1.0"), "4.0", ref("B", "1.0"), ref("C", "1.0"))
	provider := newTestProvider(b, c, d, e)

	lines, result := runWalk(t, provider, WalkOptions{HideFramework: true}, root)

	want := []string{
		"+A 1.0.0.0 (4.0)",
		" +B 1.0.0.0 (4.0)",
		"  +D 1.0.0.0 (4.0)",
		"   +E 1.0.0.0 (4.0)",
		" +C 1.0.0.0 (4.0)",
		"  -D 1.0.0.0 (again)",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, provider.calls["D@1.0.0.0"], "duplicates are never re-resolved")
	assert.Equal(t, 1, result.Summary.Duplicates)
	assert.Equal(t, 5, result.Summary.Resolved)
	assert.Equal(t, 6, result.Summary.Nodes)
}

func TestWalkerOutcomesIncludeDuplicates(t *testing.T) {
	b := module(ref("B", "1.0"), "4.0", ref("C", "1.0"))
	c := module(ref("C", "1.0"), "4.0")
	root := module(ref("A", "1.0"), "4.0", ref("B", "1.0"), ref("C", "1.0"))

	lines, result := runWalk(t, newTestProvider(b, c), WalkOptions{}, root)

	require.Len(t, result.Outcomes, len(lines))
	last := result.Outcomes[len(result.Outcomes)-1]
	assert.Equal(t, types.OutcomeDuplicate, last.Outcome.Kind)
	assert.Equal(t, "C", last.Reference.Name)
	assert.Equal(t, 1, last.Depth)
}

func TestWalkerFailureDoesNotStopSiblings(t *testing.T) {
	b := module(ref("B", "1.0"), "4.0")
	root := module(ref("A", "1.0"), "4.0", ref("E", "1.0"), ref("B", "1.0"))

	lines, result := runWalk(t, newTestProvider(b), WalkOptions{}, root)

	want := []string{
		"+A 1.0.0.0 (4.0)",
		" !E 1.0.0.0 FAILED: could not locate module E 1.0.0.0",
		" +B 1.0.0.0 (4.0)",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, result.Summary.Failed)
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, types.OutcomeFailed, result.Outcomes[1].Outcome.Kind)
	assert.NotEmpty(t, result.Outcomes[1].Outcome.Reason)
}

func TestWalkerFailedIdentityRendersAsDuplicateWhenSeenAgain(t *testing.T) {
	b := module(ref("B", "1.0"), "4.0", ref("E", "1.0"))
	root := module(ref("A", "1.0"), "4.0", ref("E", "1.0"), ref("B", "1.0"))
	provider := newTestProvider(b)

	lines, _ := runWalk(t, provider, WalkOptions{}, root)

	assert.Equal(t, "  -E 1.0.0.0 (again)", lines[3])
	assert.Equal(t, 1, provider.calls["E@1.0.0.0"])
}

func TestWalkerRuntimeEscalation(t *testing.T) {
	tests := []struct {
		name      string
		child     string
		escalated bool
	}{
		{name: "newer runtime", child: "4.5", escalated: true},
		{name: "same runtime", child: "4.0", escalated: false},
		{name: "older runtime", child: "3.5", escalated: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child := module(ref("B", "1.0"), tt.child)
			root := module(ref("A", "1.0"), "4.0", ref("B", "1.0"))
			sink := &adapters.TreeCollector{}
			walker := NewDependencyWalker(newTestProvider(child), NewFrameworkClassifier(), sink, WalkOptions{})
			_, err := walker.Run(t.Context(), root)
			require.NoError(t, err)
			require.Len(t, sink.Lines, 2)
			assert.False(t, sink.Lines[0].Escalated, "root never escalates")
			assert.Equal(t, tt.escalated, sink.Lines[1].Escalated)
			assert.Equal(t, tt.escalated, strings.HasSuffix(sink.Lines[1].Text, "!!!)"))
		})
	}
}

func TestWalkerEscalationComparesAgainstImmediateParent(t *testing.T) {
	c := module(ref("C", "1.0"), "v4.0.30319")
	b := module(ref("B", "1.0"), "v2.0.50727", ref("C", "1.0"))
	root := module(ref("A", "1.0"), "v4.0.30319", ref("B", "1.0"))

	lines, result := runWalk(t, newTestProvider(b, c), WalkOptions{}, root)

	want := []string{
		"+A 1.0.0.0 (v4.0.30319)",
		" +B 1.0.0.0 (v2.0.50727)",
		"  +C 1.0.0.0 (v4.0.30319!!!)",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, result.Summary.Escalations)
}

func TestWalkerPrunesFrameworkSubtree(t *testing.T) {
	framework := ref("mscorlib", "4.0")
	framework.SignerToken = []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89}
	fw := module(framework, "4.0", ref("Inner", "1.0"))
	inner := module(ref("Inner", "1.0"), "4.0")
	root := module(ref("A", "1.0"), "4.0", framework)
	provider := newTestProvider(fw, inner)

	lines, result := runWalk(t, provider, WalkOptions{HideFramework: true}, root)
	assert.Equal(t, []string{"+A 1.0.0.0 (4.0)"}, lines)
	assert.Equal(t, 1, result.Summary.Pruned)
	assert.Zero(t, provider.calls["mscorlib@4.0.0.0"])

	lines, _ = runWalk(t, provider, WalkOptions{HideFramework: false}, root)
	assert.Equal(t, []string{
		"+A 1.0.0.0 (4.0)",
		" +mscorlib 4.0.0.0 (4.0)",
		"  +Inner 1.0.0.0 (4.0)",
	}, lines)
}

func TestWalkerTerminatesOnCycles(t *testing.T) {
	b := module(ref("B", "1.0"), "4.0", ref("A", "1.0"), ref("B", "1.0"))
	root := module(ref("A", "1.0"), "4.0", ref("B", "1.0"))

	lines, _ := runWalk(t, newTestProvider(b, root), WalkOptions{}, root)

	assert.Equal(t, []string{
		"+A 1.0.0.0 (4.0)",
		" +B 1.0.0.0 (4.0)",
		"  -A 1.0.0.0 (again)",
		"  -B 1.0.0.0 (again)",
	}, lines)
}

func TestWalkerRecoversProviderPanic(t *testing.T) {
	b := module(ref("B", "1.0"), "4.0")
	root := module(ref("A", "1.0"), "4.0", ref("Bad", "1.0"), ref("B", "1.0"))
	provider := newTestProvider(b)
	provider.panics["Bad@1.0.0.0"] = true

	lines, _ := runWalk(t, provider, WalkOptions{}, root)

	require.Len(t, lines, 3)
	assert.Equal(t, " !Bad 1.0.0.0 FAILED: metadata provider panicked: bad image", lines[1])
	assert.Equal(t, " +B 1.0.0.0 (4.0)", lines[2])
}

func TestWalkerIndentationMatchesDepth(t *testing.T) {
	c := module(ref("C", "1.0"), "4.0")
	b := module(ref("B", "1.0"), "4.0", ref("C", "1.0"))
	root := module(ref("A", "1.0"), "4.0", ref("B", "1.0"))
	sink := &adapters.TreeCollector{}
	walker := NewDependencyWalker(newTestProvider(b, c), NewFrameworkClassifier(), sink, WalkOptions{})
	_, err := walker.Run(t.Context(), root)
	require.NoError(t, err)

	for i, line := range sink.Lines {
		assert.Equal(t, i, line.Depth)
		assert.Equal(t, strings.Repeat(" ", line.Depth), line.Text[:line.Depth])
	}
}

func TestWalkerWithoutProviderFailsChildren(t *testing.T) {
	root := module(ref("A", "1.0"), "4.0", ref("B", "1.0"))
	lines, _ := runWalk(t, nil, WalkOptions{}, root)
	assert.Equal(t, " !B 1.0.0.0 FAILED: no module metadata provider configured", lines[1])
}

func TestWalkerRequiresSink(t *testing.T) {
	walker := NewDependencyWalker(newTestProvider(), NewFrameworkClassifier(), nil, WalkOptions{})
	_, err := walker.Run(t.Context(), module(ref("A", "1.0"), "4.0"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestWalkerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	sink := &adapters.TreeCollector{}
	walker := NewDependencyWalker(newTestProvider(), NewFrameworkClassifier(), sink, WalkOptions{})
	_, err := walker.Run(ctx, module(ref("A", "1.0"), "4.0"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.Lines)
}
