package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"asmwalk/internal/adapters"
	"asmwalk/internal/core"
	"asmwalk/internal/types"
)

func (s Service) Walk(ctx context.Context, req WalkRequest) (WalkResult, error) {
	order, err := parseRuntimeOrder(req.RuntimeOrder)
	if err != nil {
		return WalkResult{}, err
	}
	root, loader, err := s.loadRoot(req.ModulePath, req.Format)
	if err != nil {
		return WalkResult{}, err
	}
	assert.NotEmpty(ctx, root.Reference.Name, "root module name must be set")

	searchDir := strings.TrimSpace(req.SearchPath)
	if searchDir == "" {
		searchDir = filepath.Dir(strings.TrimSpace(req.ModulePath))
	}
	provider := adapters.NewProbingProvider(loader, req.ProbePaths)
	provider.SetFallback(adapters.NewSearchPathResolver(searchDir, loader).Lookup)

	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	walker := core.NewDependencyWalker(
		provider,
		core.NewFrameworkClassifier(req.FrameworkTokens...),
		adapters.NewTreeWriterAdapter(out, req.Color),
		core.WalkOptions{HideFramework: req.HideFramework, RuntimeOrder: order},
	)
	log.Ctx(ctx).Debug().
		Str("root", root.Reference.Identity()).
		Str("search_path", searchDir).
		Strs("probe_paths", req.ProbePaths).
		Msg("walking module references")
	result, err := walker.Run(ctx, root)
	if err != nil {
		return WalkResult{}, err
	}
	return WalkResult{
		Root:     root.Reference,
		Summary:  result.Summary,
		Outcomes: result.Outcomes,
	}, nil
}

func parseRuntimeOrder(value string) (types.RuntimeOrder, error) {
	switch order := types.RuntimeOrder(strings.ToLower(strings.TrimSpace(value))); order {
	case "":
		return types.RuntimeOrderOrdinal, nil
	case types.RuntimeOrderOrdinal, types.RuntimeOrderSemantic:
		return order, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown runtime order %q", value))
	}
}
