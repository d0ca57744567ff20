package app

import "asmwalk/internal/types"

type WalkRequest struct {
	ModulePath      string
	HideFramework   bool
	SearchPath      string
	ProbePaths      []string
	Format          string
	RuntimeOrder    string
	FrameworkTokens []string
	Color           bool
}

type WalkResult struct {
	Root     types.ReferenceDescriptor
	Summary  types.WalkSummary
	Outcomes []types.NodeOutcome
}

type InspectRequest struct {
	ModulePath      string
	Format          string
	FrameworkTokens []string
}

type InspectReference struct {
	Reference types.ReferenceDescriptor
	Framework bool
}

type InspectResult struct {
	Module     types.ModuleDescriptor
	Framework  bool
	References []InspectReference
}
