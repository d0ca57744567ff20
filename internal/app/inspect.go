package app

import (
	"context"

	"asmwalk/internal/core"
)

// Inspect loads a single module and reports its own metadata without
// walking its references.
func (s Service) Inspect(_ context.Context, req InspectRequest) (InspectResult, error) {
	module, _, err := s.loadRoot(req.ModulePath, req.Format)
	if err != nil {
		return InspectResult{}, err
	}
	classifier := core.NewFrameworkClassifier(req.FrameworkTokens...)
	refs := make([]InspectReference, 0, len(module.References))
	for _, ref := range module.References {
		refs = append(refs, InspectReference{
			Reference: ref,
			Framework: classifier.IsFramework(ref),
		})
	}
	return InspectResult{
		Module:     module,
		Framework:  classifier.IsFramework(module.Reference),
		References: refs,
	}, nil
}
