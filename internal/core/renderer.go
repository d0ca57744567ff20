package core

import (
	"strings"

	"asmwalk/internal/types"
)

type TreeRenderer struct{}

func NewTreeRenderer() TreeRenderer {
	return TreeRenderer{}
}

// Render formats one node: depth spaces, the status glyph, the label and
// the status suffix.
func (TreeRenderer) Render(depth int, status types.NodeStatus, label string, reason string) string {
	if depth < 0 {
		depth = 0
	}
	var builder strings.Builder
	builder.WriteString(strings.Repeat(" ", depth))
	builder.WriteString(status.Glyph())
	builder.WriteString(label)
	switch status {
	case types.NodeStatusDuplicate:
		builder.WriteString(" (again)")
	case types.NodeStatusFailed:
		builder.WriteString(" FAILED: ")
		builder.WriteString(reason)
	}
	return builder.String()
}

// nodeLabel is "Name Version" for unresolved nodes and
// "Name Version (runtime)" for resolved ones, with "!!!" marking a
// runtime escalation.
func nodeLabel(ref types.ReferenceDescriptor, module *types.ModuleDescriptor, escalated bool) string {
	label := ref.DisplayName()
	if module == nil {
		return label
	}
	marker := ""
	if escalated {
		marker = "!!!"
	}
	return label + " (" + module.RuntimeVersion + marker + ")"
}
