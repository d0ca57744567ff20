package ports

import "asmwalk/internal/types"

// FrameworkPort decides whether a reference belongs to a trusted platform
// origin whose subtree is not walked.
type FrameworkPort interface {
	IsFramework(ref types.ReferenceDescriptor) bool
}
