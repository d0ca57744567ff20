package ports

import "asmwalk/internal/types"

// ModuleFilePort reads a module's descriptor from a file on disk.
type ModuleFilePort interface {
	// Extension is the file suffix modules of this format carry,
	// including the leading dot.
	Extension() string
	Load(path string) (types.ModuleDescriptor, error)
}
