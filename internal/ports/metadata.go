package ports

import "asmwalk/internal/types"

// FallbackFunc is consulted by a metadata provider when its own lookup
// cannot produce a module for a reference. The boolean reports whether a
// module was found; a non-nil error means a candidate file existed but
// could not be loaded.
type FallbackFunc func(ref types.ReferenceDescriptor) (types.ModuleDescriptor, bool, error)

// ModuleMetadataPort resolves a reference to the referenced module's own
// descriptor.
type ModuleMetadataPort interface {
	// Resolve returns the module for ref, or an error whose message
	// describes why it could not be loaded.
	Resolve(ref types.ReferenceDescriptor) (types.ModuleDescriptor, error)

	// SetFallback installs the hook consulted whenever the default lookup
	// fails. A nil hook removes it.
	SetFallback(hook FallbackFunc)
}

// FallbackResolverPort looks for a module outside the provider's default
// lookup.
type FallbackResolverPort interface {
	TryResolve(ref types.ReferenceDescriptor) (types.ModuleDescriptor, bool)
	Lookup(ref types.ReferenceDescriptor) (types.ModuleDescriptor, bool, error)
}
