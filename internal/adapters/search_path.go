package adapters

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

// SearchPathResolver looks for {name}{extension} in a single directory,
// normally the one holding the root module.
type SearchPathResolver struct {
	Dir    string
	Loader ports.ModuleFilePort
}

func NewSearchPathResolver(dir string, loader ports.ModuleFilePort) SearchPathResolver {
	return SearchPathResolver{Dir: dir, Loader: loader}
}

// TryResolve reports absence rather than an error; the caller decides how
// to describe the failure.
func (r SearchPathResolver) TryResolve(ref types.ReferenceDescriptor) (types.ModuleDescriptor, bool) {
	module, ok, err := r.Lookup(ref)
	if err != nil {
		log.Debug().Err(err).Str("module", ref.Identity()).Msg("search path candidate unreadable")
	}
	return module, ok
}

// Lookup is TryResolve that also returns the load error of a candidate
// file that exists but cannot be read.
func (r SearchPathResolver) Lookup(ref types.ReferenceDescriptor) (types.ModuleDescriptor, bool, error) {
	if r.Dir == "" || r.Loader == nil || !validModuleName(ref.Name) {
		return types.ModuleDescriptor{}, false, nil
	}
	path := filepath.Join(r.Dir, ref.Name+r.Loader.Extension())
	if _, err := os.Stat(path); err != nil {
		return types.ModuleDescriptor{}, false, nil
	}
	module, err := r.Loader.Load(path)
	if err != nil {
		return types.ModuleDescriptor{}, false, err
	}
	return module, true, nil
}

var _ ports.FallbackResolverPort = SearchPathResolver{}
