package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"asmwalk/internal/ports"
	"asmwalk/internal/shared"
	"asmwalk/internal/types"
)

// ProbingProvider resolves references by probing a list of directories for
// {name}{extension}. The located module must match the reference's name
// and, when the reference carries one, its exact version. Any failure of
// that lookup hands the reference to the installed fallback hook. When
// nothing was located but the fallback found an unloadable candidate, the
// candidate's load error is returned.
type ProbingProvider struct {
	Loader     ports.ModuleFilePort
	ProbePaths []string
	fallback   ports.FallbackFunc
}

func NewProbingProvider(loader ports.ModuleFilePort, probePaths []string) *ProbingProvider {
	return &ProbingProvider{Loader: loader, ProbePaths: probePaths}
}

func (p *ProbingProvider) SetFallback(hook ports.FallbackFunc) {
	p.fallback = hook
}

func (p *ProbingProvider) Resolve(ref types.ReferenceDescriptor) (types.ModuleDescriptor, error) {
	module, err := p.lookup(ref)
	if err == nil {
		return module, nil
	}
	if p.fallback == nil {
		return types.ModuleDescriptor{}, err
	}
	found, ok, fallbackErr := p.fallback(ref)
	if ok {
		log.Debug().Str("module", ref.Identity()).Str("path", found.Path).Msg("resolved through fallback")
		return found, nil
	}
	// A candidate that exists but cannot be loaded says more than "not
	// located".
	if fallbackErr != nil && errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to load module %s", ref.DisplayName())).
			WithCause(fallbackErr)
	}
	return types.ModuleDescriptor{}, err
}

func (p *ProbingProvider) lookup(ref types.ReferenceDescriptor) (types.ModuleDescriptor, error) {
	if p.Loader == nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("no module loader configured")
	}
	if !validModuleName(ref.Name) {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid module name %q", ref.Name))
	}
	for _, dir := range p.ProbePaths {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		candidate := filepath.Join(dir, ref.Name+p.Loader.Extension())
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		module, err := p.Loader.Load(candidate)
		if err != nil {
			return types.ModuleDescriptor{}, err
		}
		if err := matchReference(ref, module); err != nil {
			return types.ModuleDescriptor{}, err
		}
		return module, nil
	}
	return types.ModuleDescriptor{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("could not locate module %s", ref.DisplayName()))
}

func matchReference(ref types.ReferenceDescriptor, module types.ModuleDescriptor) error {
	found := module.Reference
	if shared.NormalizeModuleName(found.Name) != shared.NormalizeModuleName(ref.Name) ||
		(!ref.Version.IsZero() && found.Version != ref.Version) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("located module %s does not match reference %s", found.DisplayName(), ref.DisplayName()))
	}
	return nil
}

// validModuleName rejects names that would escape the probed directory.
func validModuleName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return false
	}
	return !strings.ContainsAny(trimmed, `/\`)
}

var _ ports.ModuleMetadataPort = (*ProbingProvider)(nil)
