package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

// loadRoot validates the invocation's module argument and loads it. Every
// error returned here is an invocation error.
func (s Service) loadRoot(path string, format string) (types.ModuleDescriptor, ports.ModuleFilePort, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return types.ModuleDescriptor{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pass it a module to walk its dependencies")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ModuleDescriptor{}, nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("file was not found: %s", path))
		}
		return types.ModuleDescriptor{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("file is not accessible: %s", path)).
			WithCause(err)
	}
	if info.IsDir() {
		return types.ModuleDescriptor{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("expected a module file, got a directory: %s", path))
	}
	loader, err := s.loaderFor(format, path)
	if err != nil {
		return types.ModuleDescriptor{}, nil, err
	}
	root, err := loader.Load(path)
	if err != nil {
		return types.ModuleDescriptor{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to load root module %s", path)).
			WithCause(err)
	}
	return root, loader, nil
}

func (s Service) loaderFor(format string, path string) (ports.ModuleFilePort, error) {
	selected := types.ModuleFormat(strings.ToLower(strings.TrimSpace(format)))
	switch selected {
	case "", types.ModuleFormatAuto:
		selected = detectFormat(path)
	case types.ModuleFormatPE, types.ModuleFormatManifest:
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown module format %q", format))
	}
	loader, ok := s.Loaders[selected]
	if !ok || loader == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no loader registered for format %s", selected))
	}
	return loader, nil
}

func detectFormat(path string) types.ModuleFormat {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return types.ModuleFormatManifest
	}
	return types.ModuleFormatPE
}
