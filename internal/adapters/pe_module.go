package adapters

import (
	"debug/pe"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

const peExtension = ".dll"

// PEModuleAdapter reads module identity and references from the ECMA-335
// metadata of a managed PE image.
type PEModuleAdapter struct{}

func NewPEModuleAdapter() PEModuleAdapter {
	return PEModuleAdapter{}
}

func (a PEModuleAdapter) Extension() string {
	return peExtension
}

func (a PEModuleAdapter) Load(path string) (types.ModuleDescriptor, error) {
	if _, err := os.Stat(path); err != nil {
		code := errbuilder.CodeInternal
		if errors.Is(err, fs.ErrNotExist) {
			code = errbuilder.CodeNotFound
		}
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(code).
			WithMsg("module file not readable").
			WithCause(err)
	}
	file, err := pe.Open(path)
	if err != nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("not a valid module image").
			WithCause(err)
	}
	defer file.Close()

	raw, err := readCLIMetadata(file)
	if err != nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("not a managed module").
			WithCause(err)
	}
	meta, err := parseMetadataRoot(raw)
	if err != nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("corrupt module metadata").
			WithCause(err)
	}
	return descriptorFromMetadata(meta, path)
}

func descriptorFromMetadata(meta cliMetadata, path string) (types.ModuleDescriptor, error) {
	if meta.Assembly == nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("module has no assembly manifest")
	}
	if strings.TrimSpace(meta.Assembly.Name) == "" {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("module assembly manifest has no name")
	}
	self := referenceFromRow(*meta.Assembly)
	if len(meta.Assembly.PublicKey) > 0 {
		self.SignerToken = publicKeyToken(meta.Assembly.PublicKey)
	}
	refs := make([]types.ReferenceDescriptor, 0, len(meta.References))
	for _, row := range meta.References {
		ref := referenceFromRow(row)
		ref.SignerToken = row.Token()
		refs = append(refs, ref)
	}
	return types.ModuleDescriptor{
		Reference:      self,
		RuntimeVersion: meta.RuntimeVersion,
		References:     refs,
		Path:           path,
	}, nil
}

func referenceFromRow(row assemblyRow) types.ReferenceDescriptor {
	return types.ReferenceDescriptor{
		Name: row.Name,
		Version: types.Version{
			Major:    row.Major,
			Minor:    row.Minor,
			Build:    row.Build,
			Revision: row.Revision,
		},
		Culture: row.Culture,
	}
}

var _ ports.ModuleFilePort = PEModuleAdapter{}
