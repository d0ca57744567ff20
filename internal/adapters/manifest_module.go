package adapters

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

const manifestExtension = ".module.yaml"

// ManifestModuleAdapter reads module descriptors from YAML manifests named
// {name}.module.yaml.
type ManifestModuleAdapter struct{}

func NewManifestModuleAdapter() ManifestModuleAdapter {
	return ManifestModuleAdapter{}
}

func (a ManifestModuleAdapter) Extension() string {
	return manifestExtension
}

func (a ManifestModuleAdapter) Load(path string) (types.ModuleDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("module manifest not readable").
			WithCause(err)
	}
	var manifest types.ModuleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse module manifest").
			WithCause(err)
	}
	if strings.TrimSpace(manifest.Name) == "" {
		return types.ModuleDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("module manifest has no name")
	}
	self, err := manifestReference(manifest.Name, manifest.Version, manifest.Culture, manifest.PublicKeyToken)
	if err != nil {
		return types.ModuleDescriptor{}, err
	}
	refs := make([]types.ReferenceDescriptor, 0, len(manifest.References))
	for _, entry := range manifest.References {
		ref, err := manifestReference(entry.Name, entry.Version, entry.Culture, entry.PublicKeyToken)
		if err != nil {
			return types.ModuleDescriptor{}, err
		}
		refs = append(refs, ref)
	}
	return types.ModuleDescriptor{
		Reference:      self,
		RuntimeVersion: strings.TrimSpace(manifest.RuntimeVersion),
		References:     refs,
		Path:           path,
	}, nil
}

func manifestReference(name string, version string, culture string, token string) (types.ReferenceDescriptor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.ReferenceDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("module manifest reference has no name")
	}
	parsed, err := types.ParseVersion(version)
	if err != nil {
		return types.ReferenceDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version for %s", name)).
			WithCause(err)
	}
	var signer []byte
	if trimmed := strings.TrimSpace(token); trimmed != "" && !strings.EqualFold(trimmed, "null") {
		signer, err = hex.DecodeString(trimmed)
		if err != nil {
			return types.ReferenceDescriptor{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid public key token for %s", name)).
				WithCause(err)
		}
	}
	return types.ReferenceDescriptor{
		Name:        name,
		Version:     parsed,
		Culture:     strings.TrimSpace(culture),
		SignerToken: signer,
	}, nil
}

var _ ports.ModuleFilePort = ManifestModuleAdapter{}
