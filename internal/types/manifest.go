package types

// ManifestReference is one declared reference inside a module manifest.
type ManifestReference struct {
	Name           string `yaml:"name"`
	Version        string `yaml:"version"`
	Culture        string `yaml:"culture,omitempty"`
	PublicKeyToken string `yaml:"public_key_token,omitempty"`
}

// ModuleManifest is the YAML form of a module descriptor, used where no
// native binary metadata is available.
type ModuleManifest struct {
	Name           string              `yaml:"name"`
	Version        string              `yaml:"version"`
	Culture        string              `yaml:"culture,omitempty"`
	PublicKeyToken string              `yaml:"public_key_token,omitempty"`
	RuntimeVersion string              `yaml:"runtime_version"`
	References     []ManifestReference `yaml:"references"`
}
