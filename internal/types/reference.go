package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Version is the four-part version tuple carried by a module identity.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// ParseVersion accepts one to four dotted numeric components. Missing
// components are zero.
func ParseVersion(value string) (Version, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Version{}, nil
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("version %q has more than four components", value)
	}
	var out [4]uint16
	for i, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: component %d: %w", value, i+1, err)
		}
		out[i] = uint16(n)
	}
	return Version{Major: out[0], Minor: out[1], Build: out[2], Revision: out[3]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

func (v Version) IsZero() bool {
	return v == Version{}
}

// ReferenceDescriptor identifies a module without having loaded it.
type ReferenceDescriptor struct {
	Name        string
	Version     Version
	Culture     string
	SignerToken []byte
}

// Identity is the deduplication key of a reference: name and version.
func (r ReferenceDescriptor) Identity() string {
	return r.Name + "@" + r.Version.String()
}

// TokenHex returns the signer token as lowercase hexadecimal.
func (r ReferenceDescriptor) TokenHex() string {
	return hex.EncodeToString(r.SignerToken)
}

// DisplayName is the "Name Version" form used in rendered trees.
func (r ReferenceDescriptor) DisplayName() string {
	return fmt.Sprintf("%s %s", r.Name, r.Version)
}

// ModuleDescriptor is a successfully resolved module. It is never mutated
// after construction.
type ModuleDescriptor struct {
	Reference      ReferenceDescriptor
	RuntimeVersion string
	References     []ReferenceDescriptor
	Path           string
}
