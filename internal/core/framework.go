package core

import (
	"strings"

	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

// frameworkTokens are the public key tokens of the platform's own signed
// libraries.
var frameworkTokens = []string{
	"b77a5c561934e089",
	"31bf3856ad364e35",
	"b03f5f7f11d50a3a",
	"89845dcd8080cc91",
}

type FrameworkClassifier struct {
	tokens map[string]struct{}
}

// NewFrameworkClassifier returns a classifier trusting the built-in
// platform tokens plus any extra hex tokens given.
func NewFrameworkClassifier(extra ...string) FrameworkClassifier {
	tokens := make(map[string]struct{}, len(frameworkTokens)+len(extra))
	for _, token := range frameworkTokens {
		tokens[token] = struct{}{}
	}
	for _, token := range extra {
		normalized := strings.ToLower(strings.TrimSpace(token))
		if normalized == "" {
			continue
		}
		tokens[normalized] = struct{}{}
	}
	return FrameworkClassifier{tokens: tokens}
}

func (c FrameworkClassifier) IsFramework(ref types.ReferenceDescriptor) bool {
	if len(ref.SignerToken) == 0 {
		return false
	}
	_, ok := c.tokens[ref.TokenHex()]
	return ok
}

var _ ports.FrameworkPort = FrameworkClassifier{}
