package core

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"asmwalk/internal/types"
)

// runtimeComparer decides whether a child's runtime tag escalates past its
// parent's.
type runtimeComparer struct {
	order   types.RuntimeOrder
	parsed  map[string]pep440.Version
	invalid map[string]struct{}
}

func newRuntimeComparer(order types.RuntimeOrder) *runtimeComparer {
	if order == "" {
		order = types.RuntimeOrderOrdinal
	}
	return &runtimeComparer{
		order:   order,
		parsed:  map[string]pep440.Version{},
		invalid: map[string]struct{}{},
	}
}

// escalates reports whether child compares strictly greater than parent.
// An empty parent never escalates.
func (c *runtimeComparer) escalates(child string, parent string) bool {
	if parent == "" {
		return false
	}
	if c.order == types.RuntimeOrderSemantic {
		cv, cok := c.version(child)
		pv, pok := c.version(parent)
		if cok && pok {
			return cv.Compare(pv) > 0
		}
	}
	return strings.Compare(child, parent) > 0
}

func (c *runtimeComparer) version(tag string) (pep440.Version, bool) {
	if parsed, ok := c.parsed[tag]; ok {
		return parsed, true
	}
	if _, ok := c.invalid[tag]; ok {
		return pep440.Version{}, false
	}
	// Runtime tags carry a leading "v".
	trimmed := strings.TrimLeft(strings.TrimSpace(tag), "vV")
	parsed, err := pep440.Parse(trimmed)
	if err != nil {
		c.invalid[tag] = struct{}{}
		return pep440.Version{}, false
	}
	c.parsed[tag] = parsed
	return parsed, true
}
