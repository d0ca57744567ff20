// Package shared provides common utility functions used across multiple
// packages in the asmwalk codebase.
package shared

import (
	"errors"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ErrorReason flattens an error into the single-line reason printed next
// to a failed node: the coded message followed by its cause, if any.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		message := strings.TrimSpace(builder.Msg)
		if cause := errors.Unwrap(builder); cause != nil {
			if detail := ErrorReason(cause); detail != "" && detail != message {
				message += ": " + detail
			}
		}
		return SingleLine(message)
	}
	return SingleLine(err.Error())
}

// SingleLine collapses line breaks so a message fits on one tree line.
func SingleLine(value string) string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	for i, field := range fields {
		fields[i] = strings.TrimSpace(field)
	}
	return strings.Join(fields, " ")
}

// NormalizeModuleName trims a module name for case-insensitive comparison.
func NormalizeModuleName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
