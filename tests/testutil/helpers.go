// Package testutil holds helpers shared by the asmwalk integration and e2e
// tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the repository root. Tests under tests/<kind> run two
// levels below it.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// SampleModule returns the path of a manifest from fixtures/sample and
// fails the test when it does not exist.
func SampleModule(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(RepoRoot(t), "fixtures", "sample", name+".module.yaml")
	require.FileExists(t, path)
	return path
}
