// Package testutil provides golden-file helpers for table tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixtureContext is one directory under testdata/.
type FixtureContext struct {
	// Name is the directory name (e.g. "aliases")
	Name string

	// Root is the absolute path to the fixture directory
	Root string
}

// LoadFixture locates testdata/<name>, failing the test when it is missing.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	dir := filepath.Join(testdataRoot(t), name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", dir)
	}
	return &FixtureContext{Name: name, Root: dir}
}

// Path returns the path of a file within the fixture.
func (f *FixtureContext) Path(file string) string {
	return filepath.Join(f.Root, file)
}

// ReadFile reads a fixture file, failing the test on error.
func (f *FixtureContext) ReadFile(t *testing.T, file string) []byte {
	t.Helper()

	data, err := os.ReadFile(f.Path(file))
	if err != nil {
		t.Fatalf("Failed to read fixture file: %v", err)
	}
	return data
}

// testdataRoot returns the absolute path to the repository's testdata/.
func testdataRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// internal/testutil -> project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	return filepath.Join(projectRoot, "testdata")
}
