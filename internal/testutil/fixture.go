// Package testutil provides golden-file helpers for tests that lint the
// Ruby fixtures under testdata/fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

// FixtureContext holds information about a loaded fixture set.
type FixtureContext struct {
	// Name is the fixture set (e.g. "ruby")
	Name string

	// Root is the absolute path to the fixture directory
	Root string

	// ExpectedDir is the path to the expected/ directory
	ExpectedDir string
}

// LoadFixture loads a fixture set, failing the test on error.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	fixtureDir := filepath.Join(fixturesRoot(t), name)
	if _, err := os.Stat(fixtureDir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", fixtureDir)
	}

	expectedDir := filepath.Join(fixtureDir, "expected")
	if err := os.MkdirAll(expectedDir, 0o755); err != nil {
		t.Fatalf("Failed to create expected directory: %v", err)
	}

	return &FixtureContext{
		Name:        name,
		Root:        fixtureDir,
		ExpectedDir: expectedDir,
	}
}

// ExpectedPath returns the path to the golden file for name.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name+".golden")
}

// Sources returns the .rb files of the fixture, sorted, relative to Root.
func (f *FixtureContext) Sources(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(f.Root)
	if err != nil {
		t.Fatalf("Failed to read fixture directory: %v", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".rb") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files
}

// ReadSource reads a fixture file relative to Root.
func (f *FixtureContext) ReadSource(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(f.Root, name))
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", name, err)
	}
	return data
}

// fixturesRoot returns the absolute path to testdata/fixtures/.
func fixturesRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// internal/testutil -> project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	root := filepath.Join(projectRoot, "testdata", "fixtures")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", root)
	}
	return root
}
