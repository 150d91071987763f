package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"
)

// updateGolden rewrites golden files instead of comparing.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// Normalize converts line endings to \n, replaces the fixture root with
// a placeholder and guarantees a trailing newline.
func Normalize(fixture *FixtureContext, got string) []byte {
	s := strings.ReplaceAll(got, "\r\n", "\n")
	if fixture != nil && fixture.Root != "" {
		s = strings.ReplaceAll(s, fixture.Root, "$FIXTURE")
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return []byte(s)
}

// CompareGolden compares got against the golden file, failing with a diff on mismatch.
// If -update is set, the golden file is rewritten instead.
func CompareGolden(t *testing.T, fixture *FixtureContext, name string, got string) {
	t.Helper()

	normalized := Normalize(fixture, got)
	goldenPath := fixture.ExpectedPath(name)

	if *updateGolden {
		if err := os.WriteFile(goldenPath, normalized, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, normalized, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}
	expected = bytes.ReplaceAll(expected, []byte("\r\n"), []byte("\n"))

	if !bytes.Equal(normalized, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, lineDiff(string(expected), string(normalized), goldenPath), t.Name())
	}
}

// lineDiff lists the lines that differ at each position. Offense lists
// rarely shift, so a positional diff is enough to spot the change.
func lineDiff(expected, got, path string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	exp := strings.Split(strings.TrimSuffix(expected, "\n"), "\n")
	act := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	for i := 0; i < len(exp) || i < len(act); i++ {
		var e, a string
		if i < len(exp) {
			e = exp[i]
		}
		if i < len(act) {
			a = act[i]
		}
		if e == a {
			continue
		}
		fmt.Fprintf(&buf, "@@ line %d @@\n", i+1)
		if i < len(exp) {
			buf.WriteString("-" + e + "\n")
		}
		if i < len(act) {
			buf.WriteString("+" + a + "\n")
		}
	}
	return buf.String()
}
