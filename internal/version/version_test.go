package version

import (
	"strings"
	"testing"
)

// setBuild overrides the ldflags variables for one test.
func setBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	v, c, d := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = v, c, d })
	Version, Commit, BuildDate = version, commit, date
}

func TestInfo(t *testing.T) {
	tests := []struct {
		commit string
		want   string
	}{
		{"unknown", "0.9.0"},
		{"", "0.9.0"},
		{"1234567", "0.9.0"},
		{"12345678", "0.9.0 (1234567)"},
		{"9f3c2e1d0b7a", "0.9.0 (9f3c2e1)"},
	}
	for _, tt := range tests {
		setBuild(t, "0.9.0", tt.commit, "unknown")
		if got := Info(); got != tt.want {
			t.Errorf("Info() with commit %q = %q, want %q", tt.commit, got, tt.want)
		}
	}
}

func TestFull(t *testing.T) {
	setBuild(t, "0.9.0", "9f3c2e1d0b7a", "2026-10-01T12:00:00Z")

	want := "cxlint version 0.9.0\nCommit: 9f3c2e1d0b7a\nBuilt: 2026-10-01T12:00:00Z"
	if got := Full(); got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}
}

func TestVersionIsSemver(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Fatalf("Version = %q, want major.minor.patch", Version)
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			t.Errorf("Version = %q has a non-numeric part %q", Version, p)
		}
	}
}

func TestCacheSalt(t *testing.T) {
	salts := map[string]string{}
	for _, build := range [][2]string{
		{"0.9.0", "aaaaaaa"},
		{"0.9.1", "aaaaaaa"},
		{"0.9.1", "bbbbbbb"},
	} {
		setBuild(t, build[0], build[1], "unknown")
		salt := CacheSalt()
		if !strings.HasPrefix(salt, "cxlint/") {
			t.Errorf("CacheSalt() = %q, want cxlint/ prefix", salt)
		}
		if prev, dup := salts[salt]; dup {
			t.Errorf("CacheSalt() = %q for both %s and %v", salt, prev, build)
		}
		salts[salt] = build[0] + "+" + build[1]
	}
}
