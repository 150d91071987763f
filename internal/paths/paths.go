// Package paths turns file paths into the forward-slash, project-relative
// form used in reports and the result cache.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Relative converts path to a forward-slash path relative to root.
// Symlinks are resolved on both sides; paths that do not exist are used as-is.
func Relative(path, root string) (string, error) {
	resolved, err := evalSymlinks(path)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalSymlinks(root)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func evalSymlinks(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// Within reports whether path lies under root.
func Within(path, root string) bool {
	rel, err := Relative(path, root)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// Display returns path as it should appear in a report: relative to root
// when it lies under root, otherwise unchanged apart from separators.
func Display(path, root string) string {
	if root == "" || !Within(path, root) {
		return filepath.ToSlash(path)
	}
	rel, err := Relative(path, root)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return rel
}
