package lint

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cxlint/internal/rubyparse"
)

// CollectFiles expands paths into the Ruby files to lint. Directories are
// walked recursively, skipping hidden directories; files named directly are
// kept whatever their extension. Paths matching an exclude glob are dropped.
// The result is sorted and free of duplicates.
func CollectFiles(paths, exclude []string) ([]string, error) {
	matchers := make([]*regexp.Regexp, 0, len(exclude))
	for _, g := range exclude {
		re, err := regexp.Compile("^" + globToRegex(filepath.ToSlash(g)) + "$")
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, re)
	}
	excluded := func(p string) bool {
		slashed := filepath.ToSlash(filepath.Clean(p))
		for _, re := range matchers {
			if re.MatchString(slashed) {
				return true
			}
		}
		return false
	}

	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !excluded(root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && (strings.HasPrefix(d.Name(), ".") || excluded(p)) {
					return filepath.SkipDir
				}
				return nil
			}
			if rubyparse.IsRubyFile(p) && !excluded(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

// globToRegex converts a glob to a regular expression. * stays within a
// path segment, ** crosses segments, and a leading **/ also matches nothing.
func globToRegex(glob string) string {
	var result strings.Builder

	i := 0
	for i < len(glob) {
		c := glob[i]

		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					result.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				result.WriteString(".*")
				i += 2
				continue
			}
			result.WriteString("[^/]*")
		case '?':
			result.WriteString("[^/]")
		case '.', '+', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			result.WriteByte('\\')
			result.WriteByte(c)
		default:
			result.WriteByte(c)
		}
		i++
	}

	return result.String()
}
