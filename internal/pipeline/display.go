package pipeline

import (
	"path/filepath"
	"strings"
)

// displayPath renders abs relative to the module path as the caller typed it.
// A leading "./" on modulePath is preserved; paths outside the source root
// stay absolute.
func displayPath(modulePath, sourceRoot, abs string) string {
	rel, err := filepath.Rel(sourceRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	if filepath.IsAbs(modulePath) {
		return abs
	}
	out := filepath.Join(modulePath, rel)
	if strings.HasPrefix(modulePath, "."+string(filepath.Separator)) && !strings.HasPrefix(out, ".") {
		out = "." + string(filepath.Separator) + out
	}
	return out
}

func relativeTo(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
