package workspace

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// ignoredNames never count as written output.
var ignoredNames = map[string]struct{}{
	"__pycache__":   {},
	".mypy_cache":   {},
	".pytest_cache": {},
	".DS_Store":     {},
}

var ignoredExts = map[string]struct{}{
	".pyc": {},
}

// Snapshot maps slash-separated relative file paths to modification times.
type Snapshot map[string]time.Time

// TakeSnapshot records every regular file under dir. A missing dir yields an
// empty snapshot; unreadable entries are skipped.
func TakeSnapshot(dir string) Snapshot {
	snap := Snapshot{}
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		snap[filepath.ToSlash(rel)] = info.ModTime()
		return nil
	})
	return snap
}

// WrittenFiles returns files that are new or modified in after, sorted and
// excluding tool caches.
func WrittenFiles(before, after Snapshot) []string {
	var out []string
	for p, mtime := range after {
		if ignored(p) {
			continue
		}
		if prev, ok := before[p]; ok && prev.Equal(mtime) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func ignored(rel string) bool {
	if _, ok := ignoredExts[path.Ext(rel)]; ok {
		return true
	}
	for dir := rel; dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if _, ok := ignoredNames[path.Base(dir)]; ok {
			return true
		}
	}
	return false
}
