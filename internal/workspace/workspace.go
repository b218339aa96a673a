package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
)

// Manager prepares output directories beneath a project root.
type Manager struct {
	projectRoot string
	subdirs     []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithSubdirs sets subdirectories recreated inside every prepared output directory.
func WithSubdirs(dirs ...string) Option {
	return func(m *Manager) { m.subdirs = append(m.subdirs, dirs...) }
}

// NewManager creates a manager guarding cleans to projectRoot. An empty
// projectRoot falls back to the current working directory.
func NewManager(projectRoot string, opts ...Option) (*Manager, error) {
	if projectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "determine working directory").Build()
		}
		projectRoot = wd
	}
	abs, err := resolve(projectRoot)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "resolve project root").
			Fatal().WithContext("project_root", projectRoot).Build()
	}
	m := &Manager{projectRoot: abs}
	for _, opt := range opts {
		opt(m)
	}
	for _, d := range m.subdirs {
		if filepath.IsAbs(d) || strings.HasPrefix(filepath.Clean(d), "..") {
			return nil, errors.InvalidConfigError("workspace subdirectory must be relative").
				WithContext("subdir", d).Build()
		}
	}
	return m, nil
}

// ProjectRoot returns the resolved project root.
func (m *Manager) ProjectRoot() string { return m.projectRoot }

// Preparation describes what Prepare did to an output directory.
type Preparation struct {
	Dir     string
	Cleaned bool
	// Removed lists top-level entries removed by clean; directories end in "/".
	Removed []string
}

// Prepare makes outputDir ready for generation. When clean is true the
// directory contents are removed first. Calling Prepare twice with clean=true
// leaves the same empty state and returns no error.
func (m *Manager) Prepare(outputDir string, clean bool) (*Preparation, error) {
	if outputDir == "" {
		return nil, errors.InvalidConfigError("output directory is empty").Build()
	}
	dir, err := resolve(outputDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryPermissionDenied, "resolve output directory").
			Fatal().WithContext("output_dir", outputDir).Build()
	}

	prep := &Preparation{Dir: dir}
	if clean {
		if err := m.guard(dir); err != nil {
			return nil, err
		}
		removed, err := cleanContents(dir)
		if err != nil {
			return nil, err
		}
		prep.Cleaned = true
		prep.Removed = removed
		slog.Info("Cleaned output directory", logfields.OutputDir(dir), slog.Int("removed", len(removed)))
	}

	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	for _, sub := range m.subdirs {
		if err := ensureDir(filepath.Join(dir, sub)); err != nil {
			return nil, err
		}
	}
	if err := probeWritable(dir); err != nil {
		return nil, err
	}
	return prep, nil
}

// guard rejects clean targets that are the filesystem root, the project root,
// or outside the project root.
func (m *Manager) guard(dir string) error {
	build := func(reason string) error {
		return errors.UnsafeCleanError(reason).
			WithContext("output_dir", dir).
			WithContext("project_root", m.projectRoot).
			Build()
	}
	if filepath.Dir(dir) == dir {
		return build("refusing to clean the filesystem root")
	}
	if dir == m.projectRoot {
		return build("refusing to clean the project root")
	}
	rel, err := filepath.Rel(m.projectRoot, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return build("output directory is outside the project root")
	}
	return nil
}

// cleanContents removes every entry inside dir. A missing dir is a no-op.
func cleanContents(dir string) ([]string, error) {
	info, err := os.Lstat(dir)
	if os.IsNotExist(err) {
		slog.Debug("Clean target does not exist", logfields.OutputDir(dir))
		return nil, nil
	}
	if err != nil {
		return nil, permissionError(err, "inspect output directory", dir)
	}
	if !info.IsDir() {
		return nil, errors.PermissionDeniedError("output path exists and is not a directory").
			WithContext("output_dir", dir).Build()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, permissionError(err, "list output directory", dir)
	}
	removed := make([]string, 0, len(entries))
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return removed, permissionError(err, "remove "+e.Name(), dir)
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		removed = append(removed, name)
		slog.Debug("Removed", logfields.Path(p))
	}
	sort.Strings(removed)
	return removed, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.PermissionDeniedError("output path exists and is not a directory").
				WithContext("output_dir", dir).Build()
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return permissionError(err, "create output directory", dir)
	}
	return nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".getbuf-probe-*")
	if err != nil {
		return permissionError(err, "output directory is not writable", dir)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return permissionError(err, "remove write probe", dir)
	}
	return nil
}

func permissionError(err error, msg, dir string) error {
	return errors.WrapError(err, errors.CategoryPermissionDenied, msg).
		Fatal().WithContext("output_dir", dir).Build()
}

// resolve returns the absolute, symlink-evaluated form of p. Missing trailing
// components are kept as-is on top of the deepest existing ancestor.
func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", p, err)
	}
	var tail []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("eval symlinks %s: %w", cur, err)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}
