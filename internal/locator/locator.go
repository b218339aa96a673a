package locator

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
)

// SchemaExt is the file extension of schema files.
const SchemaExt = ".proto"

// ModuleConfigName is the module configuration file that marks a module root.
const ModuleConfigName = "buf.yaml"

// skipDirs are never descended into while scanning for schema files.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"__pycache__":  {},
}

// ModuleSet is the immutable result of Locate.
type ModuleSet struct {
	// SourceRoot is the absolute path of the located source directory.
	SourceRoot string
	// Roots are the absolute module root directories, sorted.
	Roots []string
	// ConfigPath is the absolute path of the generation config (unparsed).
	ConfigPath string
	// SchemaFiles counts the schema files found across all roots.
	SchemaFiles int
	// HasModuleConfig reports whether SourceRoot carries buf.yaml.
	HasModuleConfig bool
}

// ModuleConfigPath returns the path of buf.yaml in the source root.
func (ms *ModuleSet) ModuleConfigPath() string {
	return filepath.Join(ms.SourceRoot, ModuleConfigName)
}

// SingleModule reports whether the source root itself is the only module.
func (ms *ModuleSet) SingleModule() bool {
	return len(ms.Roots) == 1 && ms.Roots[0] == ms.SourceRoot
}

// RelativeRoots returns module roots relative to SourceRoot. A single-module
// set returns nil.
func (ms *ModuleSet) RelativeRoots() []string {
	if ms.SingleModule() {
		return nil
	}
	out := make([]string, 0, len(ms.Roots))
	for _, r := range ms.Roots {
		rel, err := filepath.Rel(ms.SourceRoot, r)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// Locate scans path for schema files and derives module roots.
//
// If path carries buf.yaml or holds schema files directly, path is the single
// module. Otherwise each top-level directory containing schema files becomes
// one module.
func Locate(path, configPath string) (*ModuleSet, error) {
	if path == "" {
		return nil, errors.NotFoundError("module path is empty").Build()
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "resolve module path").
			Fatal().WithContext("path", path).Build()
	}
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		return nil, errors.NotFoundError("module path does not exist").WithContext("path", path).Build()
	case err != nil:
		return nil, errors.WrapError(err, errors.CategoryNotFound, "stat module path").
			Fatal().WithContext("path", path).Build()
	case !info.IsDir():
		return nil, errors.NotFoundError("module path is not a directory").WithContext("path", path).Build()
	}

	cfg, err := validateConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	counts, direct, err := scan(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "scan module path").
			Fatal().WithContext("path", path).Build()
	}
	total := direct
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil, errors.NotFoundError("no .proto files found").WithContext("path", path).Build()
	}

	hasModCfg := fileExists(filepath.Join(root, ModuleConfigName))
	ms := &ModuleSet{
		SourceRoot:      root,
		ConfigPath:      cfg,
		SchemaFiles:     total,
		HasModuleConfig: hasModCfg,
	}
	if hasModCfg || direct > 0 {
		ms.Roots = []string{root}
		return ms, nil
	}
	for dir := range counts {
		ms.Roots = append(ms.Roots, filepath.Join(root, dir))
	}
	sort.Strings(ms.Roots)
	return ms, nil
}

func validateConfigPath(configPath string) (string, error) {
	if strings.TrimSpace(configPath) == "" {
		return "", errors.InvalidConfigError("generation config path is empty").Build()
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInvalidConfig, "resolve generation config path").
			Fatal().WithContext("path", configPath).Build()
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInvalidConfig, "generation config not found").
			Fatal().WithContext("path", configPath).Build()
	}
	if info.IsDir() {
		return "", errors.InvalidConfigError("generation config is a directory").WithContext("path", configPath).Build()
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInvalidConfig, "generation config not readable").
			Fatal().WithContext("path", configPath).Build()
	}
	_ = f.Close()
	return abs, nil
}

// scan returns schema file counts per top-level directory and the number of
// schema files directly inside root.
func scan(root string) (map[string]int, int, error) {
	counts := map[string]int{}
	direct := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != SchemaExt {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		top, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
		if !nested {
			direct++
			return nil
		}
		counts[top]++
		return nil
	})
	return counts, direct, err
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := skipDirs[name]
	return ok
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
