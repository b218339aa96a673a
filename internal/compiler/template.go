package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
)

// StringList accepts either a YAML scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// Plugin is one entry of the plugins list in buf.gen.yaml.
type Plugin struct {
	Name     string     `yaml:"name,omitempty"`
	Plugin   string     `yaml:"plugin,omitempty"`
	Remote   string     `yaml:"remote,omitempty"`
	Local    StringList `yaml:"local,omitempty"`
	Out      string     `yaml:"out"`
	Opt      StringList `yaml:"opt,omitempty"`
	Strategy string     `yaml:"strategy,omitempty"`
}

// Ref returns the plugin reference, whichever key declared it.
func (p Plugin) Ref() string {
	switch {
	case p.Plugin != "":
		return p.Plugin
	case p.Name != "":
		return p.Name
	case p.Remote != "":
		return p.Remote
	case len(p.Local) > 0:
		return p.Local[0]
	}
	return ""
}

// IsRemote reports whether the plugin is executed by a remote registry.
func (p Plugin) IsRemote() bool {
	if p.Remote != "" {
		return true
	}
	ref := p.Plugin
	if ref == "" {
		ref = p.Name
	}
	return strings.Contains(ref, "/")
}

// LocalBinary returns the executable a local plugin runs as, or "" for remote plugins.
func (p Plugin) LocalBinary() string {
	switch {
	case p.IsRemote():
		return ""
	case len(p.Local) > 0:
		return p.Local[0]
	case p.Plugin != "":
		return "protoc-gen-" + p.Plugin
	case p.Name != "":
		return "protoc-gen-" + p.Name
	}
	return ""
}

func (p Plugin) declaredKeys() int {
	n := 0
	for _, set := range []bool{p.Name != "", p.Plugin != "", p.Remote != "", len(p.Local) > 0} {
		if set {
			n++
		}
	}
	return n
}

// Template is a parsed, read-only generation config.
type Template struct {
	Path    string
	Version string
	Plugins []Plugin
	// OutputDirs are absolute plugin output directories in declaration order, deduplicated.
	OutputDirs []string
}

// PrimaryOutputDir returns the first plugin output directory.
func (t *Template) PrimaryOutputDir() string {
	if t == nil || len(t.OutputDirs) == 0 {
		return ""
	}
	return t.OutputDirs[0]
}

// Policy restricts which plugins a template may reference.
type Policy struct {
	// Allow lists permitted plugin references. Empty allows any.
	Allow []string
	// AllowRemote permits remote plugins.
	AllowRemote bool
}

// DefaultPolicy allows every plugin.
func DefaultPolicy() Policy { return Policy{AllowRemote: true} }

func (p Policy) check(idx int, pl Plugin) error {
	if pl.IsRemote() && !p.AllowRemote {
		return errors.InvalidConfigError("remote plugins are not allowed").
			WithContext("plugin", pl.Ref()).WithContext("index", idx).Build()
	}
	if len(p.Allow) > 0 && !slices.Contains(p.Allow, pl.Ref()) {
		return errors.InvalidConfigError("plugin is not in the allow list").
			WithContext("plugin", pl.Ref()).WithContext("index", idx).Build()
	}
	return nil
}

type templateDoc struct {
	Version string   `yaml:"version"`
	Plugins []Plugin `yaml:"plugins"`
}

// ParseTemplate reads and validates a buf.gen.yaml. Relative plugin out
// directories resolve against sourceRoot.
func ParseTemplate(path, sourceRoot string, policy Policy) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "read generation config").
			Fatal().WithContext("path", path).Build()
	}
	invalid := func(msg string) *errors.ErrorBuilder {
		return errors.InvalidConfigError(msg).WithContext("path", path)
	}

	var doc templateDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "invalid YAML in generation config").
			Fatal().WithContext("path", path).Build()
	}
	if doc.Version != "v1" && doc.Version != "v2" {
		return nil, invalid(fmt.Sprintf("generation config version must be v1 or v2, got %q", doc.Version)).Build()
	}
	if len(doc.Plugins) == 0 {
		return nil, invalid("generation config declares no plugins").Build()
	}

	tmpl := &Template{Path: path, Version: doc.Version, Plugins: doc.Plugins}
	for i, pl := range doc.Plugins {
		switch pl.declaredKeys() {
		case 0:
			return nil, invalid("plugin entry needs one of plugin, name, remote or local").WithContext("index", i).Build()
		case 1:
		default:
			return nil, invalid("plugin entry declares more than one of plugin, name, remote or local").WithContext("index", i).Build()
		}
		if strings.TrimSpace(pl.Out) == "" {
			return nil, invalid("plugin entry must specify out").WithContext("index", i).WithContext("plugin", pl.Ref()).Build()
		}
		if err := policy.check(i, pl); err != nil {
			return nil, err
		}
		out := pl.Out
		if !filepath.IsAbs(out) {
			out = filepath.Join(sourceRoot, out)
		}
		out = filepath.Clean(out)
		if !slices.Contains(tmpl.OutputDirs, out) {
			tmpl.OutputDirs = append(tmpl.OutputDirs, out)
		}
	}
	return tmpl, nil
}

// ModuleConfig is the subset of buf.yaml getbuf inspects.
type ModuleConfig struct {
	Version string   `yaml:"version"`
	Name    string   `yaml:"name,omitempty"`
	Deps    []string `yaml:"deps,omitempty"`
}

// ParseModuleConfig reads buf.yaml. A missing file is not_found; anything
// that is not a YAML mapping is invalid_config.
func ParseModuleConfig(path string) (*ModuleConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "buf.yaml not found").
			Fatal().WithContext("path", path).Build()
	}
	if info.IsDir() {
		return nil, errors.InvalidConfigError("buf.yaml must be a file").WithContext("path", path).Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "read buf.yaml").
			Fatal().WithContext("path", path).Build()
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "invalid YAML in buf.yaml").
			Fatal().WithContext("path", path).Build()
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return nil, errors.InvalidConfigError("buf.yaml must contain a YAML object").WithContext("path", path).Build()
	}
	var mc ModuleConfig
	if err := node.Decode(&mc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "decode buf.yaml").
			Fatal().WithContext("path", path).Build()
	}
	return &mc, nil
}
