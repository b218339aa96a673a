package compiler

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// probeTimeout bounds each best-effort version probe.
const probeTimeout = 2 * time.Second

var semverRe = regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.\-]+)?)`)

// ToolVersion returns the compiler version, or "" when it cannot be determined.
func (i *Invoker) ToolVersion(ctx context.Context) string {
	return i.probe(ctx, i.binary)
}

// PluginVersion returns the version of the first plugin in tmpl. Local plugins
// are probed with --version; remote references report their pinned tag.
func (i *Invoker) PluginVersion(ctx context.Context, tmpl *Template) string {
	if tmpl == nil || len(tmpl.Plugins) == 0 {
		return ""
	}
	pl := tmpl.Plugins[0]
	if pl.IsRemote() {
		if _, tag, ok := strings.Cut(pl.Ref(), ":"); ok {
			return tag
		}
		return ""
	}
	return i.probe(ctx, pl.LocalBinary())
}

func (i *Invoker) probe(ctx context.Context, name string) string {
	if name == "" {
		return ""
	}
	path, err := i.resolver.Resolve(name)
	if err != nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	// #nosec G204 -- path comes from the resolver
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return ""
	}
	return ParseVersion(string(out))
}

// ParseVersion extracts a semantic version from probe output. Without a
// match the trimmed first line is returned.
func ParseVersion(output string) string {
	if m := semverRe.FindStringSubmatch(output); len(m) >= 2 {
		return m[1]
	}
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(line)
}

// EnvSubset returns the BUF_* variables of the current environment.
func EnvSubset() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, "BUF_") {
			out[k] = v
		}
	}
	return out
}
