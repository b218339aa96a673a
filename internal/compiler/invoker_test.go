package compiler

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/locator"
)

// fakeCompiler writes an executable shell script named buf into a temp dir
// and returns a resolver pointing at it.
func fakeCompiler(t *testing.T, body string) ExecutableResolver {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "buf")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700)) // #nosec G306 -- test executable
	return ResolverFunc(func(name string) (string, error) {
		if name == "buf" {
			return path, nil
		}
		return "", stderrors.New("not found: " + name)
	})
}

func fixture(t *testing.T, groups ...string) (*locator.ModuleSet, *Template) {
	t.Helper()
	src := t.TempDir()
	if len(groups) == 0 {
		require.NoError(t, os.WriteFile(filepath.Join(src, "buf.yaml"), []byte("version: v1\n"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(src, "memo.proto"), []byte(`syntax = "proto3";`), 0o600))
	}
	for _, g := range groups {
		require.NoError(t, os.MkdirAll(filepath.Join(src, g), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(src, g, "x.proto"), []byte(`syntax = "proto3";`), 0o600))
	}
	cfg := writeTemplate(t, "version: v1\nplugins:\n  - name: python_betterproto\n    out: gen\n")
	ms, err := locator.Locate(src, cfg)
	require.NoError(t, err)
	tmpl, err := NewInvoker().Template(ms)
	require.NoError(t, err)
	return ms, tmpl
}

func TestArgs_SingleModule(t *testing.T) {
	ms, tmpl := fixture(t)
	base := filepath.Base(ms.SourceRoot)

	assert.Equal(t, filepath.Dir(ms.SourceRoot), WorkDir(ms))
	assert.Equal(t,
		[]string{"generate", base, "--template", tmpl.Path, "--output", base, "--debug"},
		Args(ms, tmpl, []string{"--debug"}))
}

func TestArgs_GroupedModules(t *testing.T) {
	ms, tmpl := fixture(t, "users", "billing")

	assert.Equal(t, ms.SourceRoot, WorkDir(ms))
	assert.Equal(t,
		[]string{"generate", ".", "--template", tmpl.Path, "--output", ".", "--path", "billing", "--path", "users"},
		Args(ms, tmpl, nil))
}

func TestInvoke_Success(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := fakeCompiler(t, `echo "generated $2"; echo "warn" >&2; mkdir -p "$2/gen" && touch "$2/gen/memo.py"`)
	var stream bytes.Buffer

	res, err := NewInvoker(WithResolver(resolver), WithStream(&stream)).Invoke(context.Background(), ms, tmpl)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "generated")
	assert.Equal(t, "warn\n", res.Stderr)
	assert.Contains(t, stream.String(), "generated")
	assert.Equal(t, "buf", res.Argv[0])
	assert.FileExists(t, filepath.Join(ms.SourceRoot, "gen", "memo.py"))
}

func TestInvoke_NonZeroExitIsNotAnError(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := fakeCompiler(t, `echo "memo.proto:3:1: syntax error" >&2; exit 100`)

	res, err := NewInvoker(WithResolver(resolver)).Invoke(context.Background(), ms, tmpl)
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, 100, res.ExitCode)
	assert.Contains(t, res.Stderr, "syntax error")
}

func TestInvoke_ToolNotFound(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := ResolverFunc(func(string) (string, error) { return "", stderrors.New("executable file not found in $PATH") })

	res, err := NewInvoker(WithResolver(resolver)).Invoke(context.Background(), ms, tmpl)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, errors.CategoryToolNotFound, errors.GetCategory(err))
}

func TestInvoke_CancellationKillsProcess(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := fakeCompiler(t, `sleep 30`)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res, err := NewInvoker(WithResolver(resolver)).Invoke(ctx, ms, tmpl)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryCancelled, errors.GetCategory(err))
	require.NotNil(t, res)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestInvoke_Timeout(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := fakeCompiler(t, `sleep 30`)

	_, err := NewInvoker(WithResolver(resolver), WithTimeout(100*time.Millisecond)).Invoke(context.Background(), ms, tmpl)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryCancelled, errors.GetCategory(err))
	assert.Contains(t, err.Error(), "timed out")
}

func TestInvoke_ExtraEnv(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := fakeCompiler(t, `echo "cache=$BUF_CACHE_DIR"`)

	res, err := NewInvoker(WithResolver(resolver), WithEnv(map[string]string{"BUF_CACHE_DIR": "/tmp/bufcache"})).
		Invoke(context.Background(), ms, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "cache=/tmp/bufcache", strings.TrimSpace(res.Stdout))
}

func TestInvoke_Deterministic(t *testing.T) {
	ms, tmpl := fixture(t)
	resolver := fakeCompiler(t, `mkdir -p "$2/gen" && printf 'class Memo: pass\n' > "$2/gen/memo.py"`)
	inv := NewInvoker(WithResolver(resolver))

	read := func() string {
		_, err := inv.Invoke(context.Background(), ms, tmpl)
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(ms.SourceRoot, "gen", "memo.py"))
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, read(), read())
}
