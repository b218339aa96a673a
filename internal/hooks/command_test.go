package hooks

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/locator"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("command hooks tests require a POSIX shell")
	}
}

func TestCommandSourceDiscover(t *testing.T) {
	src := NewCommandSource(map[string][]CommandSpec{
		"after-generate":  {{Name: "ruff", Run: []string{"ruff", "format", "gen"}}},
		"before-generate": {{Run: []string{"/usr/bin/buf", "lint"}}, {Name: "breaking", Run: []string{"buf", "breaking"}}},
	})

	regs, err := src.Discover()
	require.NoError(t, err)
	require.Len(t, regs, 3)
	assert.Equal(t, BeforeGenerate, regs[0].Stage)
	assert.Equal(t, "buf", regs[0].Hook.Name())
	assert.Equal(t, "breaking", regs[1].Hook.Name())
	assert.Equal(t, AfterGenerate, regs[2].Stage)
}

func TestCommandSourceDiscoverErrors(t *testing.T) {
	_, err := NewCommandSource(map[string][]CommandSpec{"after-lint": {{Run: []string{"true"}}}}).Discover()
	assert.Error(t, err)

	_, err = NewCommandSource(map[string][]CommandSpec{"before-clean": {{Name: "empty"}}}).Discover()
	assert.Error(t, err)
}

func TestCommandHookEnvironment(t *testing.T) {
	requireShell(t)
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "env.txt")

	hook := &CommandHook{
		Spec: CommandSpec{
			Name: "dump",
			Run:  []string{"sh", "-c", `echo "$GETBUF_STAGE $GETBUF_RUN_ID $GETBUF_EXIT_CODE $EXTRA $(pwd)" > "$OUT"`},
			Env:  map[string]string{"EXTRA": "x", "OUT": out},
		},
		stage: AfterGenerate,
	}
	pc := NewPipelineContext("run-1", nil)
	pc.Modules = &locator.ModuleSet{SourceRoot: src}
	pc.Invocation = &compiler.InvocationResult{ExitCode: 7}

	require.NoError(t, hook.Run(context.Background(), pc))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	wd, _ := filepath.EvalSymlinks(src)
	assert.Equal(t, "after-generate run-1 7 x "+wd+"\n", string(data))
}

func TestCommandHookFailureCarriesOutput(t *testing.T) {
	requireShell(t)
	hook := &CommandHook{Spec: CommandSpec{Name: "lint", Run: []string{"sh", "-c", "echo checking; echo 'memo.proto: bad field' >&2; exit 3"}}, stage: BeforeGenerate}
	pc := NewPipelineContext("run", nil)

	err := hook.Run(context.Background(), pc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memo.proto: bad field")
	assert.Contains(t, pc.GetString("hook.lint.output"), "checking")
}

func TestCommandHookExportsAbsoluteOutputDirs(t *testing.T) {
	requireShell(t)
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "env.txt")
	hook := &CommandHook{
		Spec: CommandSpec{
			Name: "dirs",
			Run:  []string{"sh", "-c", `printf '%s\n%s\n' "$GETBUF_OUTPUT_DIR" "$GETBUF_OUTPUT_DIRS" > "$OUT"`},
			Env:  map[string]string{"OUT": out},
		},
		stage: AfterGenerate,
	}
	pc := NewPipelineContext("run-1", nil)
	pc.Modules = &locator.ModuleSet{SourceRoot: src}
	pc.OutputDir = "./protos/gen"
	pc.OutputDirs = []string{filepath.Join(src, "gen"), filepath.Join(src, "docs")}

	require.NoError(t, hook.Run(context.Background(), pc))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	want := filepath.Join(src, "gen") + "\n" + filepath.Join(src, "gen") + string(os.PathListSeparator) + filepath.Join(src, "docs") + "\n"
	assert.Equal(t, want, string(data))
}

func TestPipelineContextPrimaryOutputDir(t *testing.T) {
	pc := NewPipelineContext("run", nil)
	assert.Empty(t, pc.PrimaryOutputDir())

	pc.Template = &compiler.Template{OutputDirs: []string{"/src/gen"}}
	assert.Equal(t, "/src/gen", pc.PrimaryOutputDir())

	pc.OutputDirs = []string{"/src/out", "/src/gen"}
	assert.Equal(t, "/src/out", pc.PrimaryOutputDir())
}
