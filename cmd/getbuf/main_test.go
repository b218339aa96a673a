package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBuf = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "1.47.2"
  exit 0
fi
if [ -n "$FAKE_BUF_FAIL" ]; then
  echo "memos/v1/memo.proto:3:1: syntax error" >&2
  exit "$FAKE_BUF_FAIL"
fi
mkdir -p "$2/gen/memos/v1"
echo "# generated" > "$2/gen/memos/v1/__init__.py"
echo "generated $2"
`

// setupProject copies the examples into a temp project, puts a fake buf on
// PATH and changes into the project.
func setupProject(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	root := t.TempDir()
	require.NoError(t, copyTree(filepath.Join("..", "..", "examples"), filepath.Join(root, "examples")))

	bin := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o750))
	// #nosec G306 -- test executable
	require.NoError(t, os.WriteFile(filepath.Join(bin, "buf"), []byte(fakeBuf), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Chdir(root)
	return root
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o600)
	})
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestGenMemosEndToEnd(t *testing.T) {
	root := setupProject(t)
	stale := filepath.Join(root, "examples", "memos", "gen", "stale.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	code, out, stderr := execute(t, "gen", "./examples/memos", "./examples/buf.gen.yaml", "--clean", "--json")
	require.Equal(t, 0, code, stderr)

	doc := decode(t, out)
	assert.Equal(t, true, doc["success"])
	assert.EqualValues(t, 0, doc["exitCode"])
	assert.Equal(t, "./examples/memos/gen", doc["outputDir"])
	assert.Equal(t, "1.47.2", doc["toolVersion"])
	assert.Contains(t, doc["writtenFiles"], "gen/memos/v1/__init__.py")
	assert.Contains(t, doc["cleanedDirs"], "./examples/memos/gen")

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(root, "examples", "memos", "gen", "memos", "v1", "__init__.py"))
}

func TestGenCompilerFailureUsesCompilerExitCode(t *testing.T) {
	setupProject(t)
	t.Setenv("FAKE_BUF_FAIL", "3")

	code, out, _ := execute(t, "gen", "./examples/memos", "./examples/buf.gen.yaml", "--json")
	assert.Equal(t, 3, code)

	doc := decode(t, out)
	assert.Equal(t, false, doc["success"])
	assert.Contains(t, doc["stderr"], "syntax error")
	errDoc, ok := doc["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "compiler_failed", errDoc["category"])
}

func TestGenToolNotFound(t *testing.T) {
	root := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "getbuf.yaml"), []byte("compiler:\n  binary: getbuf-missing-compiler\n"), 0o600))

	code, out, _ := execute(t, "gen", "./examples/memos", "./examples/buf.gen.yaml", "--json")
	assert.Equal(t, 127, code)
	assert.Equal(t, "tool_not_found", decode(t, out)["error"].(map[string]any)["category"])
}

func TestGenUnsafeCleanOutsideProject(t *testing.T) {
	root := setupProject(t)
	outside := t.TempDir()
	tmpl := filepath.Join(root, "outside.gen.yaml")
	require.NoError(t, os.WriteFile(tmpl, []byte("version: v2\nplugins:\n  - local: protoc-gen-python_betterproto\n    out: "+outside+"\n"), 0o600))

	code, out, _ := execute(t, "gen", "./examples/memos", tmpl, "--clean", "--json")
	assert.Equal(t, 5, code)
	assert.Equal(t, "unsafe_clean", decode(t, out)["error"].(map[string]any)["category"])
}

func TestGenMissingModule(t *testing.T) {
	setupProject(t)
	code, out, _ := execute(t, "gen", "./examples/nope", "./examples/buf.gen.yaml", "--json")
	assert.Equal(t, 2, code)
	assert.Equal(t, "not_found", decode(t, out)["error"].(map[string]any)["category"])
}

func TestGenTextOutput(t *testing.T) {
	setupProject(t)
	code, out, _ := execute(t, "gen", "./examples/memos", "./examples/buf.gen.yaml")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "./examples/memos/gen")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n\n"), "report followed by a blank line")
}

func TestGenCommandHookReceivesOutputDir(t *testing.T) {
	root := setupProject(t)
	marker := filepath.Join(root, "hook-ran")
	script := filepath.Join(root, "check-output.sh")
	// #nosec G306 -- test executable
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ntest -f \"$GETBUF_OUTPUT_DIR/memos/v1/__init__.py\" && touch \"$MARKER\"\n"), 0o755))
	cfg := "hooks:\n  after-generate:\n    - name: check-output\n      run: [sh, " + script + "]\n      env:\n        MARKER: " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "getbuf.yaml"), []byte(cfg), 0o600))

	code, out, stderr := execute(t, "gen", "./examples/memos", "./examples/buf.gen.yaml", "--json")
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, decode(t, out)["hookFailures"])
	assert.FileExists(t, marker)
}

func TestCleanCommand(t *testing.T) {
	root := setupProject(t)
	gen := filepath.Join(root, "examples", "memos", "gen")
	require.NoError(t, os.MkdirAll(filepath.Join(gen, "pkg"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(gen, "pkg", "a.py"), []byte("x"), 0o600))

	code, out, _ := execute(t, "clean", "./examples/memos", "./examples/buf.gen.yaml", "--json")
	require.Equal(t, 0, code)
	assert.Equal(t, true, decode(t, out)["success"])
	entries, err := os.ReadDir(gen)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryListsRuns(t *testing.T) {
	setupProject(t)
	code, _, _ := execute(t, "gen", "./examples/memos", "./examples/buf.gen.yaml", "--json")
	require.Equal(t, 0, code)

	code, out, stderr := execute(t, "history")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "./examples/memos")
	assert.Contains(t, out, "success")
}

func TestVersionCommand(t *testing.T) {
	setupProject(t)
	code, out, _ := execute(t, "version", "--template", "./examples/buf.gen.yaml")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "getbuf ")
	assert.Contains(t, out, "buf 1.47.2")
	assert.Contains(t, out, "protoc-gen-python_betterproto unknown")
}

func TestUsageError(t *testing.T) {
	code, _, stderr := execute(t, "gen")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "getbuf: error")
}
