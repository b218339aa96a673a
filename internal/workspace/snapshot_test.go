package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrittenFiles(t *testing.T) {
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)
	before := Snapshot{
		"unchanged.py":  t0,
		"modified.py":   t0,
		"pkg/nested.py": t0,
	}
	after := Snapshot{
		"unchanged.py":                 t0,
		"modified.py":                  t1,
		"pkg/nested.py":                t0,
		"new.py":                       t1,
		"__pycache__/module.pyc":       t1,
		".mypy_cache/cache.json":       t1,
		".DS_Store":                    t1,
		"subdir/__pycache__/cached.py": t1,
		"stray.pyc":                    t1,
	}

	assert.Equal(t, []string{"modified.py", "new.py"}, WrittenFiles(before, after))
}

func TestTakeSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "a.py"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("b"), 0o600))

	snap := TakeSnapshot(dir)
	assert.Len(t, snap, 2)
	assert.Contains(t, snap, "pkg/a.py")
	assert.Contains(t, snap, "b.py")

	assert.Empty(t, TakeSnapshot(filepath.Join(dir, "missing")))
}

func TestSnapshotDiffAfterWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.py"), []byte("old"), 0o600))
	before := TakeSnapshot(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.py"), []byte("new"), 0o600))
	assert.Equal(t, []string{"new.py"}, WrittenFiles(before, TakeSnapshot(dir)))
}
