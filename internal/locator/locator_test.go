package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func genConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "buf.gen.yaml")
	writeFile(t, p, "version: v1\n")
	return p
}

func TestLocate_SingleModuleWithBufYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "buf.yaml"), "version: v1\n")
	writeFile(t, filepath.Join(root, "memos", "v1", "memo.proto"), `syntax = "proto3";`)

	ms, err := Locate(root, genConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []string{root}, ms.Roots)
	assert.True(t, ms.SingleModule())
	assert.True(t, ms.HasModuleConfig)
	assert.Nil(t, ms.RelativeRoots())
	assert.Equal(t, 1, ms.SchemaFiles)
}

func TestLocate_TopLevelGrouping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "users", "user.proto"), "")
	writeFile(t, filepath.Join(root, "billing", "v1", "invoice.proto"), "")
	writeFile(t, filepath.Join(root, "billing", "v1", "payment.proto"), "")
	writeFile(t, filepath.Join(root, "docs", "README.md"), "")
	writeFile(t, filepath.Join(root, ".git", "ignored.proto"), "")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "x.proto"), "")

	ms, err := Locate(root, genConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "billing"), filepath.Join(root, "users")}, ms.Roots)
	assert.Equal(t, []string{"billing", "users"}, ms.RelativeRoots())
	assert.Equal(t, 3, ms.SchemaFiles)
	assert.False(t, ms.SingleModule())
}

func TestLocate_DirectSchemaFilesMakeRootTheModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.proto"), "")
	writeFile(t, filepath.Join(root, "nested", "b.proto"), "")

	ms, err := Locate(root, genConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []string{root}, ms.Roots)
	assert.Equal(t, 2, ms.SchemaFiles)
}

func TestLocate_Errors(t *testing.T) {
	cfg := genConfig(t)
	empty := t.TempDir()
	writeFile(t, filepath.Join(empty, "README.md"), "")
	file := filepath.Join(t.TempDir(), "file.proto")
	writeFile(t, file, "")
	withProto := t.TempDir()
	writeFile(t, filepath.Join(withProto, "a.proto"), "")

	tests := []struct {
		name     string
		path     string
		config   string
		category errors.ErrorCategory
	}{
		{name: "missing path", path: filepath.Join(empty, "nope"), config: cfg, category: errors.CategoryNotFound},
		{name: "path is file", path: file, config: cfg, category: errors.CategoryNotFound},
		{name: "no schema files", path: empty, config: cfg, category: errors.CategoryNotFound},
		{name: "empty config path", path: withProto, config: "", category: errors.CategoryInvalidConfig},
		{name: "missing config", path: withProto, config: filepath.Join(empty, "buf.gen.yaml"), category: errors.CategoryInvalidConfig},
		{name: "config is directory", path: withProto, config: empty, category: errors.CategoryInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, err := Locate(tt.path, tt.config)
			require.Error(t, err)
			assert.Nil(t, ms)
			assert.Equal(t, tt.category, errors.GetCategory(err))
		})
	}
}

func TestLocate_ConfigPathIsAbsolute(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.proto"), "")
	writeFile(t, filepath.Join(root, "buf.gen.yaml"), "version: v1\n")

	t.Chdir(root)
	ms, err := Locate(".", "buf.gen.yaml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(ms.ConfigPath))
	assert.Equal(t, filepath.Join(root, "buf.gen.yaml"), ms.ConfigPath)
}
