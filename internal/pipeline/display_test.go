package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayPath(t *testing.T) {
	root := "/work/examples/memos"
	tests := []struct {
		name       string
		modulePath string
		abs        string
		want       string
	}{
		{"dot slash kept", "./examples/memos", "/work/examples/memos/gen", "./examples/memos/gen"},
		{"plain relative", "examples/memos", "/work/examples/memos/gen", "examples/memos/gen"},
		{"absolute module path", "/work/examples/memos", "/work/examples/memos/gen", "/work/examples/memos/gen"},
		{"outside source root", "./examples/memos", "/elsewhere/gen", "/elsewhere/gen"},
		{"dot module path", ".", "/work/examples/memos/gen", "gen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), displayPath(filepath.FromSlash(tt.modulePath), filepath.FromSlash(root), filepath.FromSlash(tt.abs)))
		})
	}
}
