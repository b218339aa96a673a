package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"1.47.2\n", "1.47.2"},
		{"buf version v1.30.0", "1.30.0"},
		{"protoc-gen-python_betterproto 2.0.0-beta.7", "2.0.0-beta.7"},
		{"dev\nmore", "dev"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVersion(tt.output), "output %q", tt.output)
	}
}

func TestToolVersion(t *testing.T) {
	resolver := fakeCompiler(t, `echo "1.47.2"`)
	assert.Equal(t, "1.47.2", NewInvoker(WithResolver(resolver)).ToolVersion(context.Background()))

	missing := NewInvoker(WithBinary("does-not-exist"), WithResolver(resolver))
	assert.Empty(t, missing.ToolVersion(context.Background()))
}

func TestPluginVersion_Remote(t *testing.T) {
	tmpl := &Template{Plugins: []Plugin{{Remote: "buf.build/grpc/go:v1.5.1", Out: "gen"}}}
	assert.Equal(t, "v1.5.1", NewInvoker().PluginVersion(context.Background(), tmpl))
	assert.Empty(t, NewInvoker().PluginVersion(context.Background(), nil))
}

func TestEnvSubset(t *testing.T) {
	t.Setenv("BUF_TOKEN", "secret")
	t.Setenv("NOT_BUF", "x")
	env := EnvSubset()
	assert.Equal(t, "secret", env["BUF_TOKEN"])
	assert.NotContains(t, env, "NOT_BUF")
}
