package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultModule, cfg.Module)
	assert.Equal(t, EmitIR, cfg.Emit)
	assert.Equal(t, DefaultPasses, cfg.Passes)
	assert.False(t, cfg.Optimize)
	assert.Empty(t, cfg.OutputPath())
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	data := []byte(`
module: demo/kernels
emit: object
optimize: true
passes: default<O3>
target:
  triple: x86_64-unknown-linux-gnu
  cpu: x86-64-v3
`)
	cfg, err := Parse(data, "phi.yaml")
	require.NoError(t, err)
	assert.Equal(t, "demo/kernels", cfg.Module)
	assert.Equal(t, EmitObject, cfg.Emit)
	assert.True(t, cfg.Optimize)
	assert.Equal(t, "default<O3>", cfg.Passes)
	assert.Equal(t, "x86_64-unknown-linux-gnu", cfg.Target.Triple)
	assert.Equal(t, "x86-64-v3", cfg.Target.CPU)
	assert.Empty(t, cfg.Target.Features)
	assert.Equal(t, DefaultObject, cfg.OutputPath())
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil, "phi.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{"bad yaml", "module: [", "parsing phi.yaml"},
		{"unknown emit", "emit: wasm", "unknown emit mode"},
		{"bad module", "module: Demo", "uppercase"},
		{"wrong field type", "optimize: maybe", "parsing phi.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "phi.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestUnknownEmitIsWrapped(t *testing.T) {
	cfg := Default()
	cfg.Emit = "bitcode"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownEmit)
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := Find(nested)
	require.NoError(t, err)
	assert.Empty(t, path)

	want := filepath.Join(root, FileName)
	require.NoError(t, os.WriteFile(want, []byte("emit: asm\noutput: out.s\n"), 0o644))

	path, err = Find(nested)
	require.NoError(t, err)
	assert.Equal(t, want, path)

	cfg, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, EmitAsm, cfg.Emit)
	assert.Equal(t, "out.s", cfg.OutputPath())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidateModuleName(t *testing.T) {
	tests := []struct {
		name    string
		module  string
		wantErr bool
		errMsg  string
	}{
		{"simple", "math", false, ""},
		{"default", DefaultModule, false, ""},
		{"with dot", "foo.bar", false, ""},
		{"with slash", "foo/bar", false, ""},
		{"with hyphen", "foo-bar", false, ""},
		{"path style", "github.com/user/kernels", false, ""},
		{"numeric segment", "pkg/v2", false, ""},
		{"leading underscore", "_foo", false, ""},

		{"empty", "", true, "cannot be empty"},
		{"uppercase", "MyPkg", true, "uppercase"},
		{"double underscore", "my__pkg", true, "double underscore"},
		{"trailing underscore", "pkg_", true, "ends with underscore"},
		{"underscore segment", "foo/_/bar", true, "ends with underscore"},
		{"double slash", "foo//bar", true, "empty segment"},
		{"trailing dot", "foo.", true, "empty segment"},
		{"leading hyphen", "-foo", true, "empty segment"},
		{"space", "my pkg", true, "invalid character"},
		{"unicode", "пакет", true, "invalid character"},
		{"reserved", "con", true, "Windows reserved"},
		{"reserved with extension", "nul.txt", true, "Windows reserved"},
		{"reserved in path", "pkg/lpt1/sub", true, "Windows reserved"},
		{"reserved is case insensitive", "pkg/com1", true, "Windows reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleName(tt.module)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
