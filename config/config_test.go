package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultBuildDir, cfg.Build.Dir)
	assert.Equal(t, DefaultCC, cfg.Build.CC)
	assert.Equal(t, DefaultCFlags, cfg.Build.CFlags)
	assert.Equal(t, DefaultLDFlags, cfg.Build.LDFlags)
	assert.Equal(t, DefaultLongWidth, cfg.Codegen.LongWidth)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
[build]
dir = "/tmp/libs"
cc = "clang"
cflags = "-O0 -g -fPIC"
include_dirs = ["/usr/include/ruby-3.2.0"]
cc_version = ">= 10"

[codegen]
long_width = 32
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/libs", cfg.Build.Dir)
	assert.Equal(t, "clang", cfg.Build.CC)
	assert.Equal(t, "-O0 -g -fPIC", cfg.Build.CFlags)
	assert.Equal(t, DefaultLDFlags, cfg.Build.LDFlags)
	assert.Equal(t, []string{"/usr/include/ruby-3.2.0"}, cfg.Build.IncludeDirs)
	assert.Equal(t, ">= 10", cfg.Build.CCVersion)
	assert.Equal(t, 32, cfg.Codegen.LongWidth)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty cc", func(c *Config) { c.Build.CC = "" }, "build.cc"},
		{"odd long width", func(c *Config) { c.Codegen.LongWidth = 48 }, "long_width"},
		{"negative verbosity", func(c *Config) { c.Log.Verbosity = -1 }, "verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Build:   BuildConfig{CC: "cc"},
				Codegen: CodegenConfig{LongWidth: 64},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("CGEN_BUILD_CC", "tcc")
	t.Setenv("CGEN_CODEGEN_LONG_WIDTH", "32")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tcc", cfg.Build.CC)
	assert.Equal(t, 32, cfg.Codegen.LongWidth)
}
