package config

import (
	"github.com/spf13/viper"
)

// Default values
const (
	DefaultBuildDir  = "."
	DefaultCC        = "cc"
	DefaultCFlags    = "-O2 -fPIC -Wall"
	DefaultLDFlags   = "-shared"
	DefaultLongWidth = 64
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("build.dir", DefaultBuildDir)
	v.SetDefault("build.cc", DefaultCC)
	v.SetDefault("build.cflags", DefaultCFlags)
	v.SetDefault("build.ldflags", DefaultLDFlags)
	v.SetDefault("build.include_dirs", []string{})
	v.SetDefault("build.cc_version", "")
	v.SetDefault("build.show_times", false)

	v.SetDefault("codegen.long_width", DefaultLongWidth)

	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}

// BindEnvVars binds keys whose env names do not follow the automatic mapping
func BindEnvVars(v *viper.Viper) {
	// The conventional compiler variables are honoured when CGEN_BUILD_* is unset
	v.BindEnv("build.cc", "CGEN_BUILD_CC", "CC")
	v.BindEnv("build.cflags", "CGEN_BUILD_CFLAGS", "CFLAGS")
	v.BindEnv("build.ldflags", "CGEN_BUILD_LDFLAGS", "LDFLAGS")
}
