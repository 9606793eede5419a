// Package config loads cgen settings: where libraries are built, which C
// compiler and flags to use, code generation widths and logging output.
//
// Sources, lowest to highest precedence: built-in defaults, the user file
// ~/.cgen/cgen.toml, the nearest cgen.toml found walking up from the working
// directory, then CGEN_* environment variables (CGEN_BUILD_CC, ...), which may
// also come from a .env file in the working directory.
package config

// Config represents the cgen configuration
type Config struct {
	Build   BuildConfig   `mapstructure:"build"`
	Codegen CodegenConfig `mapstructure:"codegen"`
	Log     LogConfig     `mapstructure:"log"`
}

// BuildConfig configures where generated libraries live and how they are compiled
type BuildConfig struct {
	Dir         string   `mapstructure:"dir"`          // parent of per-library directories
	CC          string   `mapstructure:"cc"`           // compiler executable
	CFlags      string   `mapstructure:"cflags"`       // shell-quoted compiler flags
	LDFlags     string   `mapstructure:"ldflags"`      // shell-quoted linker flags
	IncludeDirs []string `mapstructure:"include_dirs"` // extra -I directories (host runtime headers)
	CCVersion   string   `mapstructure:"cc_version"`   // semver constraint on `cc -dumpversion`, empty = any
	ShowTimes   bool     `mapstructure:"show_times"`   // log per-step durations at info level
}

// CodegenConfig configures generated code
type CodegenConfig struct {
	// LongWidth is the bit width of the native "long" scalar (32 or 64).
	// It is explicit so range checks do not depend on the build host.
	LongWidth int `mapstructure:"long_width"`
}

// LogConfig configures logger output
type LogConfig struct {
	JSON      bool `mapstructure:"json"`
	Verbosity int  `mapstructure:"verbosity"`
}
