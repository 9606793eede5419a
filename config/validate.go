package config

import "github.com/teranos/cgen/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Build.CC == "" {
		return errors.New("build.cc cannot be empty")
	}

	switch c.Codegen.LongWidth {
	case 32, 64:
	default:
		return errors.Newf("codegen.long_width must be 32 or 64, got %d", c.Codegen.LongWidth)
	}

	if c.Log.Verbosity < 0 {
		return errors.Newf("log.verbosity must be >= 0, got %d", c.Log.Verbosity)
	}

	return nil
}
