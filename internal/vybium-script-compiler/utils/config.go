// Package utils holds the compiler configuration and small shared helpers.
package utils

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultMaxStackDepth mirrors the Bitcoin-family interpreter limit on the
// combined stack size
const DefaultMaxStackDepth = 1000

// Config represents the configuration for a single compilation
type Config struct {
	// MaxStackDepth is the target VM's stack-height limit. A compilation
	// whose modeled high-water mark exceeds it fails rather than emit an
	// unrunnable script.
	MaxStackDepth int

	// AutoMove enables the liveness pass that compiles the last read of
	// a value as a move instead of a copy. Disabling it forces copies
	// everywhere and leaves dead values to scope-exit drops.
	AutoMove bool

	// Logger receives per-statement compile traces. Defaults to a
	// no-op logger so library use is silent.
	Logger zerolog.Logger
}

// DefaultConfig returns the default compilation configuration
func DefaultConfig() *Config {
	return &Config{
		MaxStackDepth: DefaultMaxStackDepth,
		AutoMove:      true,
		Logger:        zerolog.Nop(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxStackDepth <= 0 {
		return fmt.Errorf("max stack depth must be positive, got %d", c.MaxStackDepth)
	}
	return nil
}

// WithMaxStackDepth sets the target VM's stack-height limit
func (c *Config) WithMaxStackDepth(depth int) *Config {
	c.MaxStackDepth = depth
	return c
}

// WithAutoMove toggles the last-use move optimization
func (c *Config) WithAutoMove(enabled bool) *Config {
	c.AutoMove = enabled
	return c
}

// WithLogger sets the compile-trace logger
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = logger
	return c
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
