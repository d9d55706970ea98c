// Package cli holds the logic behind the strand commands, kept apart from
// cobra wiring so it can be tested.
package cli

import (
	"github.com/aretw0/strand/internal/config"
)

// RunOptions contains the configuration shared by the commands.
type RunOptions struct {
	Dir      string
	Unit     string
	Debug    bool
	JSON     bool
	Quiet    bool
	LogLevel string
	Store    string
	Config   config.Config
}

// Resolve merges flag values over the project config.
// Empty flags leave the config untouched.
func (o RunOptions) Resolve() config.Config {
	cfg := o.Config
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if o.Store != "" {
		cfg.Store.Backend = o.Store
	}
	return cfg
}
