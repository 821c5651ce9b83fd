package monitor

import (
	"github.com/icellan/wallet-toolbox/pkg/defs"
)

// Options adjusts the daemon's task parameters.
type Options struct {
	// PurgeParams sets the age thresholds of the purge task.
	PurgeParams defs.PurgeParams

	// ReorgWindow is how many recent blocks worth of proofs the reorg task
	// re-checks. Zero selects the task default.
	ReorgWindow uint32
}

// Option mutates the daemon Options.
type Option = func(*Options)

func defaultOptions() Options {
	return Options{
		PurgeParams: defs.DefaultPurgeParams(),
	}
}

// WithPurgeParams overrides the purge age thresholds.
func WithPurgeParams(params defs.PurgeParams) Option {
	return func(o *Options) {
		o.PurgeParams = params
	}
}

// WithReorgWindow overrides how deep the reorg check looks.
func WithReorgWindow(window uint32) Option {
	return func(o *Options) {
		o.ReorgWindow = window
	}
}
