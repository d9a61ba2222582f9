package relay

import "sync/atomic"

// Flag is the shutdown signal shared by the two redirection channels. It is
// written at most once, by the channel configured with EndAll, and only ever
// transitions from unset to set. Readers may observe the old value for up to
// one poll timeout interval; that bounded staleness is by contract.
type Flag struct {
	done atomic.Bool
}

// NewFlag returns an unset flag.
func NewFlag() *Flag {
	return &Flag{}
}

// Set marks the flag. Further calls are no-ops.
func (f *Flag) Set() {
	f.done.Store(true)
}

// IsSet reports whether the flag has been set.
func (f *Flag) IsSet() bool {
	return f.done.Load()
}
