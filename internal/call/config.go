package call

import (
	"time"

	"github.com/vovakirdan/wirecall/internal/media"
)

// Config holds orchestrator timings and thresholds.
type Config struct {
	// InviteTimeout bounds ON_CALL and BE_CALLED.
	InviteTimeout time.Duration
	// StreamTimeout bounds CALLING without any remote stream.
	StreamTimeout time.Duration
	// LeaveGrace is waited between leaving the room and resetting state.
	LeaveGrace time.Duration
	// PoorNetworkLevel is the quality level from which "network is poor" is shown.
	PoorNetworkLevel int
	// PoorNetworkNotice is how long the poor network notice stays.
	PoorNetworkNotice time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		InviteTimeout:     120 * time.Second,
		StreamTimeout:     15 * time.Second,
		LeaveGrace:        time.Second,
		PoorNetworkLevel:  media.QualityPoor,
		PoorNetworkNotice: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InviteTimeout <= 0 {
		c.InviteTimeout = d.InviteTimeout
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = d.StreamTimeout
	}
	if c.LeaveGrace < 0 {
		c.LeaveGrace = 0
	}
	if c.PoorNetworkLevel <= 0 {
		c.PoorNetworkLevel = d.PoorNetworkLevel
	}
	if c.PoorNetworkNotice <= 0 {
		c.PoorNetworkNotice = d.PoorNetworkNotice
	}
	return c
}
