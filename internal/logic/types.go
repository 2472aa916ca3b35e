// Package logic contains pure input-conditioning logic for the binary inputs.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the debounced level of one input channel.
type State string

const (
	StateActive   State = "ACTIVE"
	StateInactive State = "INACTIVE"
)

// Transition is a debounced change of one channel.
type Transition struct {
	Time    time.Time
	Channel int
	From    State
	To      State
}

// ChannelState tracks debounce state for a single channel.
type ChannelState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input represents a single sample of all channels.
type Input struct {
	Values []bool // true = active line level
	Time   time.Time
}

// ChannelCounts tracks the transitions of one channel since startup.
type ChannelCounts struct {
	Active   int
	Inactive int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    []ChannelCounts
}
