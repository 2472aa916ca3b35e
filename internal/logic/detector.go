package logic

import "time"

// Detector tracks state and detects debounced transitions on a fixed set
// of input channels.
type Detector struct {
	debounceDuration time.Duration
	channels         []ChannelState
	counts           []ChannelCounts
	baselined        bool
	startTime        time.Time
	lastHeartbeat    time.Time
}

// NewDetector creates a transition detector for n channels with the given
// debounce duration. The startTime is used for calculating uptime in
// heartbeat events.
func NewDetector(n int, debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		channels:         make([]ChannelState, n),
		counts:           make([]ChannelCounts, n),
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Channels returns the number of channels the detector tracks.
func (d *Detector) Channels() int {
	return len(d.channels)
}

// Process takes a new input sample and returns any transitions.
// Transitions are only returned after every channel has a baseline, and
// then in channel order. Missing values in a short sample read as inactive;
// extra values are ignored.
func (d *Detector) Process(input Input) []Transition {
	var transitions []Transition
	for i := range d.channels {
		state := StateInactive
		if i < len(input.Values) {
			state = boolToState(input.Values[i])
		}
		if tr := d.processChannel(&d.channels[i], state, input.Time); tr != nil {
			tr.Channel = i
			transitions = append(transitions, *tr)
		}
	}

	// Check if we've established baseline
	if !d.baselined {
		for _, ch := range d.channels {
			if !ch.Baselined {
				return nil // No events until baseline established
			}
		}
		d.baselined = true
		return nil
	}

	for _, tr := range transitions {
		if tr.To == StateActive {
			d.counts[tr.Channel].Active++
		} else {
			d.counts[tr.Channel].Inactive++
		}
	}
	return transitions
}

// processChannel handles debounce logic for a single channel.
// Returns the transition if one occurred, nil otherwise.
func (d *Detector) processChannel(ch *ChannelState, newState State, now time.Time) *Transition {
	// First time seeing this channel
	if !ch.Baselined {
		if ch.Pending == "" {
			// Start observing
			ch.Pending = newState
			ch.PendingSince = now
			return nil
		}
		if ch.Pending != newState {
			// State changed during baseline, restart
			ch.Pending = newState
			ch.PendingSince = now
			return nil
		}
		// Check if debounce period has passed
		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return nil
	}

	// Already baselined - detect transitions
	if newState == ch.Stable {
		// No change from stable state, clear any pending
		ch.Pending = ""
		return nil
	}

	// State differs from stable
	if ch.Pending != newState {
		// New pending state
		ch.Pending = newState
		ch.PendingSince = now
		return nil
	}

	// Same pending state, check debounce
	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		from := ch.Stable
		ch.Stable = newState
		ch.Pending = ""
		return &Transition{Time: now, From: from, To: newState}
	}
	return nil
}

func boolToState(b bool) State {
	if b {
		return StateActive
	}
	return StateInactive
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the current stable state of every channel.
func (d *Detector) CurrentState() []State {
	out := make([]State, len(d.channels))
	for i, ch := range d.channels {
		out[i] = ch.Stable
	}
	return out
}

// Counts returns a copy of the per-channel transition counts.
func (d *Detector) Counts() []ChannelCounts {
	out := make([]ChannelCounts, len(d.counts))
	copy(out, d.counts)
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if !d.baselined {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}
	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.Counts(),
	}
}
