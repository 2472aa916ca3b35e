// Package status provides a thread-safe status tracker for the bi-sensor daemon.
// It is read by HTTP handlers and by the system events published to MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/bi-sensor/internal/binaryinput"
	"github.com/sweeney/bi-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Payload     string
	ConfigFile  string
	Instances   uint32
}

// InstanceSource provides the per-instance view of the object.
// *binaryinput.Object satisfies it.
type InstanceSource interface {
	Snapshot() []binaryinput.InstanceSnapshot
}

// Notifications counts what the daemon has published since startup.
type Notifications struct {
	COV    int
	Writes int
	Failed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Baselined     bool
	Channels      []logic.ChannelCounts
	Instances     []binaryinput.InstanceSnapshot
	Notifications Notifications
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	src  InstanceSource
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// src may be nil, in which case snapshots carry no instances.
func NewTracker(startTime time.Time, cfg Config, src InstanceSource) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		src: src,
		now: time.Now,
	}
}

// Update sets the input baseline status and per-channel transition counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(baselined bool, counts []logic.ChannelCounts) {
	t.mu.Lock()
	t.snap.Baselined = baselined
	t.snap.Channels = append([]logic.ChannelCounts(nil), counts...)
	t.mu.Unlock()
}

// RecordCOV counts a COV notification publish attempt.
func (t *Tracker) RecordCOV(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.Notifications.Failed++
	} else {
		t.snap.Notifications.COV++
	}
	t.mu.Unlock()
}

// RecordWrite counts a write event publish attempt.
func (t *Tracker) RecordWrite(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.Notifications.Failed++
	} else {
		t.snap.Notifications.Writes++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = append([]logic.ChannelCounts(nil), t.snap.Channels...)
	t.mu.RUnlock()

	if t.src != nil {
		s.Instances = t.src.Snapshot()
	}
	s.Now = t.now()
	return s
}
