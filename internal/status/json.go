package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string            `json:"event,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Ready         bool              `json:"ready"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	MQTT          MQTTStatus        `json:"mqtt"`
	Notifications NotificationsJSON `json:"notifications"`
	Channels      []ChannelJSON     `json:"channels"`
	Instances     []InstanceJSON    `json:"instances"`
	Network       *NetworkJSON      `json:"network,omitempty"`
	Config        ConfigJSON        `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NotificationsJSON is the JSON representation of publish counters.
type NotificationsJSON struct {
	COV    int `json:"cov"`
	Writes int `json:"writes"`
	Failed int `json:"failed"`
}

// ChannelJSON is the transition count of one GPIO input.
type ChannelJSON struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// InstanceJSON is the JSON representation of one binary input instance.
type InstanceJSON struct {
	Instance     uint32 `json:"instance"`
	Name         string `json:"name"`
	PresentValue string `json:"present_value"`
	RawValue     string `json:"raw_value"`
	OutOfService bool   `json:"out_of_service"`
	Polarity     string `json:"polarity"`
	Changed      bool   `json:"changed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	Payload     string `json:"payload"`
	ConfigFile  string `json:"config_file,omitempty"`
	Instances   uint32 `json:"instances"`
}

func buildInner(snap Snapshot) StatusInner {
	channels := make([]ChannelJSON, len(snap.Channels))
	for i, c := range snap.Channels {
		channels[i] = ChannelJSON{Active: c.Active, Inactive: c.Inactive}
	}

	instances := make([]InstanceJSON, len(snap.Instances))
	for i, in := range snap.Instances {
		instances[i] = InstanceJSON{
			Instance:     in.Instance,
			Name:         in.Name,
			PresentValue: in.PresentValue.String(),
			RawValue:     in.RawValue.String(),
			OutOfService: in.OutOfService,
			Polarity:     in.Polarity.String(),
			Changed:      in.Changed,
		}
	}

	return StatusInner{
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Notifications: NotificationsJSON{
			COV:    snap.Notifications.COV,
			Writes: snap.Notifications.Writes,
			Failed: snap.Notifications.Failed,
		},
		Channels:  channels,
		Instances: instances,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Payload:     snap.Config.Payload,
			ConfigFile:  snap.Config.ConfigFile,
			Instances:   snap.Config.Instances,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
