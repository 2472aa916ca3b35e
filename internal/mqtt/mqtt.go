// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/sweeney/bi-sensor/internal/bacapp"
	"github.com/sweeney/bi-sensor/internal/bacnet"
	"github.com/sweeney/bi-sensor/internal/binaryinput"
)

// TopicPrefix is the root of the per-object topics.
// Property writes go to <prefix>/<instance>/<property>, COV snapshots to
// <prefix>/<instance>/cov.
const TopicPrefix = "bacnet/binary-input"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "bacnet/bi-sensor/system"

// PropertyTopic returns the topic a write event for property is published on.
func PropertyTopic(instance uint32, property bacnet.PropertyID) string {
	return fmt.Sprintf("%s/%d/%s", TopicPrefix, instance, property)
}

// COVTopic returns the topic COV notifications for instance are published on.
func COVTopic(instance uint32) string {
	return fmt.Sprintf("%s/%d/cov", TopicPrefix, instance)
}

// ErrBuffered is returned by PublishCOV when the notification was queued for
// replay instead of delivered. The change is still pending for the caller.
var ErrBuffered = errors.New("mqtt: notification buffered until reconnect")

// Publisher publishes object notifications to MQTT.
type Publisher interface {
	// PublishCOV sends a change-of-value snapshot for one instance.
	// Returns error if publishing fails (should not crash the process),
	// or ErrBuffered if it was queued for a later connection.
	PublishCOV(n COVNotification) error

	// PublishEvent sends a property write event.
	PublishEvent(event binaryinput.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Format selects the encoding of COV and event payloads.
// System payloads are always JSON.
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "json"
}

// ParseFormat parses a --payload flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return FormatJSON, fmt.Errorf("unknown payload format %q (want json or cbor)", s)
	}
}

func (f Format) marshal(v any) ([]byte, error) {
	if f == FormatCBOR {
		return cbor.Marshal(v)
	}
	return json.Marshal(v)
}

// COVNotification is the value list of one instance at the time it was
// observed as changed.
type COVNotification struct {
	Timestamp time.Time
	Instance  uint32
	Values    []binaryinput.PropertyValue
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ValuePayload is one property value in a COV or event payload.
type ValuePayload struct {
	Property string `json:"property"`
	Type     string `json:"type"`
	Value    any    `json:"value"`
	Text     string `json:"text,omitempty"`
	Encoded  string `json:"encoded"`
}

// COVPayload represents the MQTT message payload for a COV notification.
type COVPayload struct {
	COV COVPayloadInner `json:"cov"`
}

// COVPayloadInner contains the COV notification details.
type COVPayloadInner struct {
	Timestamp string         `json:"timestamp"`
	Object    string         `json:"object"`
	Instance  uint32         `json:"instance"`
	Values    []ValuePayload `json:"values"`
}

// EventPayload represents the MQTT message payload for a property write.
type EventPayload struct {
	Write EventPayloadInner `json:"write"`
}

// EventPayloadInner contains the write event details.
type EventPayloadInner struct {
	Timestamp string       `json:"timestamp"`
	Object    string       `json:"object"`
	Instance  uint32       `json:"instance"`
	Value     ValuePayload `json:"value"`
}

func objectName(instance uint32) string {
	return bacapp.ObjectID{Type: bacnet.ObjectBinaryInput, Instance: instance}.String()
}

func buildValue(property bacnet.PropertyID, v bacapp.Value) (ValuePayload, error) {
	encoded, err := bacapp.Append(nil, v)
	if err != nil {
		return ValuePayload{}, fmt.Errorf("encode %s: %w", property, err)
	}

	out := ValuePayload{
		Property: property.String(),
		Type:     v.Tag.String(),
		Value:    v.Data,
		Encoded:  hex.EncodeToString(encoded),
	}
	switch d := v.Data.(type) {
	case bacapp.BitString:
		bits := make([]bool, d.Len())
		for i := range bits {
			bits[i] = d.Bit(i)
		}
		out.Value = bits
	case bacapp.ObjectID:
		out.Value = d.String()
	}

	if n, ok := v.AsEnumerated(); ok {
		switch property {
		case bacnet.PropPresentValue:
			out.Text = bacnet.BinaryPV(n).String()
		case bacnet.PropPolarity:
			out.Text = bacnet.Polarity(n).String()
		}
	}
	return out, nil
}

// FormatCOVPayload creates the payload for a COV notification.
func FormatCOVPayload(n COVNotification, f Format) ([]byte, error) {
	values := make([]ValuePayload, 0, len(n.Values))
	for _, pv := range n.Values {
		v, err := buildValue(pv.Property, pv.Value)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return f.marshal(COVPayload{
		COV: COVPayloadInner{
			Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
			Object:    objectName(n.Instance),
			Instance:  n.Instance,
			Values:    values,
		},
	})
}

// FormatEventPayload creates the payload for a property write event.
func FormatEventPayload(event binaryinput.Event, ts time.Time, f Format) ([]byte, error) {
	v, err := buildValue(event.Property, event.Value)
	if err != nil {
		return nil, err
	}
	return f.marshal(EventPayload{
		Write: EventPayloadInner{
			Timestamp: ts.UTC().Format(time.RFC3339),
			Object:    objectName(event.Instance),
			Instance:  event.Instance,
			Value:     v,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
