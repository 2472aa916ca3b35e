package mqtt

import (
	"time"

	"github.com/sweeney/bi-sensor/internal/binaryinput"
)

// FakePublisher records published notifications for test assertions.
type FakePublisher struct {
	// Format selects the payload encoding used for recorded payloads.
	Format Format

	// Now stamps write events; defaults to time.Now.
	Now func() time.Time

	// COVs contains all COV notifications that were published.
	COVs []COVNotification

	// COVPayloads contains the encoded COV payloads.
	COVPayloads [][]byte

	// Events contains all property write events that were published.
	Events []binaryinput.Event

	// EventPayloads contains the encoded write event payloads.
	EventPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishCOV and PublishEvent.
	PublishError error

	// Offline makes PublishCOV return ErrBuffered without recording.
	Offline bool

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishCOV records the COV notification.
func (f *FakePublisher) PublishCOV(n COVNotification) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	if f.Offline {
		return ErrBuffered
	}

	payload, err := FormatCOVPayload(n, f.Format)
	if err != nil {
		return err
	}
	f.COVs = append(f.COVs, n)
	f.COVPayloads = append(f.COVPayloads, payload)
	return nil
}

// PublishEvent records the write event.
func (f *FakePublisher) PublishEvent(event binaryinput.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	payload, err := FormatEventPayload(event, now(), f.Format)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.EventPayloads = append(f.EventPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded notifications and injected errors.
func (f *FakePublisher) Reset() {
	f.COVs = nil
	f.COVPayloads = nil
	f.Events = nil
	f.EventPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Offline = false
	f.Connected = false
}
