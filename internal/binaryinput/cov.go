package binaryinput

import (
	"bytes"

	"github.com/sweeney/bi-sensor/internal/bacapp"
	"github.com/sweeney/bi-sensor/internal/bacnet"
)

// PropertyValue is one entry of a change-of-value notification.
type PropertyValue struct {
	Property   bacnet.PropertyID
	ArrayIndex uint32
	Value      bacapp.Value
}

// Changed reports whether the observable state of instance changed since
// the last ClearChanged.
func (o *Object) Changed(instance uint32) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.lookup(instance)
	return ok && e.changed
}

// ClearChanged resets the COV flag. Call it only after the notification
// carrying the change was delivered.
func (o *Object) ClearChanged(instance uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.lookup(instance); ok {
		e.changed = false
	}
}

// ClearChangedIf resets the COV flag only while instance still encodes to
// values. A change that lands after values were taken stays pending.
func (o *Object) ClearChangedIf(instance uint32, values []PropertyValue) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.lookup(instance)
	if !ok || !sameValues(e.valueList(), values) {
		return false
	}
	e.changed = false
	return true
}

func sameValues(a, b []PropertyValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Property != b[i].Property || a[i].ArrayIndex != b[i].ArrayIndex {
			return false
		}
		ea, errA := bacapp.Append(nil, a[i].Value)
		eb, errB := bacapp.Append(nil, b[i].Value)
		if errA != nil || errB != nil || !bytes.Equal(ea, eb) {
			return false
		}
	}
	return true
}

// EncodeValueList returns the COV notification values for instance:
// present-value then status-flags, always in that order.
func (o *Object) EncodeValueList(instance uint32) ([]PropertyValue, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.lookup(instance)
	if !ok {
		return nil, false
	}
	return e.valueList(), true
}

func (e *entry) valueList() []PropertyValue {
	return []PropertyValue{
		{
			Property:   bacnet.PropPresentValue,
			ArrayIndex: bacnet.ArrayAll,
			Value:      bacapp.Enumerated(uint32(e.presentValue())),
		},
		{
			Property:   bacnet.PropStatusFlags,
			ArrayIndex: bacnet.ArrayAll,
			Value:      bacapp.BitStringValue(statusFlags(e.outOfService)),
		},
	}
}

// InstanceSnapshot is a point-in-time copy of one instance.
type InstanceSnapshot struct {
	Instance     uint32
	Name         string
	PresentValue bacnet.BinaryPV
	RawValue     bacnet.BinaryPV
	OutOfService bool
	Polarity     bacnet.Polarity
	Changed      bool
}

// Snapshot copies every instance in instance order.
func (o *Object) Snapshot() []InstanceSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]InstanceSnapshot, 0, len(o.instances))
	for i := range o.instances {
		e := &o.instances[i]
		id, _ := o.IndexToInstance(uint32(i))
		out = append(out, InstanceSnapshot{
			Instance:     id,
			Name:         e.name,
			PresentValue: e.presentValue(),
			RawValue:     e.rawValue,
			OutOfService: e.outOfService,
			Polarity:     e.polarity,
			Changed:      e.changed,
		})
	}
	return out
}
