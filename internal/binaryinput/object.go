// Package binaryinput implements the BACnet Binary Input object: its
// per-instance state, the ReadProperty and WriteProperty handlers, and
// the change-of-value flag consumed by notification producers.
//
// This package has no I/O. Transport, instance routing and notification
// delivery belong to the caller.
package binaryinput

import (
	"fmt"
	"sync"

	"github.com/sweeney/bi-sensor/internal/bacnet"
)

// MaxNameLength is the longest object name, in octets, a write may set.
const MaxNameLength = 128

// entry is the stored state of one binary input.
type entry struct {
	// rawValue is the latched input state before polarity is applied.
	rawValue     bacnet.BinaryPV
	outOfService bool
	polarity     bacnet.Polarity
	name         string
	// changed is the COV flag; only the ClearChanged methods reset it.
	changed bool
}

// Object is the table of binary input instances. The table size is fixed
// at construction. All methods are safe for concurrent use.
type Object struct {
	mu        sync.RWMutex
	instances []entry

	strictDataTypes bool
}

// Option configures an Object.
type Option func(*Object)

// WithStrictDataTypes reports a write whose value has the wrong
// application tag as invalid-data-type instead of value-out-of-range.
func WithStrictDataTypes() Option {
	return func(o *Object) { o.strictDataTypes = true }
}

// New creates count binary inputs numbered 0..count-1. Every instance
// starts INACTIVE, in service, with normal polarity and the name
// "BINARY INPUT <n>". Counts beyond the instance-number space are clamped.
func New(count uint32, opts ...Option) *Object {
	if count > bacnet.MaxInstance+1 {
		count = bacnet.MaxInstance + 1
	}
	o := &Object{instances: make([]entry, count)}
	for i := range o.instances {
		o.instances[i] = entry{
			rawValue: bacnet.BinaryInactive,
			polarity: bacnet.PolarityNormal,
			name:     DefaultName(uint32(i)),
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultName is the name an instance is given at construction.
func DefaultName(instance uint32) string {
	return fmt.Sprintf("BINARY INPUT %d", instance)
}

// Count returns the number of instances.
func (o *Object) Count() uint32 {
	return uint32(len(o.instances))
}

// Valid reports whether instance exists.
func (o *Object) Valid(instance uint32) bool {
	return o.indexOf(instance) < o.Count()
}

// IndexToInstance returns the instance number stored at index.
func (o *Object) IndexToInstance(index uint32) (uint32, bool) {
	if index >= o.Count() {
		return 0, false
	}
	return index, true
}

// indexOf maps an instance number to its table index. It returns Count()
// for unknown instances; callers must treat that as "not found".
func (o *Object) indexOf(instance uint32) uint32 {
	if instance < o.Count() {
		return instance
	}
	return o.Count()
}

// lookup returns the stored state for instance. Callers hold o.mu.
func (o *Object) lookup(instance uint32) (*entry, bool) {
	idx := o.indexOf(instance)
	if idx >= o.Count() {
		return nil, false
	}
	return &o.instances[idx], true
}
