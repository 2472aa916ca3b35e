package binaryinput

import (
	"unicode"

	"github.com/sweeney/bi-sensor/internal/bacapp"
	"github.com/sweeney/bi-sensor/internal/bacnet"
)

// ReadPropertyData is one ReadProperty request routed to this object.
type ReadPropertyData struct {
	ObjectInstance uint32
	Property       bacnet.PropertyID
	// ArrayIndex selects one array element. nil or bacnet.ArrayAll asks
	// for the whole value.
	ArrayIndex *uint32
}

// WritePropertyData is one WriteProperty request routed to this object.
type WritePropertyData struct {
	ObjectInstance uint32
	Property       bacnet.PropertyID
	ArrayIndex     *uint32
	// Value is the application-tagged encoding of the new value.
	Value []byte
	// Priority is accepted for completeness; binary inputs are not commandable.
	Priority uint8
}

// Event describes a successful write that notification publishers may
// forward. WriteProperty returns events instead of publishing them.
type Event struct {
	Instance uint32
	Property bacnet.PropertyID
	Value    bacapp.Value
}

func wholeValue(idx *uint32) bool {
	return idx == nil || *idx == bacnet.ArrayAll
}

// propertyHandler encodes and, when writable, applies one property.
// A nil write means the property is read-only.
type propertyHandler struct {
	read  func(dst []byte, instance uint32, e *entry) []byte
	write func(o *Object, instance uint32, e *entry, v bacapp.Value) ([]Event, error)
}

var propertyTable = map[bacnet.PropertyID]propertyHandler{
	bacnet.PropObjectIdentifier: {read: readObjectIdentifier},
	bacnet.PropObjectName:       {read: readName, write: writeName},
	bacnet.PropDescription:      {read: readName},
	bacnet.PropObjectType:       {read: readObjectType},
	bacnet.PropPresentValue:     {read: readPresentValue, write: writePresentValue},
	bacnet.PropStatusFlags:      {read: readStatusFlags},
	bacnet.PropEventState:       {read: readEventState},
	bacnet.PropOutOfService:     {read: readOutOfService, write: writeOutOfService},
	bacnet.PropPolarity:         {read: readPolarity, write: writePolarity},
}

// ReadProperty encodes the requested property as application data.
func (o *Object) ReadProperty(rp ReadPropertyData) ([]byte, error) {
	return o.AppendProperty(nil, rp)
}

// AppendProperty is ReadProperty appending to dst. On error dst is
// returned unchanged.
func (o *Object) AppendProperty(dst []byte, rp ReadPropertyData) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	e, ok := o.lookup(rp.ObjectInstance)
	if !ok {
		return dst, bacnet.ErrUnknownObject
	}
	h, ok := propertyTable[rp.Property]
	if !ok {
		return dst, bacnet.ErrUnknownProperty
	}
	// None of this object's properties are arrays.
	if !wholeValue(rp.ArrayIndex) {
		return dst, bacnet.ErrPropertyNotAnArray
	}
	return h.read(dst, rp.ObjectInstance, e), nil
}

// WriteProperty decodes, validates and applies a write. A rejected write
// leaves the instance unchanged. The returned events describe what a
// notification publisher should announce.
func (o *Object) WriteProperty(wp WritePropertyData) ([]Event, error) {
	if !o.Valid(wp.ObjectInstance) {
		return nil, bacnet.ErrUnknownObject
	}
	// Trailing octets after the first value are ignored.
	v, _, err := bacapp.Decode(wp.Value)
	if err != nil {
		return nil, bacnet.ErrValueOutOfRange
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.lookup(wp.ObjectInstance)
	if !ok {
		return nil, bacnet.ErrUnknownObject
	}
	if !wholeValue(wp.ArrayIndex) {
		return nil, bacnet.ErrPropertyNotAnArray
	}
	h, ok := propertyTable[wp.Property]
	if !ok {
		return nil, bacnet.ErrUnknownProperty
	}
	if h.write == nil {
		return nil, bacnet.ErrWriteAccessDenied
	}
	return h.write(o, wp.ObjectInstance, e, v)
}

func (o *Object) wrongType() error {
	if o.strictDataTypes {
		return bacnet.ErrInvalidDataType
	}
	return bacnet.ErrValueOutOfRange
}

func statusFlags(outOfService bool) bacapp.BitString {
	flags := bacapp.NewBitString(bacnet.StatusFlagCount)
	flags.SetBit(int(bacnet.StatusFlagInAlarm), false)
	flags.SetBit(int(bacnet.StatusFlagFault), false)
	flags.SetBit(int(bacnet.StatusFlagOverridden), false)
	flags.SetBit(int(bacnet.StatusFlagOutOfService), outOfService)
	return flags
}

func readObjectIdentifier(dst []byte, instance uint32, _ *entry) []byte {
	return bacapp.AppendObjectID(dst, bacapp.ObjectID{Type: bacnet.ObjectBinaryInput, Instance: instance})
}

// readName serves both object-name and description; there is no separate
// description storage.
func readName(dst []byte, _ uint32, e *entry) []byte {
	return bacapp.AppendCharacterString(dst, e.name)
}

func readObjectType(dst []byte, _ uint32, _ *entry) []byte {
	return bacapp.AppendEnumerated(dst, uint32(bacnet.ObjectBinaryInput))
}

func readPresentValue(dst []byte, _ uint32, e *entry) []byte {
	return bacapp.AppendEnumerated(dst, uint32(e.presentValue()))
}

func readStatusFlags(dst []byte, _ uint32, e *entry) []byte {
	return bacapp.AppendBitString(dst, statusFlags(e.outOfService))
}

func readEventState(dst []byte, _ uint32, _ *entry) []byte {
	return bacapp.AppendEnumerated(dst, uint32(bacnet.EventStateNormal))
}

func readOutOfService(dst []byte, _ uint32, e *entry) []byte {
	return bacapp.AppendBoolean(dst, e.outOfService)
}

func readPolarity(dst []byte, _ uint32, e *entry) []byte {
	return bacapp.AppendEnumerated(dst, uint32(e.polarity))
}

func writePresentValue(o *Object, instance uint32, e *entry, v bacapp.Value) ([]Event, error) {
	n, ok := v.AsEnumerated()
	if !ok {
		return nil, o.wrongType()
	}
	if n > uint32(bacnet.MaxBinaryPV) {
		return nil, bacnet.ErrValueOutOfRange
	}
	e.setPresentValue(bacnet.BinaryPV(n))
	return []Event{{Instance: instance, Property: bacnet.PropPresentValue, Value: v}}, nil
}

func writeOutOfService(o *Object, _ uint32, e *entry, v bacapp.Value) ([]Event, error) {
	b, ok := v.AsBoolean()
	if !ok {
		return nil, o.wrongType()
	}
	e.setOutOfService(b)
	return nil, nil
}

// writePolarity does not touch the COV flag, unlike present-value and
// out-of-service writes.
func writePolarity(o *Object, _ uint32, e *entry, v bacapp.Value) ([]Event, error) {
	n, ok := v.AsEnumerated()
	if !ok {
		return nil, o.wrongType()
	}
	if n >= bacnet.MaxPolarity {
		return nil, bacnet.ErrValueOutOfRange
	}
	e.polarity = bacnet.Polarity(n)
	return nil, nil
}

func writeName(o *Object, instance uint32, e *entry, v bacapp.Value) ([]Event, error) {
	s, ok := v.AsCharacterString()
	if !ok {
		return nil, o.wrongType()
	}
	if !ValidName(s) {
		return nil, bacnet.ErrValueOutOfRange
	}
	if s == e.name {
		return nil, nil
	}
	e.name = s
	return []Event{{Instance: instance, Property: bacnet.PropObjectName, Value: v}}, nil
}

// ValidName reports whether s is acceptable as an object name: non-empty,
// printable, at most MaxNameLength octets.
func ValidName(s string) bool {
	if s == "" || len(s) > MaxNameLength {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
