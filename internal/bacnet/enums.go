// Package bacnet holds the protocol enumerations shared by the object
// model and the application-data codecs. Values follow ASHRAE 135.
package bacnet

import "fmt"

// MaxInstance is the largest instance number an object identifier can carry.
const MaxInstance = 0x3FFFFF

// ArrayAll is the array index meaning "the whole property value".
const ArrayAll uint32 = 0xFFFFFFFF

// ObjectType identifies a class of BACnet object.
type ObjectType uint16

const (
	ObjectAnalogInput  ObjectType = 0
	ObjectAnalogOutput ObjectType = 1
	ObjectAnalogValue  ObjectType = 2
	ObjectBinaryInput  ObjectType = 3
	ObjectBinaryOutput ObjectType = 4
	ObjectBinaryValue  ObjectType = 5
	ObjectDevice       ObjectType = 8
)

// MaxObjectType is the largest object type a 10-bit identifier field can carry.
const MaxObjectType ObjectType = 0x3FF

func (t ObjectType) String() string {
	switch t {
	case ObjectAnalogInput:
		return "analog-input"
	case ObjectAnalogOutput:
		return "analog-output"
	case ObjectAnalogValue:
		return "analog-value"
	case ObjectBinaryInput:
		return "binary-input"
	case ObjectBinaryOutput:
		return "binary-output"
	case ObjectBinaryValue:
		return "binary-value"
	case ObjectDevice:
		return "device"
	default:
		return fmt.Sprintf("object-type(%d)", uint16(t))
	}
}

// PropertyID names one attribute of an object.
type PropertyID uint32

const (
	PropDescription      PropertyID = 28
	PropEventState       PropertyID = 36
	PropObjectIdentifier PropertyID = 75
	PropObjectName       PropertyID = 77
	PropObjectType       PropertyID = 79
	PropOutOfService     PropertyID = 81
	PropPolarity         PropertyID = 84
	PropPresentValue     PropertyID = 85
	PropPriorityArray    PropertyID = 87
	PropReliability      PropertyID = 103
	PropStatusFlags      PropertyID = 111
)

// PropertyListEnd terminates the property lists handed to the
// property-enumeration service. It is not a valid property identifier.
const PropertyListEnd PropertyID = 0xFFFFFFFF

var propertyNames = map[PropertyID]string{
	PropDescription:      "description",
	PropEventState:       "event-state",
	PropObjectIdentifier: "object-identifier",
	PropObjectName:       "object-name",
	PropObjectType:       "object-type",
	PropOutOfService:     "out-of-service",
	PropPolarity:         "polarity",
	PropPresentValue:     "present-value",
	PropPriorityArray:    "priority-array",
	PropReliability:      "reliability",
	PropStatusFlags:      "status-flags",
}

func (p PropertyID) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("property(%d)", uint32(p))
}

// ParsePropertyID resolves a property name such as "present-value".
func ParsePropertyID(name string) (PropertyID, bool) {
	for id, n := range propertyNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// BinaryPV is the two-state present value of binary objects.
type BinaryPV uint8

const (
	BinaryInactive BinaryPV = 0
	BinaryActive   BinaryPV = 1
)

// MaxBinaryPV is the largest valid BinaryPV.
const MaxBinaryPV = BinaryActive

// Invert returns the other state.
func (v BinaryPV) Invert() BinaryPV {
	if v == BinaryInactive {
		return BinaryActive
	}
	return BinaryInactive
}

func (v BinaryPV) String() string {
	if v == BinaryActive {
		return "ACTIVE"
	}
	return "INACTIVE"
}

// Polarity relates the physical input state to the present value.
type Polarity uint8

const (
	PolarityNormal  Polarity = 0
	PolarityReverse Polarity = 1
)

// MaxPolarity is one past the last valid Polarity.
const MaxPolarity = 2

func (p Polarity) String() string {
	if p == PolarityReverse {
		return "reverse"
	}
	return "normal"
}

// ParsePolarity resolves "normal" or "reverse".
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "", "normal":
		return PolarityNormal, nil
	case "reverse":
		return PolarityReverse, nil
	default:
		return 0, fmt.Errorf("invalid polarity %q (want normal or reverse)", s)
	}
}

// EventState is the alarm state of an object.
type EventState uint8

const (
	EventStateNormal    EventState = 0
	EventStateFault     EventState = 1
	EventStateOffnormal EventState = 2
)

// StatusFlag is a bit position in the status-flags bit string.
type StatusFlag uint8

const (
	StatusFlagInAlarm      StatusFlag = 0
	StatusFlagFault        StatusFlag = 1
	StatusFlagOverridden   StatusFlag = 2
	StatusFlagOutOfService StatusFlag = 3
)

// StatusFlagCount is the number of bits in status-flags.
const StatusFlagCount = 4
