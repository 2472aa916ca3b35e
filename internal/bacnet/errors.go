package bacnet

import "fmt"

// ErrorClass groups error codes in a BACnet error response.
type ErrorClass uint8

const (
	ErrorClassDevice   ErrorClass = 0
	ErrorClassObject   ErrorClass = 1
	ErrorClassProperty ErrorClass = 2
	ErrorClassServices ErrorClass = 5
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassDevice:
		return "device"
	case ErrorClassObject:
		return "object"
	case ErrorClassProperty:
		return "property"
	case ErrorClassServices:
		return "services"
	default:
		return fmt.Sprintf("error-class(%d)", uint8(c))
	}
}

// ErrorCode is the specific reason within an ErrorClass.
type ErrorCode uint16

const (
	ErrorCodeInvalidDataType      ErrorCode = 9
	ErrorCodeUnknownObject        ErrorCode = 31
	ErrorCodeUnknownProperty      ErrorCode = 32
	ErrorCodeValueOutOfRange      ErrorCode = 37
	ErrorCodeWriteAccessDenied    ErrorCode = 40
	ErrorCodePropertyIsNotAnArray ErrorCode = 50
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeInvalidDataType:
		return "invalid-data-type"
	case ErrorCodeUnknownObject:
		return "unknown-object"
	case ErrorCodeUnknownProperty:
		return "unknown-property"
	case ErrorCodeValueOutOfRange:
		return "value-out-of-range"
	case ErrorCodeWriteAccessDenied:
		return "write-access-denied"
	case ErrorCodePropertyIsNotAnArray:
		return "property-is-not-an-array"
	default:
		return fmt.Sprintf("error-code(%d)", uint16(c))
	}
}

// Error is a protocol-level failure reported back to the requester as an
// (error-class, error-code) pair.
type Error struct {
	Class ErrorClass
	Code  ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("bacnet: %s: %s", e.Class, e.Code)
}

// NewError returns a fresh error for class and code.
func NewError(class ErrorClass, code ErrorCode) *Error {
	return &Error{Class: class, Code: code}
}

// Is matches any *Error with the same class and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// Protocol errors returned by object property handlers. They are shared
// values: compare with errors.Is and never modify their fields. Use NewError
// for a value the caller owns.
var (
	ErrUnknownObject      = &Error{Class: ErrorClassObject, Code: ErrorCodeUnknownObject}
	ErrUnknownProperty    = &Error{Class: ErrorClassProperty, Code: ErrorCodeUnknownProperty}
	ErrPropertyNotAnArray = &Error{Class: ErrorClassProperty, Code: ErrorCodePropertyIsNotAnArray}
	ErrValueOutOfRange    = &Error{Class: ErrorClassProperty, Code: ErrorCodeValueOutOfRange}
	ErrWriteAccessDenied  = &Error{Class: ErrorClassProperty, Code: ErrorCodeWriteAccessDenied}
	ErrInvalidDataType    = &Error{Class: ErrorClassProperty, Code: ErrorCodeInvalidDataType}
)
