package bacapp

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/sweeney/bi-sensor/internal/bacnet"
)

// CharsetANSI is the ANSI X3.4 / UTF-8 character set tag.
const CharsetANSI = 0

// Date and Time are carried as their raw four octets.
type (
	Date [4]byte
	Time [4]byte
)

// Value is one decoded application-tagged value. Data holds the Go form
// of the value: nil, bool, uint32, int32, float32, float64, []byte, string,
// BitString, Date, Time or ObjectID depending on Tag.
type Value struct {
	Tag  Tag
	Data any
}

// Null returns a null value.
func Null() Value { return Value{Tag: TagNull} }

// Boolean wraps b as a boolean value.
func Boolean(b bool) Value { return Value{Tag: TagBoolean, Data: b} }

// Unsigned wraps v as an unsigned value.
func Unsigned(v uint32) Value { return Value{Tag: TagUnsigned, Data: v} }

// Enumerated wraps v as an enumerated value.
func Enumerated(v uint32) Value { return Value{Tag: TagEnumerated, Data: v} }

// CharacterString wraps s as an ANSI character string value.
func CharacterString(s string) Value { return Value{Tag: TagCharacterString, Data: s} }

// BitStringValue wraps b as a bit string value.
func BitStringValue(b BitString) Value { return Value{Tag: TagBitString, Data: b} }

// ObjectIDValue wraps id as an object identifier value.
func ObjectIDValue(id ObjectID) Value { return Value{Tag: TagObjectID, Data: id} }

// AsBoolean returns the boolean held by v.
func (v Value) AsBoolean() (bool, bool) {
	b, ok := v.Data.(bool)
	return b, ok && v.Tag == TagBoolean
}

// AsEnumerated returns the enumeration held by v.
func (v Value) AsEnumerated() (uint32, bool) {
	n, ok := v.Data.(uint32)
	return n, ok && v.Tag == TagEnumerated
}

// AsUnsigned returns the unsigned integer held by v.
func (v Value) AsUnsigned() (uint32, bool) {
	n, ok := v.Data.(uint32)
	return n, ok && v.Tag == TagUnsigned
}

// AsCharacterString returns the string held by v.
func (v Value) AsCharacterString() (string, bool) {
	s, ok := v.Data.(string)
	return s, ok && v.Tag == TagCharacterString
}

// AsBitString returns the bit string held by v.
func (v Value) AsBitString() (BitString, bool) {
	b, ok := v.Data.(BitString)
	return b, ok && v.Tag == TagBitString
}

// AsObjectID returns the object identifier held by v.
func (v Value) AsObjectID() (ObjectID, bool) {
	id, ok := v.Data.(ObjectID)
	return id, ok && v.Tag == TagObjectID
}

func (v Value) String() string {
	switch d := v.Data.(type) {
	case nil:
		return v.Tag.String()
	case string:
		return fmt.Sprintf("%s(%q)", v.Tag, d)
	default:
		return fmt.Sprintf("%s(%v)", v.Tag, d)
	}
}

// AppendNull encodes an application null.
func AppendNull(dst []byte) []byte {
	return appendTag(dst, TagNull, 0)
}

// AppendBoolean encodes an application boolean. The value lives in the
// tag's length field, so there are no content octets.
func AppendBoolean(dst []byte, b bool) []byte {
	n := 0
	if b {
		n = 1
	}
	return appendTag(dst, TagBoolean, n)
}

func appendUint(dst []byte, tag Tag, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	i := 0
	for i < 3 && buf[i] == 0 {
		i++
	}
	dst = appendTag(dst, tag, 4-i)
	return append(dst, buf[i:]...)
}

// AppendUnsigned encodes an application unsigned integer in the fewest octets.
func AppendUnsigned(dst []byte, v uint32) []byte {
	return appendUint(dst, TagUnsigned, v)
}

// AppendEnumerated encodes an application enumeration in the fewest octets.
func AppendEnumerated(dst []byte, v uint32) []byte {
	return appendUint(dst, TagEnumerated, v)
}

// AppendSigned encodes an application signed integer in the fewest octets.
func AppendSigned(dst []byte, v int32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	i := 0
	for i < 3 {
		if buf[i] == 0 && buf[i+1]&0x80 == 0 {
			i++
		} else if buf[i] == 0xFF && buf[i+1]&0x80 != 0 {
			i++
		} else {
			break
		}
	}
	dst = appendTag(dst, TagSigned, 4-i)
	return append(dst, buf[i:]...)
}

// AppendReal encodes an IEEE-754 single precision value.
func AppendReal(dst []byte, f float32) []byte {
	dst = appendTag(dst, TagReal, 4)
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
}

// AppendDouble encodes an IEEE-754 double precision value.
func AppendDouble(dst []byte, f float64) []byte {
	dst = appendTag(dst, TagDouble, 8)
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
}

// AppendOctetString encodes raw octets.
func AppendOctetString(dst []byte, b []byte) []byte {
	dst = appendTag(dst, TagOctetString, len(b))
	return append(dst, b...)
}

// AppendCharacterString encodes s using the ANSI X3.4 (UTF-8) character set.
func AppendCharacterString(dst []byte, s string) []byte {
	dst = appendTag(dst, TagCharacterString, len(s)+1)
	dst = append(dst, CharsetANSI)
	return append(dst, s...)
}

// AppendBitString encodes b with its unused-bits prefix octet.
func AppendBitString(dst []byte, b BitString) []byte {
	octets := b.octets()
	dst = appendTag(dst, TagBitString, len(octets)+1)
	dst = append(dst, b.unusedBits())
	return append(dst, octets...)
}

// AppendObjectID encodes an object identifier.
func AppendObjectID(dst []byte, id ObjectID) []byte {
	dst = appendTag(dst, TagObjectID, 4)
	return binary.BigEndian.AppendUint32(dst, id.Pack())
}

// Append encodes v according to its tag.
func Append(dst []byte, v Value) ([]byte, error) {
	switch d := v.Data.(type) {
	case nil:
		if v.Tag == TagNull {
			return AppendNull(dst), nil
		}
	case bool:
		if v.Tag == TagBoolean {
			return AppendBoolean(dst, d), nil
		}
	case uint32:
		switch v.Tag {
		case TagUnsigned:
			return AppendUnsigned(dst, d), nil
		case TagEnumerated:
			return AppendEnumerated(dst, d), nil
		}
	case int32:
		if v.Tag == TagSigned {
			return AppendSigned(dst, d), nil
		}
	case float32:
		if v.Tag == TagReal {
			return AppendReal(dst, d), nil
		}
	case float64:
		if v.Tag == TagDouble {
			return AppendDouble(dst, d), nil
		}
	case []byte:
		if v.Tag == TagOctetString {
			return AppendOctetString(dst, d), nil
		}
	case string:
		if v.Tag == TagCharacterString {
			return AppendCharacterString(dst, d), nil
		}
	case BitString:
		if v.Tag == TagBitString {
			return AppendBitString(dst, d), nil
		}
	case Date:
		if v.Tag == TagDate {
			return append(appendTag(dst, TagDate, 4), d[:]...), nil
		}
	case Time:
		if v.Tag == TagTime {
			return append(appendTag(dst, TagTime, 4), d[:]...), nil
		}
	case ObjectID:
		if v.Tag == TagObjectID {
			return AppendObjectID(dst, d), nil
		}
	}
	return dst, fmt.Errorf("bacapp: cannot encode %T as %s", v.Data, v.Tag)
}

// Decode reads one application-tagged value from data and returns it with
// the number of octets consumed.
func Decode(data []byte) (Value, int, error) {
	tag, lvt, hdr, err := decodeTag(data)
	if err != nil {
		return Value{}, 0, err
	}
	if tag == TagBoolean {
		if lvt > 1 {
			return Value{}, 0, ErrMalformed
		}
		return Boolean(lvt == 1), hdr, nil
	}
	if uint64(hdr)+uint64(lvt) > uint64(len(data)) {
		return Value{}, 0, ErrTruncated
	}
	content := data[hdr : hdr+int(lvt)]
	n := hdr + int(lvt)

	switch tag {
	case TagNull:
		if lvt != 0 {
			return Value{}, 0, ErrMalformed
		}
		return Null(), n, nil
	case TagUnsigned, TagEnumerated:
		v, err := decodeUint(content)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Tag: tag, Data: v}, n, nil
	case TagSigned:
		v, err := decodeInt(content)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Tag: tag, Data: v}, n, nil
	case TagReal:
		if lvt != 4 {
			return Value{}, 0, ErrMalformed
		}
		return Value{Tag: tag, Data: math.Float32frombits(binary.BigEndian.Uint32(content))}, n, nil
	case TagDouble:
		if lvt != 8 {
			return Value{}, 0, ErrMalformed
		}
		return Value{Tag: tag, Data: math.Float64frombits(binary.BigEndian.Uint64(content))}, n, nil
	case TagOctetString:
		b := make([]byte, len(content))
		copy(b, content)
		return Value{Tag: tag, Data: b}, n, nil
	case TagCharacterString:
		if lvt == 0 {
			return Value{}, 0, ErrMalformed
		}
		if content[0] != CharsetANSI {
			return Value{}, 0, fmt.Errorf("%w: %d", ErrCharacterSet, content[0])
		}
		if !utf8.Valid(content[1:]) {
			return Value{}, 0, ErrMalformed
		}
		return CharacterString(string(content[1:])), n, nil
	case TagBitString:
		b, err := decodeBitString(content)
		if err != nil {
			return Value{}, 0, err
		}
		return BitStringValue(b), n, nil
	case TagDate, TagTime, TagObjectID:
		if lvt != 4 {
			return Value{}, 0, ErrMalformed
		}
		var raw [4]byte
		copy(raw[:], content)
		switch tag {
		case TagDate:
			return Value{Tag: tag, Data: Date(raw)}, n, nil
		case TagTime:
			return Value{Tag: tag, Data: Time(raw)}, n, nil
		default:
			return ObjectIDValue(UnpackObjectID(binary.BigEndian.Uint32(raw[:]))), n, nil
		}
	}
	return Value{}, 0, fmt.Errorf("%w: %s", ErrUnsupportedTag, tag)
}

func decodeUint(b []byte) (uint32, error) {
	if len(b) == 0 {
		return 0, ErrMalformed
	}
	if len(b) > 4 {
		return 0, ErrValueTooLarge
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, nil
}

func decodeInt(b []byte) (int32, error) {
	if len(b) == 0 {
		return 0, ErrMalformed
	}
	if len(b) > 4 {
		return 0, ErrValueTooLarge
	}
	var v int32
	if b[0]&0x80 != 0 {
		v = -1
	}
	for _, c := range b {
		v = v<<8 | int32(c)
	}
	return v, nil
}

// ObjectID identifies an object by type and instance number.
type ObjectID struct {
	Type     bacnet.ObjectType
	Instance uint32
}

const instanceBits = 22

// Pack returns the 32-bit wire form of id.
func (id ObjectID) Pack() uint32 {
	return uint32(id.Type&bacnet.MaxObjectType)<<instanceBits | id.Instance&bacnet.MaxInstance
}

// UnpackObjectID splits the 32-bit wire form into type and instance.
func UnpackObjectID(v uint32) ObjectID {
	return ObjectID{
		Type:     bacnet.ObjectType(v >> instanceBits),
		Instance: v & bacnet.MaxInstance,
	}
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%s:%d", id.Type, id.Instance)
}
