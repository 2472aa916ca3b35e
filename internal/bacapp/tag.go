// Package bacapp encodes and decodes BACnet application-tagged data.
//
// Encoders follow the append convention: they write the encoding to the end
// of dst and return the extended slice. Decode reads exactly one
// application-tagged value from the front of a buffer.
package bacapp

import (
	"errors"
	"fmt"
)

// Tag is an application tag number.
type Tag uint8

const (
	TagNull            Tag = 0
	TagBoolean         Tag = 1
	TagUnsigned        Tag = 2
	TagSigned          Tag = 3
	TagReal            Tag = 4
	TagDouble          Tag = 5
	TagOctetString     Tag = 6
	TagCharacterString Tag = 7
	TagBitString       Tag = 8
	TagEnumerated      Tag = 9
	TagDate            Tag = 10
	TagTime            Tag = 11
	TagObjectID        Tag = 12
)

// maxApplicationTag is the last tag number defined for application data.
const maxApplicationTag = TagObjectID

var tagNames = [...]string{
	"null", "boolean", "unsigned", "signed", "real", "double",
	"octet-string", "character-string", "bit-string", "enumerated",
	"date", "time", "object-identifier",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Tag octet layout: tag number in the high nibble, class bit, then a
// three-bit length/value/type field.
const (
	classContext   = 0x08
	lvtMask        = 0x07
	lvtExtended    = 5
	extTagNumber   = 0x0F
	extLength16    = 254
	extLength32    = 255
	maxShortLength = 4
)

// Decoding errors.
var (
	ErrTruncated      = errors.New("bacapp: truncated data")
	ErrContextTag     = errors.New("bacapp: context-specific tag where application tag expected")
	ErrUnsupportedTag = errors.New("bacapp: unsupported application tag")
	ErrValueTooLarge  = errors.New("bacapp: value larger than supported")
	ErrCharacterSet   = errors.New("bacapp: unsupported character set")
	ErrMalformed      = errors.New("bacapp: malformed value")
)

// appendTag writes an application tag header for a value of length n.
func appendTag(dst []byte, tag Tag, n int) []byte {
	hdr := byte(tag) << 4
	switch {
	case n <= maxShortLength:
		return append(dst, hdr|byte(n))
	case n < extLength16:
		return append(dst, hdr|lvtExtended, byte(n))
	case n <= 0xFFFF:
		return append(dst, hdr|lvtExtended, extLength16, byte(n>>8), byte(n))
	default:
		return append(dst, hdr|lvtExtended, extLength32,
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}

// decodeTag parses an application tag header. It returns the tag number,
// the length/value/type field (the content length, or the value itself for
// booleans) and the header size.
func decodeTag(data []byte) (Tag, uint32, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, ErrTruncated
	}
	hdr := data[0]
	if hdr&classContext != 0 {
		return 0, 0, 0, ErrContextTag
	}
	num := hdr >> 4
	if num == extTagNumber || Tag(num) > maxApplicationTag {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrUnsupportedTag, num)
	}
	tag := Tag(num)
	lvt := uint32(hdr & lvtMask)
	if tag == TagBoolean || lvt < lvtExtended {
		return tag, lvt, 1, nil
	}
	if lvt != lvtExtended {
		// 6 and 7 are opening/closing tags, which only exist in context class.
		return 0, 0, 0, ErrMalformed
	}
	if len(data) < 2 {
		return 0, 0, 0, ErrTruncated
	}
	switch ext := data[1]; ext {
	case extLength16:
		if len(data) < 4 {
			return 0, 0, 0, ErrTruncated
		}
		return tag, uint32(data[2])<<8 | uint32(data[3]), 4, nil
	case extLength32:
		if len(data) < 6 {
			return 0, 0, 0, ErrTruncated
		}
		n := uint32(data[2])<<24 | uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5])
		return tag, n, 6, nil
	default:
		return tag, uint32(ext), 2, nil
	}
}
