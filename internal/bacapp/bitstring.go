package bacapp

import "strings"

// maxBitStringBits bounds the bit strings this package will decode.
const maxBitStringBits = 256

// BitString is an ordered set of bits. Bit 0 is the most significant bit
// of the first octet on the wire.
type BitString struct {
	bits []bool
}

// NewBitString returns a bit string of n cleared bits.
func NewBitString(n int) BitString {
	return BitString{bits: make([]bool, n)}
}

// Len returns the number of bits.
func (b BitString) Len() int { return len(b.bits) }

// Bit returns bit i, or false when i is out of range.
func (b BitString) Bit(i int) bool {
	if i < 0 || i >= len(b.bits) {
		return false
	}
	return b.bits[i]
}

// SetBit sets bit i, growing the string when i is past the end.
func (b *BitString) SetBit(i int, v bool) {
	if i < 0 {
		return
	}
	for len(b.bits) <= i {
		b.bits = append(b.bits, false)
	}
	b.bits[i] = v
}

func (b BitString) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, v := range b.bits {
		if i > 0 {
			sb.WriteByte(',')
		}
		if v {
			sb.WriteByte('T')
		} else {
			sb.WriteByte('F')
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

func (b BitString) octets() []byte {
	out := make([]byte, (len(b.bits)+7)/8)
	for i, v := range b.bits {
		if v {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func (b BitString) unusedBits() byte {
	if r := len(b.bits) % 8; r != 0 {
		return byte(8 - r)
	}
	return 0
}

func decodeBitString(content []byte) (BitString, error) {
	if len(content) == 0 {
		return BitString{}, ErrMalformed
	}
	unused := int(content[0])
	octets := content[1:]
	if unused > 7 || (len(octets) == 0 && unused != 0) {
		return BitString{}, ErrMalformed
	}
	n := len(octets)*8 - unused
	if n > maxBitStringBits {
		return BitString{}, ErrValueTooLarge
	}
	b := NewBitString(n)
	for i := 0; i < n; i++ {
		b.bits[i] = octets[i/8]&(0x80>>(i%8)) != 0
	}
	return b, nil
}
