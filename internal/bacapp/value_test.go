package bacapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/bi-sensor/internal/bacnet"
)

func TestAppendEncodings(t *testing.T) {
	flags := NewBitString(4)
	flags.SetBit(3, true)

	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"enumerated zero", AppendEnumerated(nil, 0), []byte{0x91, 0x00}},
		{"enumerated one", AppendEnumerated(nil, 1), []byte{0x91, 0x01}},
		{"enumerated two octets", AppendEnumerated(nil, 300), []byte{0x92, 0x01, 0x2C}},
		{"unsigned three octets", AppendUnsigned(nil, 0x10000), []byte{0x23, 0x01, 0x00, 0x00}},
		{"boolean true", AppendBoolean(nil, true), []byte{0x11}},
		{"boolean false", AppendBoolean(nil, false), []byte{0x10}},
		{"signed minus one", AppendSigned(nil, -1), []byte{0x31, 0xFF}},
		{"signed 127", AppendSigned(nil, 127), []byte{0x31, 0x7F}},
		{"signed 128", AppendSigned(nil, 128), []byte{0x32, 0x00, 0x80}},
		{"signed -129", AppendSigned(nil, -129), []byte{0x32, 0xFF, 0x7F}},
		{"status flags", AppendBitString(nil, flags), []byte{0x82, 0x04, 0x10}},
		{"character string", AppendCharacterString(nil, "ab"), []byte{0x73, 0x00, 'a', 'b'}},
		{"null", AppendNull(nil), []byte{0x00}},
		{
			"object identifier",
			AppendObjectID(nil, ObjectID{Type: bacnet.ObjectBinaryInput, Instance: 0}),
			[]byte{0xC4, 0x00, 0xC0, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestAppendExtendedLength(t *testing.T) {
	name := "BINARY INPUT 0"
	got := AppendCharacterString(nil, name)

	require.Len(t, got, 2+1+len(name))
	assert.Equal(t, byte(0x75), got[0])
	assert.Equal(t, byte(len(name)+1), got[1])
	assert.Equal(t, byte(CharsetANSI), got[2])
	assert.Equal(t, name, string(got[3:]))
}

func TestAppendPreservesPrefix(t *testing.T) {
	dst := []byte{0xAA}
	got := AppendEnumerated(dst, 1)
	assert.Equal(t, []byte{0xAA, 0x91, 0x01}, got)
}

func TestDecodeRoundTrip(t *testing.T) {
	flags := NewBitString(4)
	flags.SetBit(0, true)
	flags.SetBit(3, true)
	long := make([]byte, 300)
	for i := range long {
		long[i] = byte(i)
	}

	values := []Value{
		Null(),
		Boolean(true),
		Boolean(false),
		Unsigned(0),
		Unsigned(0xFFFFFFFF),
		Enumerated(1),
		{Tag: TagSigned, Data: int32(-40000)},
		{Tag: TagReal, Data: float32(21.5)},
		{Tag: TagDouble, Data: float64(-3.25)},
		{Tag: TagOctetString, Data: long},
		CharacterString("Boiler room door"),
		BitStringValue(flags),
		{Tag: TagDate, Data: Date{126, 10, 15, 4}},
		{Tag: TagTime, Data: Time{12, 30, 0, 0}},
		ObjectIDValue(ObjectID{Type: bacnet.ObjectBinaryInput, Instance: bacnet.MaxInstance}),
	}

	for _, v := range values {
		t.Run(v.Tag.String(), func(t *testing.T) {
			enc, err := Append(nil, v)
			require.NoError(t, err)

			got, n, err := Decode(enc)
			require.NoError(t, err)
			assert.Equal(t, len(enc), n)
			assert.Equal(t, v, got)
		})
	}
}

func TestDecodeConsumesOneValue(t *testing.T) {
	data := AppendEnumerated(nil, 1)
	data = AppendBoolean(data, true)

	v, n, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	e, ok := v.AsEnumerated()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), e)

	v, n, err = Decode(data[n:])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	b, ok := v.AsBoolean()
	assert.True(t, ok)
	assert.True(t, b)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"context tag", []byte{0x09, 0x01}, ErrContextTag},
		{"extended tag number", []byte{0xF1, 0x00, 0x00}, ErrUnsupportedTag},
		{"reserved tag 13", []byte{0xD1, 0x00}, ErrUnsupportedTag},
		{"truncated content", []byte{0x92, 0x01}, ErrTruncated},
		{"truncated extended length", []byte{0x75}, ErrTruncated},
		{"enumerated too wide", []byte{0x95, 0x05, 0x01, 0x02, 0x03, 0x04, 0x05}, ErrValueTooLarge},
		{"enumerated empty", []byte{0x90}, ErrMalformed},
		{"boolean out of range", []byte{0x12}, ErrMalformed},
		{"unsupported charset", []byte{0x72, 0x04, 'a'}, ErrCharacterSet},
		{"bit string bad unused", []byte{0x82, 0x09, 0x00}, ErrMalformed},
		{"object id short", []byte{0xC3, 0x00, 0xC0, 0x00}, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValueAccessorsRejectOtherTags(t *testing.T) {
	v := Unsigned(1)

	_, ok := v.AsEnumerated()
	assert.False(t, ok, "unsigned must not read as enumerated")

	n, ok := v.AsUnsigned()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), n)

	_, ok = v.AsBoolean()
	assert.False(t, ok)
	_, ok = v.AsCharacterString()
	assert.False(t, ok)
	_, ok = v.AsBitString()
	assert.False(t, ok)
	_, ok = v.AsObjectID()
	assert.False(t, ok)
}

func TestAppendRejectsMismatchedData(t *testing.T) {
	_, err := Append(nil, Value{Tag: TagEnumerated, Data: "active"})
	assert.Error(t, err)
}

func TestObjectIDPacking(t *testing.T) {
	id := ObjectID{Type: bacnet.ObjectBinaryInput, Instance: 17}
	assert.Equal(t, uint32(0x00C00011), id.Pack())
	assert.Equal(t, id, UnpackObjectID(id.Pack()))
	assert.Equal(t, "binary-input:17", id.String())
}

func TestBitString(t *testing.T) {
	var b BitString
	b.SetBit(2, true)

	assert.Equal(t, 3, b.Len())
	assert.False(t, b.Bit(0))
	assert.True(t, b.Bit(2))
	assert.False(t, b.Bit(10), "out of range bits read as clear")
	assert.Equal(t, "{F,F,T}", b.String())
}
