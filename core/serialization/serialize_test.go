// Copyright 2017-2018 The nox developers

package serialization

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarIntRoundTrip(t *testing.T) {
	tests := []struct {
		in   uint64
		size int
	}{
		{0, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xffff, 3},
		{0x10000, 5},
		{0xffffffff, 5},
		{0x100000000, 9},
		{0xffffffffffffffff, 9},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		err := WriteVarInt(&buf, test.in)
		assert.NoError(t, err)
		assert.Equal(t, test.size, buf.Len())
		assert.Equal(t, test.size, VarIntSerializeSize(test.in))

		got, err := ReadVarInt(&buf)
		assert.NoError(t, err)
		assert.Equal(t, test.in, got)
	}
}

func TestVarIntNonCanonical(t *testing.T) {
	tests := [][]byte{
		{0xfd, 0x01, 0x00},                                     // could fit in 1 byte
		{0xfe, 0xff, 0xff, 0x00, 0x00},                         // could fit in 3 bytes
		{0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00}, // could fit in 5 bytes
	}

	for _, encoded := range tests {
		_, err := ReadVarInt(bytes.NewReader(encoded))
		assert.Error(t, err)
	}
}

func TestVarBytes(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	var buf bytes.Buffer
	assert.NoError(t, WriteVarBytes(&buf, payload))

	got, err := ReadVarBytes(bytes.NewReader(buf.Bytes()), 32, "payload")
	assert.NoError(t, err)
	assert.Equal(t, payload, got)

	// The declared length is bounded by the caller.
	_, err = ReadVarBytes(bytes.NewReader(buf.Bytes()), 2, "payload")
	assert.Error(t, err)
}
