package sidechain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/crypto/cctp"
)

func TestFieldElementConfigIsValid(t *testing.T) {
	assert.True(t, FieldElementCertificateFieldConfig{BitSize: 1}.IsValid())
	assert.True(t, FieldElementCertificateFieldConfig{BitSize: 8}.IsValid())
	assert.True(t, FieldElementCertificateFieldConfig{BitSize: cctp.FieldByteSize * 8}.IsValid())
	assert.False(t, FieldElementCertificateFieldConfig{BitSize: 0}.IsValid())
	assert.False(t, FieldElementCertificateFieldConfig{BitSize: -1}.IsValid())
	assert.False(t, FieldElementCertificateFieldConfig{BitSize: cctp.FieldByteSize*8 + 1}.IsValid())
}

func TestBitVectorConfigIsValid(t *testing.T) {
	valid := BitVectorCertificateFieldConfig{
		BitVectorSizeBits:      cctp.MaxBitVectorSizeBits,
		MaxCompressedSizeBytes: cctp.MaxCompressedSizeBytes,
	}
	assert.True(t, valid.IsValid())

	// One field capacity unit of bits, times 8 to stay byte aligned.
	small := BitVectorCertificateFieldConfig{
		BitVectorSizeBits:      cctp.FieldBitSize * 8,
		MaxCompressedSizeBytes: 1024,
	}
	assert.True(t, small.IsValid())

	cases := []BitVectorCertificateFieldConfig{
		{BitVectorSizeBits: 0, MaxCompressedSizeBytes: 1024},
		{BitVectorSizeBits: -8, MaxCompressedSizeBytes: 1024},
		{BitVectorSizeBits: cctp.MaxBitVectorSizeBits + cctp.FieldBitSize * 8, MaxCompressedSizeBytes: 1024},
		// not divisible by the field capacity unit
		{BitVectorSizeBits: 256, MaxCompressedSizeBytes: 1024},
		// divisible by the capacity unit but not by 8
		{BitVectorSizeBits: cctp.FieldBitSize, MaxCompressedSizeBytes: 1024},
		{BitVectorSizeBits: cctp.FieldBitSize * 8, MaxCompressedSizeBytes: 0},
		{BitVectorSizeBits: cctp.FieldBitSize * 8, MaxCompressedSizeBytes: cctp.MaxCompressedSizeBytes + 1},
	}
	for _, cfg := range cases {
		assert.False(t, cfg.IsValid(), "cfg %+v should be invalid", cfg)
	}
}

func TestFieldElementCertificateField(t *testing.T) {
	f := NewFieldElementCertificateField([]byte{0x01})
	cfg := FieldElementCertificateFieldConfig{BitSize: 8}

	assert.True(t, f.IsValid(cfg))
	fe := f.GetFieldElement(cfg)
	assert.False(t, fe.IsNull())

	// The raw byte lands at the low-order end of the canonical encoding.
	want := make([]byte, cctp.FieldByteSize)
	want[cctp.FieldByteSize-1] = 0x01
	assert.True(t, bytes.Equal(want, fe.Bytes()))
}

func TestFieldElementCertificateFieldPadding(t *testing.T) {
	// bitSize 4 leaves the low 4 bits of the byte as reserved padding, so
	// 0x01 sets a padding bit and 0x10 does not.
	cfg := FieldElementCertificateFieldConfig{BitSize: 4}
	assert.False(t, NewFieldElementCertificateField([]byte{0x01}).IsValid(cfg))
	assert.True(t, NewFieldElementCertificateField([]byte{0x10}).IsValid(cfg))

	// bitSize 12 spans two bytes with 4 padding bits in the second.
	cfg = FieldElementCertificateFieldConfig{BitSize: 12}
	assert.True(t, NewFieldElementCertificateField([]byte{0xab, 0xc0}).IsValid(cfg))
	assert.False(t, NewFieldElementCertificateField([]byte{0xab, 0xc1}).IsValid(cfg))
	// flip a single padding bit
	assert.False(t, NewFieldElementCertificateField([]byte{0xab, 0xc8}).IsValid(cfg))
}

func TestFieldElementCertificateFieldSizes(t *testing.T) {
	cfg := FieldElementCertificateFieldConfig{BitSize: 8}
	assert.False(t, NewFieldElementCertificateField(nil).IsValid(cfg))
	assert.False(t, NewFieldElementCertificateField([]byte{0x01, 0x02}).IsValid(cfg))

	// A full-width slot must still deserialize below the field modulus.
	cfg = FieldElementCertificateFieldConfig{BitSize: cctp.FieldByteSize * 8}
	over := bytes.Repeat([]byte{0xff}, cctp.FieldByteSize)
	assert.False(t, NewFieldElementCertificateField(over).IsValid(cfg))

	small := make([]byte, cctp.FieldByteSize)
	small[cctp.FieldByteSize-1] = 0x02
	assert.True(t, NewFieldElementCertificateField(small).IsValid(cfg))

	// An invalid config never validates anything.
	assert.False(t, NewFieldElementCertificateField([]byte{0x01}).IsValid(
		FieldElementCertificateFieldConfig{BitSize: 0}))
}

func TestFieldElementCertificateFieldMemoization(t *testing.T) {
	f := NewFieldElementCertificateField([]byte{0x01})
	cfg8 := FieldElementCertificateFieldConfig{BitSize: 8}
	cfg16 := FieldElementCertificateFieldConfig{BitSize: 16}

	first := f.GetFieldElement(cfg8)
	assert.False(t, first.IsNull())

	// Same config reuses the cached outcome.
	second := f.GetFieldElement(cfg8)
	assert.True(t, first.IsEqual(second))

	// A different config revalidates: one byte cannot satisfy 16 bits.
	assert.True(t, f.GetFieldElement(cfg16).IsNull())
	assert.False(t, f.IsValid(cfg16))

	// And switching back revalidates again.
	assert.True(t, f.IsValid(cfg8))

	// Copies start with a cold cache but agree on the outcome.
	assert.True(t, f.Copy().IsValid(cfg8))
	assert.Equal(t, f.RawData(), f.Copy().RawData())
}

func TestBitVectorCertificateField(t *testing.T) {
	raw := make([]byte, cctp.BitVectorSizeInBytes)
	raw[0] = 0x5a
	compressed, err := cctp.CompressBitVector(raw, cctp.BitVectorSnappy)
	assert.NoError(t, err)

	cfg := BitVectorCertificateFieldConfig{
		BitVectorSizeBits:      cctp.MaxBitVectorSizeBits,
		MaxCompressedSizeBytes: cctp.MaxCompressedSizeBytes,
	}

	f := NewBitVectorCertificateField(compressed)
	assert.True(t, f.IsValid(cfg))
	root := f.GetFieldElement(cfg)
	assert.False(t, root.IsNull())

	// The canonical value is the merkle root over the uncompressed vector.
	want, err := cctp.BitVectorMerkleRoot(compressed, cctp.BitVectorSizeInBytes)
	assert.NoError(t, err)
	assert.True(t, root.IsEqual(want))
}

func TestBitVectorCertificateFieldRejects(t *testing.T) {
	cfg := BitVectorCertificateFieldConfig{
		BitVectorSizeBits:      cctp.MaxBitVectorSizeBits,
		MaxCompressedSizeBytes: cctp.MaxCompressedSizeBytes,
	}

	// Wrong uncompressed size.
	shortVec, err := cctp.CompressBitVector(make([]byte, 64), cctp.BitVectorSnappy)
	assert.NoError(t, err)
	assert.False(t, NewBitVectorCertificateField(shortVec).IsValid(cfg))

	// Compressed payload over the registered bound.
	tight := BitVectorCertificateFieldConfig{
		BitVectorSizeBits:      cctp.MaxBitVectorSizeBits,
		MaxCompressedSizeBytes: 4,
	}
	okVec, err := cctp.CompressBitVector(make([]byte, cctp.BitVectorSizeInBytes),
		cctp.BitVectorSnappy)
	assert.NoError(t, err)
	assert.True(t, len(okVec) > 4)
	assert.False(t, NewBitVectorCertificateField(okVec).IsValid(tight))

	// Corrupt payload.
	assert.False(t, NewBitVectorCertificateField([]byte{cctp.BitVectorGzip, 0x00}).IsValid(cfg))

	// Invalid config.
	assert.False(t, NewBitVectorCertificateField(okVec).IsValid(
		BitVectorCertificateFieldConfig{}))
}

func TestBitVectorCertificateFieldMemoization(t *testing.T) {
	raw := make([]byte, cctp.BitVectorSizeInBytes)
	compressed, err := cctp.CompressBitVector(raw, cctp.BitVectorGzip)
	assert.NoError(t, err)

	f := NewBitVectorCertificateField(compressed)
	cfg := BitVectorCertificateFieldConfig{
		BitVectorSizeBits:      cctp.MaxBitVectorSizeBits,
		MaxCompressedSizeBytes: cctp.MaxCompressedSizeBytes,
	}

	first := f.GetFieldElement(cfg)
	assert.False(t, first.IsNull())
	assert.True(t, first.IsEqual(f.GetFieldElement(cfg)))

	// Shrinking the compressed bound below the payload size invalidates.
	tight := cfg
	tight.MaxCompressedSizeBytes = 1
	assert.True(t, f.GetFieldElement(tight).IsNull())

	// The original config validates again after the switch.
	assert.True(t, first.IsEqual(f.GetFieldElement(cfg)))
}
