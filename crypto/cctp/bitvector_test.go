package cctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitVectorRoundTrip(t *testing.T) {
	raw := make([]byte, 62)
	for i := range raw {
		raw[i] = byte(i)
	}

	for _, algo := range []byte{BitVectorUncompressed, BitVectorGzip, BitVectorSnappy} {
		compressed, err := CompressBitVector(raw, algo)
		assert.NoError(t, err)
		assert.Equal(t, algo, compressed[0])

		out, err := DecompressBitVector(compressed, len(raw))
		assert.NoError(t, err)
		assert.Equal(t, raw, out)
	}

	_, err := CompressBitVector(raw, 0xee)
	assert.Error(t, err)
}

func TestDecompressBitVectorErrors(t *testing.T) {
	_, err := DecompressBitVector(nil, 10)
	assert.Error(t, err)

	_, err = DecompressBitVector([]byte{0xee, 0x01}, 1)
	assert.Error(t, err)

	// Corrupt payloads are rejected.
	_, err = DecompressBitVector([]byte{BitVectorGzip, 0x00, 0x01}, 10)
	assert.Error(t, err)
	_, err = DecompressBitVector([]byte{BitVectorSnappy, 0xff, 0xff}, 10)
	assert.Error(t, err)

	// The uncompressed size is pinned.
	compressed, err := CompressBitVector(make([]byte, 30), BitVectorSnappy)
	assert.NoError(t, err)
	_, err = DecompressBitVector(compressed, 31)
	assert.Error(t, err)
	_, err = DecompressBitVector(compressed, 29)
	assert.Error(t, err)
}

func TestBitVectorMerkleRoot(t *testing.T) {
	raw := make([]byte, leafDataSize*2)
	raw[0] = 0x01
	raw[len(raw)-1] = 0x80

	// The root only depends on the uncompressed contents, not on the
	// compression algorithm.
	var roots []FieldElement
	for _, algo := range []byte{BitVectorUncompressed, BitVectorGzip, BitVectorSnappy} {
		compressed, err := CompressBitVector(raw, algo)
		assert.NoError(t, err)
		root, err := BitVectorMerkleRoot(compressed, len(raw))
		assert.NoError(t, err)
		assert.False(t, root.IsNull())
		roots = append(roots, root)
	}
	assert.True(t, roots[0].IsEqual(roots[1]))
	assert.True(t, roots[0].IsEqual(roots[2]))

	// Flipping one bit in the vector changes the root.
	raw[5] ^= 0x20
	compressed, err := CompressBitVector(raw, BitVectorUncompressed)
	assert.NoError(t, err)
	flipped, err := BitVectorMerkleRoot(compressed, len(raw))
	assert.NoError(t, err)
	assert.False(t, flipped.IsEqual(roots[0]))

	// Size mismatches surface as errors.
	_, err = BitVectorMerkleRoot(compressed, len(raw)+leafDataSize)
	assert.Error(t, err)
}

func TestBitVectorMerkleRootMatchesManualFold(t *testing.T) {
	// Two 31 byte chunks lift into two leaves which fold with the
	// two-to-one hash.
	raw := make([]byte, leafDataSize*2)
	raw[leafDataSize-1] = 0x11
	raw[len(raw)-1] = 0x22

	lhsBuf := make([]byte, FieldByteSize)
	copy(lhsBuf[1:], raw[:leafDataSize])
	lhs, err := NewFieldElement(lhsBuf)
	assert.NoError(t, err)

	rhsBuf := make([]byte, FieldByteSize)
	copy(rhsBuf[1:], raw[leafDataSize:])
	rhs, err := NewFieldElement(rhsBuf)
	assert.NoError(t, err)

	want, err := HashFieldElements(lhs, rhs)
	assert.NoError(t, err)

	compressed, err := CompressBitVector(raw, BitVectorSnappy)
	assert.NoError(t, err)
	root, err := BitVectorMerkleRoot(compressed, len(raw))
	assert.NoError(t, err)
	assert.True(t, root.IsEqual(want))
}
