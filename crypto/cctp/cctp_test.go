package cctp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTypeSizes(t *testing.T) {
	assert.NotPanics(t, CheckTypeSizes)
}

func TestFieldElement(t *testing.T) {
	var null FieldElement
	assert.True(t, null.IsNull())
	assert.Nil(t, null.Bytes())

	raw := make([]byte, FieldByteSize)
	raw[FieldByteSize-1] = 0x07
	fe, err := NewFieldElement(raw)
	assert.NoError(t, err)
	assert.False(t, fe.IsNull())
	assert.Equal(t, raw, fe.Bytes())

	// the returned buffer is a copy
	fe.Bytes()[0] = 0xff
	assert.Equal(t, raw, fe.Bytes())

	same, err := NewFieldElement(raw)
	assert.NoError(t, err)
	assert.True(t, fe.IsEqual(same))
	assert.False(t, fe.IsEqual(null))
	assert.True(t, null.IsEqual(FieldElement{}))
}

func TestFieldElementRejectsBadInput(t *testing.T) {
	_, err := NewFieldElement([]byte{0x01})
	assert.Error(t, err)

	// 2^256-1 is above the field modulus and must not deserialize.
	over := bytes.Repeat([]byte{0xff}, FieldByteSize)
	_, err = NewFieldElement(over)
	assert.Error(t, err)
}

func TestReduceToFieldElement(t *testing.T) {
	fe := ReduceToFieldElement([]byte("arbitrary bytes of any length whatsoever"))
	assert.False(t, fe.IsNull())

	// Reduction is deterministic.
	again := ReduceToFieldElement([]byte("arbitrary bytes of any length whatsoever"))
	assert.True(t, fe.IsEqual(again))

	// The all 0xff string reduces instead of failing.
	fe = ReduceToFieldElement(bytes.Repeat([]byte{0xff}, FieldByteSize))
	assert.False(t, fe.IsNull())
}

func TestHashFieldElements(t *testing.T) {
	lhs := ReduceToFieldElement([]byte{0x01})
	rhs := ReduceToFieldElement([]byte{0x02})

	h1, err := HashFieldElements(lhs, rhs)
	assert.NoError(t, err)
	assert.False(t, h1.IsNull())

	h2, err := HashFieldElements(lhs, rhs)
	assert.NoError(t, err)
	assert.True(t, h1.IsEqual(h2))

	// The hash is position dependent.
	h3, err := HashFieldElements(rhs, lhs)
	assert.NoError(t, err)
	assert.False(t, h1.IsEqual(h3))

	_, err = HashFieldElements(lhs, FieldElement{})
	assert.Error(t, err)
	_, err = HashFieldElements(FieldElement{}, rhs)
	assert.Error(t, err)
}

func TestMerkleRootOfFieldElements(t *testing.T) {
	a := ReduceToFieldElement([]byte{0x0a})
	b := ReduceToFieldElement([]byte{0x0b})
	c := ReduceToFieldElement([]byte{0x0c})

	_, err := MerkleRootOfFieldElements(nil)
	assert.Error(t, err)

	// A single leaf is its own root.
	root, err := MerkleRootOfFieldElements([]FieldElement{a})
	assert.NoError(t, err)
	assert.True(t, root.IsEqual(a))

	// An odd tail node is duplicated.
	ab, err := HashFieldElements(a, b)
	assert.NoError(t, err)
	cc, err := HashFieldElements(c, c)
	assert.NoError(t, err)
	want, err := HashFieldElements(ab, cc)
	assert.NoError(t, err)

	root, err = MerkleRootOfFieldElements([]FieldElement{a, b, c})
	assert.NoError(t, err)
	assert.True(t, root.IsEqual(want))
}
