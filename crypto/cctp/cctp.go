// Package cctp wraps the proof-system primitives consumed by the sidechain
// subsystem: canonical field elements, the SNARK-friendly two-to-one hash and
// the compressed bit-vector operations. Callers treat it as an opaque
// cryptographic library; everything else in the node works on the canonical
// byte encodings it hands out.
package cctp

import (
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

const (
	// FieldByteSize is the size of the canonical field element encoding.
	FieldByteSize = 32

	// FieldBitSize is the bit length of the scalar field modulus.
	FieldBitSize = 254

	// ProofByteSize and VKeyByteSize are the fixed sizes of serialized
	// certificate proofs and sidechain verification keys.
	ProofByteSize = 771
	VKeyByteSize  = 1544

	// MaxCustomDataSize bounds the declared byte size of any single custom
	// certificate field.
	MaxCustomDataSize = 1024

	// BitVectorSizeInBytes is the protocol-wide uncompressed size every
	// compressed bit vector must expand to.
	BitVectorSizeInBytes = 130048

	// MaxBitVectorSizeBits bounds the bit-vector length a sidechain may
	// declare at registration. Divisible by both the field capacity unit
	// (254) and 8.
	MaxBitVectorSizeBits = 1040384

	// MaxCompressedSizeBytes bounds the compressed representation a
	// sidechain may declare at registration.
	MaxCompressedSizeBytes = 130048
)

// CheckTypeSizes verifies that the compiled-in protocol constants agree with
// the sizes reported by the underlying field arithmetic library. All
// downstream size arithmetic assumes the match, so a mismatch aborts the
// process.
func CheckTypeSizes() {
	if FieldByteSize != fr.Bytes {
		panic(fmt.Sprintf("cctp: field element size mismatch: %d (library reports %d)",
			FieldByteSize, fr.Bytes))
	}
	if FieldBitSize != fr.Bits {
		panic(fmt.Sprintf("cctp: field element bit size mismatch: %d (library reports %d)",
			FieldBitSize, fr.Bits))
	}
	if mimc.NewMiMC().Size() != FieldByteSize {
		panic(fmt.Sprintf("cctp: digest size mismatch: hash returns %d, want %d",
			mimc.NewMiMC().Size(), FieldByteSize))
	}
	if MaxBitVectorSizeBits%FieldBitSize != 0 || MaxBitVectorSizeBits%8 != 0 {
		panic(fmt.Sprintf("cctp: max bit vector size %d is not divisible by %d and 8",
			MaxBitVectorSizeBits, FieldBitSize))
	}
	if BitVectorSizeInBytes > MaxBitVectorSizeBits/8 {
		panic(fmt.Sprintf("cctp: bit vector size %d exceeds the declared maximum %d",
			BitVectorSizeInBytes, MaxBitVectorSizeBits/8))
	}
}

// FieldElement is the canonical fixed-size byte string accepted by the proof
// system as a scalar. The zero value is the Null element, which the library
// never produces; any non-null instance round-trips through the library's
// deserializer.
type FieldElement struct {
	b []byte
}

// NewFieldElement builds a field element from its canonical serialized form.
// The input must be exactly FieldByteSize bytes and must deserialize as a
// scalar (big-endian, below the field modulus).
func NewFieldElement(b []byte) (FieldElement, error) {
	if len(b) != FieldByteSize {
		return FieldElement{}, fmt.Errorf("invalid field element length of %d, want %d",
			len(b), FieldByteSize)
	}
	var e fr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return FieldElement{}, err
	}
	out := make([]byte, FieldByteSize)
	copy(out, b)
	return FieldElement{b: out}, nil
}

func newFieldElementFromScalar(e *fr.Element) FieldElement {
	raw := e.Bytes()
	return FieldElement{b: raw[:]}
}

// IsNull reports whether the element is the Null value.
func (fe FieldElement) IsNull() bool {
	return len(fe.b) == 0
}

// Bytes returns a copy of the canonical encoding, or nil for Null.
func (fe FieldElement) Bytes() []byte {
	if fe.IsNull() {
		return nil
	}
	out := make([]byte, FieldByteSize)
	copy(out, fe.b)
	return out
}

// IsEqual returns true if target encodes the same scalar (or both are Null).
func (fe FieldElement) IsEqual(target FieldElement) bool {
	if fe.IsNull() || target.IsNull() {
		return fe.IsNull() == target.IsNull()
	}
	for i := range fe.b {
		if fe.b[i] != target.b[i] {
			return false
		}
	}
	return true
}

// String returns the hex representation of the canonical encoding. Null
// renders as the all-zero string so callers can print it unconditionally.
func (fe FieldElement) String() string {
	if fe.IsNull() {
		return hex.EncodeToString(make([]byte, FieldByteSize))
	}
	return hex.EncodeToString(fe.b)
}

// ReduceToFieldElement maps an arbitrary byte string into the scalar field by
// modular reduction. Unlike NewFieldElement this never fails on in-range
// inputs of any length; it is how non-field data such as hashes enters the
// commitment tree.
func ReduceToFieldElement(b []byte) FieldElement {
	var e fr.Element
	e.SetBytes(b)
	return newFieldElementFromScalar(&e)
}

// HashFieldElements computes the SNARK-friendly two-to-one compression of the
// operands. Hashing a Null element is a caller bug.
func HashFieldElements(lhs, rhs FieldElement) (FieldElement, error) {
	if lhs.IsNull() || rhs.IsNull() {
		return FieldElement{}, fmt.Errorf("cannot hash null field elements")
	}
	h := mimc.NewMiMC()
	if _, err := h.Write(lhs.b); err != nil {
		return FieldElement{}, err
	}
	if _, err := h.Write(rhs.b); err != nil {
		return FieldElement{}, err
	}
	sum := h.Sum(nil)
	var e fr.Element
	if err := e.SetBytesCanonical(sum); err != nil {
		return FieldElement{}, err
	}
	return newFieldElementFromScalar(&e), nil
}
