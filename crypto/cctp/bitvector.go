package cctp

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/golang/snappy"
)

// Compression algorithm tags. A serialized bit vector is a one byte tag
// followed by the (possibly compressed) payload.
const (
	BitVectorUncompressed byte = 0
	BitVectorGzip         byte = 1
	BitVectorSnappy       byte = 2
)

// leafDataSize is the number of raw bit-vector bytes packed into each merkle
// leaf. 31 bytes always fit below the field modulus.
const leafDataSize = FieldByteSize - 1

// CompressBitVector serializes an uncompressed bit vector with the requested
// algorithm tag.
func CompressBitVector(raw []byte, algo byte) ([]byte, error) {
	switch algo {
	case BitVectorUncompressed:
		out := make([]byte, 1+len(raw))
		out[0] = BitVectorUncompressed
		copy(out[1:], raw)
		return out, nil

	case BitVectorGzip:
		var buf bytes.Buffer
		buf.WriteByte(BitVectorGzip)
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case BitVectorSnappy:
		enc := snappy.Encode(nil, raw)
		out := make([]byte, 1+len(enc))
		out[0] = BitVectorSnappy
		copy(out[1:], enc)
		return out, nil
	}
	return nil, fmt.Errorf("unknown bit vector compression algorithm %d", algo)
}

// DecompressBitVector expands a serialized bit vector and enforces the
// expected uncompressed size. Corrupt payloads, unknown tags and size
// mismatches are all errors.
func DecompressBitVector(buf []byte, expectedSize int) ([]byte, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty bit vector buffer")
	}

	var raw []byte
	switch buf[0] {
	case BitVectorUncompressed:
		raw = buf[1:]

	case BitVectorGzip:
		zr, err := gzip.NewReader(bytes.NewReader(buf[1:]))
		if err != nil {
			return nil, fmt.Errorf("corrupt gzip bit vector: %w", err)
		}
		// Read one byte past the expected size so oversized payloads are
		// detected without inflating them fully.
		raw, err = io.ReadAll(io.LimitReader(zr, int64(expectedSize)+1))
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("corrupt gzip bit vector: %w", err)
		}

	case BitVectorSnappy:
		var err error
		raw, err = snappy.Decode(nil, buf[1:])
		if err != nil {
			return nil, fmt.Errorf("corrupt snappy bit vector: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown bit vector compression algorithm %d", buf[0])
	}

	if len(raw) != expectedSize {
		return nil, fmt.Errorf("invalid uncompressed bit vector size %d, want %d",
			len(raw), expectedSize)
	}
	return raw, nil
}

// BitVectorMerkleRoot decompresses a serialized bit vector, checks it against
// the expected uncompressed size and returns the merkle root committing to
// its contents.
func BitVectorMerkleRoot(compressed []byte, expectedSize int) (FieldElement, error) {
	raw, err := DecompressBitVector(compressed, expectedSize)
	if err != nil {
		return FieldElement{}, err
	}
	return merkleRootFromBytes(raw)
}

// merkleRootFromBytes lifts the raw vector into field element leaves of
// leafDataSize bytes each (left zero padded to the canonical size) and folds
// them with the two-to-one hash, duplicating an odd tail node.
func merkleRootFromBytes(raw []byte) (FieldElement, error) {
	if len(raw) == 0 {
		return FieldElement{}, fmt.Errorf("empty bit vector")
	}

	numLeaves := (len(raw) + leafDataSize - 1) / leafDataSize
	level := make([]FieldElement, 0, numLeaves)
	for off := 0; off < len(raw); off += leafDataSize {
		end := off + leafDataSize
		if end > len(raw) {
			end = len(raw)
		}
		var buf [FieldByteSize]byte
		copy(buf[FieldByteSize-(end-off):], raw[off:end])
		var e fr.Element
		if err := e.SetBytesCanonical(buf[:]); err != nil {
			return FieldElement{}, err
		}
		level = append(level, newFieldElementFromScalar(&e))
	}
	return MerkleRootOfFieldElements(level)
}

// MerkleRootOfFieldElements folds the leaves with the two-to-one hash,
// duplicating an odd tail node, until a single root remains.
func MerkleRootOfFieldElements(leaves []FieldElement) (FieldElement, error) {
	if len(leaves) == 0 {
		return FieldElement{}, fmt.Errorf("no leaves to fold")
	}
	level := leaves
	for len(level) > 1 {
		next := make([]FieldElement, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			rhs := level[i]
			if i+1 < len(level) {
				rhs = level[i+1]
			}
			parent, err := HashFieldElements(level[i], rhs)
			if err != nil {
				return FieldElement{}, err
			}
			next = append(next, parent)
		}
		level = next
	}
	return level[0], nil
}
