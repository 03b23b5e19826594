package sidechain

import (
	"math/bits"

	"github.com/zenoproject/zeno/crypto/cctp"
)

// validationState tracks the memoized outcome of validating a custom field
// against its reference config. The cache key is the (raw data, config) pair:
// raw data is immutable after construction, so a state other than
// vsNotInitialized is reusable whenever the incoming config equals the stored
// reference config by value.
type validationState uint8

const (
	vsNotInitialized validationState = iota
	vsInvalid
	vsValid
)

// FieldElementCertificateField is a certificate payload slot carrying the
// big-endian-justified encoding of a bounded-bit-size scalar. The raw bytes
// are set at construction and validated lazily against the sidechain's
// registered config.
type FieldElementCertificateField struct {
	rawData []byte

	state        validationState
	refCfg       *FieldElementCertificateFieldConfig
	fieldElement cctp.FieldElement
}

// NewFieldElementCertificateField wraps the wire bytes of a field-element
// typed custom field. No validation happens until a config is supplied.
func NewFieldElementCertificateField(rawData []byte) *FieldElementCertificateField {
	raw := make([]byte, len(rawData))
	copy(raw, rawData)
	return &FieldElementCertificateField{rawData: raw}
}

// RawData returns a copy of the wire bytes.
func (f *FieldElementCertificateField) RawData() []byte {
	out := make([]byte, len(f.rawData))
	copy(out, f.rawData)
	return out
}

// Copy returns a field with the same raw data and a cold validation cache.
func (f *FieldElementCertificateField) Copy() *FieldElementCertificateField {
	return NewFieldElementCertificateField(f.rawData)
}

// IsValid reports whether the raw data canonicalizes under cfg.
func (f *FieldElementCertificateField) IsValid(cfg FieldElementCertificateFieldConfig) bool {
	return !f.GetFieldElement(cfg).IsNull()
}

// GetFieldElement validates the raw data against cfg and returns the
// canonical field element, or the Null element on any failure. The result is
// memoized per config value; supplying a different config discards the stored
// reference config and revalidates.
func (f *FieldElementCertificateField) GetFieldElement(cfg FieldElementCertificateFieldConfig) cctp.FieldElement {
	if f.state != vsNotInitialized && f.refCfg != nil {
		if *f.refCfg == cfg {
			return f.fieldElement
		}
		// revalidate with the new cfg
		f.refCfg = nil
	}

	f.state = vsInvalid
	f.fieldElement = cctp.FieldElement{}
	cfgCopy := cfg
	f.refCfg = &cfgCopy

	if !cfg.IsValid() {
		log.Debug("Field element custom field checked against an invalid config",
			"bitsize", cfg.BitSize)
		return f.fieldElement
	}

	bytesNeeded := int(cfg.BitSize+7) / 8
	rem := bytesNeeded*8 - int(cfg.BitSize)

	if len(f.rawData) != bytesNeeded {
		log.Debug("Wrong custom field size", "size", len(f.rawData),
			"cfgbits", cfg.BitSize, "want", bytesNeeded)
		return f.fieldElement
	}

	if rem > 0 {
		// The low rem bits of the last byte are reserved zero padding.
		lastByte := f.rawData[len(f.rawData)-1]
		if bits.TrailingZeros8(lastByte) < rem {
			log.Debug("Wrong number of null bits in last custom field byte",
				"lastbyte", lastByte, "want", rem)
			return f.fieldElement
		}
	}

	// Zero extend on the left so the raw bytes occupy the low-order end of
	// the canonical buffer.
	extended := make([]byte, cctp.FieldByteSize)
	copy(extended[cctp.FieldByteSize-bytesNeeded:], f.rawData)

	fe, err := cctp.NewFieldElement(extended)
	if err != nil {
		log.Debug("Custom field does not deserialize as a field element", "error", err)
		return f.fieldElement
	}

	f.fieldElement = fe
	f.state = vsValid
	return f.fieldElement
}

// BitVectorCertificateField is a certificate payload slot carrying the
// compressed encoding of a fixed-size bit vector. Validation decompresses it
// and canonicalizes it to the merkle root over the vector.
type BitVectorCertificateField struct {
	rawData []byte

	state        validationState
	refCfg       *BitVectorCertificateFieldConfig
	fieldElement cctp.FieldElement
}

// NewBitVectorCertificateField wraps the wire bytes of a bit-vector typed
// custom field.
func NewBitVectorCertificateField(rawData []byte) *BitVectorCertificateField {
	raw := make([]byte, len(rawData))
	copy(raw, rawData)
	return &BitVectorCertificateField{rawData: raw}
}

// RawData returns a copy of the wire bytes.
func (f *BitVectorCertificateField) RawData() []byte {
	out := make([]byte, len(f.rawData))
	copy(out, f.rawData)
	return out
}

// Copy returns a field with the same raw data and a cold validation cache.
func (f *BitVectorCertificateField) Copy() *BitVectorCertificateField {
	return NewBitVectorCertificateField(f.rawData)
}

// IsValid reports whether the compressed data canonicalizes under cfg.
func (f *BitVectorCertificateField) IsValid(cfg BitVectorCertificateFieldConfig) bool {
	return !f.GetFieldElement(cfg).IsNull()
}

// GetFieldElement validates the compressed bit vector against cfg and returns
// the merkle root over the uncompressed vector, or the Null element on any
// failure. Memoization follows the same (raw data, config) contract as the
// field-element variant.
//
// The decompression is always checked against the protocol-wide uncompressed
// size, not a size derived from cfg.BitVectorSizeBits: the current protocol
// revision pins a single global bit-vector length.
func (f *BitVectorCertificateField) GetFieldElement(cfg BitVectorCertificateFieldConfig) cctp.FieldElement {
	if f.state != vsNotInitialized && f.refCfg != nil {
		if *f.refCfg == cfg {
			return f.fieldElement
		}
		// revalidate with the new cfg
		f.refCfg = nil
	}

	f.state = vsInvalid
	f.fieldElement = cctp.FieldElement{}
	cfgCopy := cfg
	f.refCfg = &cfgCopy

	if !cfg.IsValid() {
		log.Debug("Bit vector custom field checked against an invalid config",
			"bits", cfg.BitVectorSizeBits, "maxcompressed", cfg.MaxCompressedSizeBytes)
		return f.fieldElement
	}

	if len(f.rawData) > int(cfg.MaxCompressedSizeBytes) {
		log.Debug("Compressed bit vector exceeds the registered bound",
			"size", len(f.rawData), "max", cfg.MaxCompressedSizeBytes)
		return f.fieldElement
	}

	fe, err := cctp.BitVectorMerkleRoot(f.rawData, cctp.BitVectorSizeInBytes)
	if err != nil {
		log.Debug("Could not get merkle root from compressed bit vector",
			"size", len(f.rawData), "expuncompressed", cctp.BitVectorSizeInBytes,
			"error", err)
		return f.fieldElement
	}

	f.fieldElement = fe
	f.state = vsValid
	return f.fieldElement
}
