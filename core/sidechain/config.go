package sidechain

import (
	"github.com/zenoproject/zeno/crypto/cctp"
)

// FieldElementCertificateFieldConfig declares, at sidechain registration
// time, the bit size a field-element-typed custom field must carry. It is an
// immutable value object; equality is plain value equality and is used only
// to decide validation-cache reuse.
type FieldElementCertificateFieldConfig struct {
	BitSize int32
}

// IsValid reports whether the declared bit size fits a field element.
func (cfg FieldElementCertificateFieldConfig) IsValid() bool {
	return cfg.BitSize > 0 && cfg.BitSize <= cctp.FieldByteSize*8
}

// BitVectorCertificateFieldConfig declares the uncompressed bit-vector length
// and the compressed-size bound for a bit-vector-typed custom field.
type BitVectorCertificateFieldConfig struct {
	BitVectorSizeBits      int32
	MaxCompressedSizeBytes int32
}

// IsValid checks the registration-time constraints: the bit-vector length
// must be positive, bounded, and divisible by both the field capacity unit
// and 8; the compressed bound must be positive and bounded.
func (cfg BitVectorCertificateFieldConfig) IsValid() bool {
	if cfg.BitVectorSizeBits <= 0 || cfg.BitVectorSizeBits > cctp.MaxBitVectorSizeBits {
		return false
	}
	if cfg.BitVectorSizeBits%cctp.FieldBitSize != 0 || cfg.BitVectorSizeBits%8 != 0 {
		return false
	}
	if cfg.MaxCompressedSizeBytes <= 0 || cfg.MaxCompressedSizeBytes > cctp.MaxCompressedSizeBytes {
		return false
	}
	return true
}
