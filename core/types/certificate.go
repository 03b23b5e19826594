// Copyright 2017-2018 The nox developers

package types

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zenoproject/zeno/common/hash"
	s "github.com/zenoproject/zeno/core/serialization"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/crypto/cctp"
)

// maxCustomFieldsPerCert bounds the custom field slots a decoder will accept.
const maxCustomFieldsPerCert = 64

// maxBackwardTransfersPerCert bounds the backward transfer outputs a decoder
// will accept.
const maxBackwardTransfersPerCert = 4000

// BackwardTransfer pays coins from a sidechain back to a mainchain pubkey
// hash. It has no script; the destination is fixed by consensus.
type BackwardTransfer struct {
	Amount     uint64
	PubKeyHash [20]byte
}

// Certificate is a withdrawal certificate issued by a sidechain for one of
// its epochs. The custom field slots carry sidechain-defined payloads whose
// shape is declared in the sidechain registration, never in the certificate
// itself.
type Certificate struct {
	Version     uint32
	ScID        hash.Hash
	EpochNumber uint32
	Quality     uint64

	// EndEpochCumScTxsCommTreeRoot is the cumulative commitment tree root
	// at the end of the referenced epoch, in canonical field element form.
	EndEpochCumScTxsCommTreeRoot [cctp.FieldByteSize]byte

	Proof []byte

	FieldElementCertificateFields []*sidechain.FieldElementCertificateField
	BitVectorCertificateFields    []*sidechain.BitVectorCertificateField

	BackwardTransfers []BackwardTransfer
}

// CertHash generates the hash for the certificate.
func (c *Certificate) CertHash() hash.Hash {
	var buf bytes.Buffer
	_ = c.Serialize(&buf)
	return hash.DoubleHashH(buf.Bytes())
}

// SerializeSize returns the number of bytes it would take to serialize the
// certificate.
func (c *Certificate) SerializeSize() int {
	var buf bytes.Buffer
	_ = c.Serialize(&buf)
	return buf.Len()
}

// Serialize encodes the certificate to w.
func (c *Certificate) Serialize(w io.Writer) error {
	err := s.WriteElements(w, c.Version, &c.ScID, c.EpochNumber, c.Quality,
		c.EndEpochCumScTxsCommTreeRoot)
	if err != nil {
		return err
	}
	if err := s.WriteVarBytes(w, c.Proof); err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(c.FieldElementCertificateFields))); err != nil {
		return err
	}
	for _, f := range c.FieldElementCertificateFields {
		if err := s.WriteVarBytes(w, f.RawData()); err != nil {
			return err
		}
	}
	if err := s.WriteVarInt(w, uint64(len(c.BitVectorCertificateFields))); err != nil {
		return err
	}
	for _, f := range c.BitVectorCertificateFields {
		if err := s.WriteVarBytes(w, f.RawData()); err != nil {
			return err
		}
	}
	if err := s.WriteVarInt(w, uint64(len(c.BackwardTransfers))); err != nil {
		return err
	}
	for i := range c.BackwardTransfers {
		bt := &c.BackwardTransfers[i]
		if err := s.WriteElements(w, bt.Amount, bt.PubKeyHash); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a certificate from r into the receiver.
func (c *Certificate) Deserialize(r io.Reader) error {
	err := s.ReadElements(r, &c.Version, &c.ScID, &c.EpochNumber, &c.Quality,
		&c.EndEpochCumScTxsCommTreeRoot)
	if err != nil {
		return err
	}
	c.Proof, err = s.ReadVarBytes(r, cctp.ProofByteSize, "certificate proof")
	if err != nil {
		return err
	}

	feCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if feCount > maxCustomFieldsPerCert {
		return fmt.Errorf("too many field element slots in a certificate "+
			"[count %d, max %d]", feCount, maxCustomFieldsPerCert)
	}
	c.FieldElementCertificateFields = make([]*sidechain.FieldElementCertificateField, 0, feCount)
	for i := uint64(0); i < feCount; i++ {
		raw, err := s.ReadVarBytes(r, cctp.MaxCustomDataSize, "field element slot")
		if err != nil {
			return err
		}
		c.FieldElementCertificateFields = append(c.FieldElementCertificateFields,
			sidechain.NewFieldElementCertificateField(raw))
	}

	bvCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if bvCount > maxCustomFieldsPerCert {
		return fmt.Errorf("too many bit vector slots in a certificate "+
			"[count %d, max %d]", bvCount, maxCustomFieldsPerCert)
	}
	c.BitVectorCertificateFields = make([]*sidechain.BitVectorCertificateField, 0, bvCount)
	for i := uint64(0); i < bvCount; i++ {
		raw, err := s.ReadVarBytes(r, cctp.MaxCompressedSizeBytes+1, "bit vector slot")
		if err != nil {
			return err
		}
		c.BitVectorCertificateFields = append(c.BitVectorCertificateFields,
			sidechain.NewBitVectorCertificateField(raw))
	}

	btCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if btCount > maxBackwardTransfersPerCert {
		return fmt.Errorf("too many backward transfers in a certificate "+
			"[count %d, max %d]", btCount, maxBackwardTransfersPerCert)
	}
	c.BackwardTransfers = make([]BackwardTransfer, btCount)
	for i := uint64(0); i < btCount; i++ {
		bt := &c.BackwardTransfers[i]
		if err := s.ReadElements(r, &bt.Amount, &bt.PubKeyHash); err != nil {
			return err
		}
	}
	return nil
}

// Cert wraps a Certificate with its memoized hash.
type Cert struct {
	Cert    *Certificate
	hash    hash.Hash
	hasHash bool
}

// NewCert returns the wrapped certificate.
func NewCert(c *Certificate) *Cert {
	return &Cert{Cert: c}
}

// Hash returns the memoized certificate hash.
func (c *Cert) Hash() *hash.Hash {
	if !c.hasHash {
		c.hash = c.Cert.CertHash()
		c.hasHash = true
	}
	return &c.hash
}

// Certificate returns the underlying certificate.
func (c *Cert) Certificate() *Certificate {
	return c.Cert
}
