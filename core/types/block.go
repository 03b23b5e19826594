// Copyright 2017-2018 The nox developers

package types

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/zenoproject/zeno/common/hash"
	s "github.com/zenoproject/zeno/core/serialization"
)

// MaxBlockHeaderPayload is the maximum number of bytes a block header can be.
// Version 4 bytes + PrevBlock 32 bytes + MerkleRoot 32 bytes +
// ScTxsCommitment 32 bytes + Timestamp 4 bytes + Bits 4 bytes +
// Nonce 8 bytes.
const MaxBlockHeaderPayload = 4 + (hash.HashSize * 3) + 4 + 4 + 8

// MaxBlockPayload is the maximum bytes a block message can be in bytes.
const MaxBlockPayload = 4000000

// MaxBlockSigOps is the maximum number of signature operations allowed in a
// block.
const MaxBlockSigOps = MaxBlockPayload / 50

// maxTxPerBlock is the maximum number of transactions that could possibly fit
// into a block.
const maxTxPerBlock = (MaxBlockPayload / minTxPayload) + 1

// maxCertPerBlock bounds the certificate count a decoder will accept.
const maxCertPerBlock = 1024

// BlockHeader defines information about a block.
type BlockHeader struct {
	// block version
	Version uint32

	// hash of the previous block in the chain
	PrevBlock hash.Hash

	// merkle root over the block's transactions and certificates
	MerkleRoot hash.Hash

	// commitment to the sidechain-related content of the block, in
	// canonical field element form
	ScTxsCommitment hash.Hash

	Timestamp time.Time

	// difficulty target in compact form
	Bits uint32

	Nonce uint64
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() hash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	// Never fails for an in-memory buffer.
	_ = writeBlockHeader(buf, h)
	return hash.HashH(buf.Bytes())
}

func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	var sec uint32
	err := s.ReadElements(r, &bh.Version, &bh.PrevBlock, &bh.MerkleRoot,
		&bh.ScTxsCommitment, &sec, &bh.Bits, &bh.Nonce)
	if err != nil {
		return err
	}
	bh.Timestamp = time.Unix(int64(sec), 0)
	return nil
}

func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	sec := uint32(bh.Timestamp.Unix())
	return s.WriteElements(w, bh.Version, &bh.PrevBlock, &bh.MerkleRoot,
		&bh.ScTxsCommitment, sec, bh.Bits, bh.Nonce)
}

// Serialize encodes a block header to w using a format that is suitable for
// long-term storage such as a database.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes a block header from r into the receiver.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// Block carries the header plus the transaction and certificate lists.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
	Certificates []*Certificate
}

// BlockHash computes the block identifier hash for this block.
func (block *Block) BlockHash() hash.Hash {
	return block.Header.BlockHash()
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (block *Block) SerializeSize() int {
	n := MaxBlockHeaderPayload +
		s.VarIntSerializeSize(uint64(len(block.Transactions))) +
		s.VarIntSerializeSize(uint64(len(block.Certificates)))
	for _, tx := range block.Transactions {
		n += tx.SerializeSize()
	}
	for _, cert := range block.Certificates {
		n += cert.SerializeSize()
	}
	return n
}

// Serialize encodes the block to w.
func (block *Block) Serialize(w io.Writer) error {
	if err := writeBlockHeader(w, &block.Header); err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(block.Transactions))); err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	if err := s.WriteVarInt(w, uint64(len(block.Certificates))); err != nil {
		return err
	}
	for _, cert := range block.Certificates {
		if err := cert.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a block from r into the receiver.
func (block *Block) Deserialize(r io.Reader) error {
	if err := readBlockHeader(r, &block.Header); err != nil {
		return err
	}
	txCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if txCount > maxTxPerBlock {
		return fmt.Errorf("too many transactions to fit into a block "+
			"[count %d, max %d]", txCount, maxTxPerBlock)
	}
	block.Transactions = make([]*Transaction, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := &Transaction{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		block.Transactions = append(block.Transactions, tx)
	}
	certCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if certCount > maxCertPerBlock {
		return fmt.Errorf("too many certificates to fit into a block "+
			"[count %d, max %d]", certCount, maxCertPerBlock)
	}
	block.Certificates = make([]*Certificate, 0, certCount)
	for i := uint64(0); i < certCount; i++ {
		cert := &Certificate{}
		if err := cert.Deserialize(r); err != nil {
			return err
		}
		block.Certificates = append(block.Certificates, cert)
	}
	return nil
}

// SerializedBlock wraps a Block with memoized hash and height so repeated
// lookups during validation do not re-serialize.
type SerializedBlock struct {
	block   *Block
	hash    hash.Hash
	hasHash bool
	height  uint64
}

// NewBlock returns the wrapped block.
func NewBlock(b *Block) *SerializedBlock {
	return &SerializedBlock{block: b}
}

// NewBlockFromBytes deserializes raw into a wrapped block.
func NewBlockFromBytes(raw []byte) (*SerializedBlock, error) {
	b := &Block{}
	if err := b.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return NewBlock(b), nil
}

// Block returns the underlying block.
func (sb *SerializedBlock) Block() *Block {
	return sb.block
}

// Hash returns the memoized block hash.
func (sb *SerializedBlock) Hash() *hash.Hash {
	if !sb.hasHash {
		sb.hash = sb.block.BlockHash()
		sb.hasHash = true
	}
	return &sb.hash
}

// Height returns the height recorded for the block.
func (sb *SerializedBlock) Height() uint64 {
	return sb.height
}

// SetHeight records the block's height.
func (sb *SerializedBlock) SetHeight(height uint64) {
	sb.height = height
}

// Bytes returns the serialized form of the block.
func (sb *SerializedBlock) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := sb.block.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
