// Copyright 2017-2018 The nox developers

package types

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zenoproject/zeno/common/hash"
	s "github.com/zenoproject/zeno/core/serialization"
)

// MaxTxInSequenceNum is the maximum sequence number a transaction input can
// carry.
const MaxTxInSequenceNum uint32 = 0xffffffff

// NullPrevOutIndex is the previous output index used by the coinbase input.
const NullPrevOutIndex uint32 = 0xffffffff

// minTxPayload is the minimum payload size for any transaction.
const minTxPayload = 10

// maxScriptSize bounds any single script carried by a transaction.
const maxScriptSize = 10000

// maxTxInPerTx and maxTxOutPerTx bound the input and output counts a decoder
// will accept.
const (
	maxTxInPerTx  = 10000
	maxTxOutPerTx = 10000
)

// OutPoint identifies a previous transaction output.
type OutPoint struct {
	Hash  hash.Hash
	Index uint32
}

// NewOutPoint returns a new outpoint with the provided hash and index.
func NewOutPoint(h *hash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *h, Index: index}
}

// String returns the outpoint in hash:index form.
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash, o.Index)
}

// TxInput spends a previous output.
type TxInput struct {
	PreviousOut OutPoint
	SignScript  []byte
	Sequence    uint32
}

// TxOutput creates a new spendable output.
type TxOutput struct {
	Amount   uint64
	PkScript []byte
}

// Transaction is the basic value-transfer unit. Certificates are a separate
// type; a block carries both.
type Transaction struct {
	Version  uint32
	TxIn     []*TxInput
	TxOut    []*TxOutput
	LockTime uint32
}

// NewTransaction returns an empty transaction with the current version.
func NewTransaction() *Transaction {
	return &Transaction{Version: 1}
}

// AddTxIn adds a transaction input.
func (tx *Transaction) AddTxIn(ti *TxInput) {
	tx.TxIn = append(tx.TxIn, ti)
}

// AddTxOut adds a transaction output.
func (tx *Transaction) AddTxOut(to *TxOutput) {
	tx.TxOut = append(tx.TxOut, to)
}

// IsCoinBase determines whether a transaction is the block-subsidy
// transaction: exactly one input spending the null previous outpoint.
func (tx *Transaction) IsCoinBase() bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prevOut := &tx.TxIn[0].PreviousOut
	return prevOut.Index == NullPrevOutIndex && prevOut.Hash.IsEqual(&hash.ZeroHash)
}

// TxHash generates the hash for the transaction.
func (tx *Transaction) TxHash() hash.Hash {
	var buf bytes.Buffer
	_ = tx.Serialize(&buf)
	return hash.DoubleHashH(buf.Bytes())
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (tx *Transaction) SerializeSize() int {
	n := 8 + s.VarIntSerializeSize(uint64(len(tx.TxIn))) +
		s.VarIntSerializeSize(uint64(len(tx.TxOut)))
	for _, ti := range tx.TxIn {
		n += hash.HashSize + 8 +
			s.VarIntSerializeSize(uint64(len(ti.SignScript))) + len(ti.SignScript)
	}
	for _, to := range tx.TxOut {
		n += 8 + s.VarIntSerializeSize(uint64(len(to.PkScript))) + len(to.PkScript)
	}
	return n
}

// Serialize encodes the transaction to w.
func (tx *Transaction) Serialize(w io.Writer) error {
	if err := s.WriteElements(w, tx.Version); err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, ti := range tx.TxIn {
		if err := s.WriteElements(w, &ti.PreviousOut.Hash, ti.PreviousOut.Index); err != nil {
			return err
		}
		if err := s.WriteVarBytes(w, ti.SignScript); err != nil {
			return err
		}
		if err := s.WriteElements(w, ti.Sequence); err != nil {
			return err
		}
	}
	if err := s.WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, to := range tx.TxOut {
		if err := s.WriteElements(w, to.Amount); err != nil {
			return err
		}
		if err := s.WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}
	return s.WriteElements(w, tx.LockTime)
}

// Deserialize decodes a transaction from r into the receiver.
func (tx *Transaction) Deserialize(r io.Reader) error {
	if err := s.ReadElements(r, &tx.Version); err != nil {
		return err
	}
	inCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if inCount > maxTxInPerTx {
		return fmt.Errorf("too many inputs to fit into a tx [count %d, max %d]",
			inCount, maxTxInPerTx)
	}
	tx.TxIn = make([]*TxInput, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		ti := &TxInput{}
		if err := s.ReadElements(r, &ti.PreviousOut.Hash, &ti.PreviousOut.Index); err != nil {
			return err
		}
		ti.SignScript, err = s.ReadVarBytes(r, maxScriptSize, "input sign script")
		if err != nil {
			return err
		}
		if err := s.ReadElements(r, &ti.Sequence); err != nil {
			return err
		}
		tx.TxIn = append(tx.TxIn, ti)
	}
	outCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > maxTxOutPerTx {
		return fmt.Errorf("too many outputs to fit into a tx [count %d, max %d]",
			outCount, maxTxOutPerTx)
	}
	tx.TxOut = make([]*TxOutput, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		to := &TxOutput{}
		if err := s.ReadElements(r, &to.Amount); err != nil {
			return err
		}
		to.PkScript, err = s.ReadVarBytes(r, maxScriptSize, "output script")
		if err != nil {
			return err
		}
		tx.TxOut = append(tx.TxOut, to)
	}
	return s.ReadElements(r, &tx.LockTime)
}

// Tx wraps a Transaction with its memoized hash so repeated lookups do not
// re-serialize.
type Tx struct {
	Tx      *Transaction
	hash    hash.Hash
	hasHash bool
}

// NewTx returns the wrapped transaction.
func NewTx(t *Transaction) *Tx {
	return &Tx{Tx: t}
}

// Hash returns the memoized transaction hash.
func (t *Tx) Hash() *hash.Hash {
	if !t.hasHash {
		t.hash = t.Tx.TxHash()
		t.hasHash = true
	}
	return &t.hash
}

// Transaction returns the underlying transaction.
func (t *Tx) Transaction() *Transaction {
	return t.Tx
}
