// Copyright 2017-2018 The nox developers

package types

import (
	"bytes"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/crypto/cctp"
)

func sampleTx() *Transaction {
	tx := NewTransaction()
	tx.AddTxIn(&TxInput{
		PreviousOut: OutPoint{Hash: hash.ZeroHash, Index: NullPrevOutIndex},
		SignScript:  []byte{0x04, 0xff, 0xff, 0x00, 0x1d},
		Sequence:    MaxTxInSequenceNum,
	})
	tx.AddTxOut(&TxOutput{Amount: 50 * 1e8, PkScript: []byte{0x51}})
	return tx
}

func sampleCert() *Certificate {
	cert := &Certificate{
		Version:     1,
		EpochNumber: 7,
		Quality:     100,
		Proof:       bytes.Repeat([]byte{0xab}, 8),
		FieldElementCertificateFields: []*sidechain.FieldElementCertificateField{
			sidechain.NewFieldElementCertificateField([]byte{0x01}),
		},
		BitVectorCertificateFields: []*sidechain.BitVectorCertificateField{
			sidechain.NewBitVectorCertificateField([]byte{cctp.BitVectorUncompressed, 0x00}),
		},
		BackwardTransfers: []BackwardTransfer{
			{Amount: 1234},
		},
	}
	cert.ScID[0] = 0x22
	cert.EndEpochCumScTxsCommTreeRoot[31] = 0x05
	cert.BackwardTransfers[0].PubKeyHash[0] = 0x99
	return cert
}

func TestTransactionSerialize(t *testing.T) {
	tx := sampleTx()
	assert.True(t, tx.IsCoinBase())

	var buf bytes.Buffer
	assert.NoError(t, tx.Serialize(&buf))
	assert.Equal(t, tx.SerializeSize(), buf.Len())

	var decoded Transaction
	assert.NoError(t, decoded.Deserialize(bytes.NewReader(buf.Bytes())))
	if !assert.Equal(t, tx.TxHash(), decoded.TxHash()) {
		t.Log(spew.Sdump(tx), spew.Sdump(&decoded))
	}

	// Spending a real outpoint is not a coinbase.
	tx.TxIn[0].PreviousOut.Index = 0
	assert.False(t, tx.IsCoinBase())
}

func TestCertificateSerialize(t *testing.T) {
	cert := sampleCert()

	var buf bytes.Buffer
	assert.NoError(t, cert.Serialize(&buf))
	assert.Equal(t, cert.SerializeSize(), buf.Len())

	var decoded Certificate
	assert.NoError(t, decoded.Deserialize(bytes.NewReader(buf.Bytes())))
	if !assert.Equal(t, cert.CertHash(), decoded.CertHash()) {
		t.Log(spew.Sdump(cert), spew.Sdump(&decoded))
	}
	assert.Equal(t, cert.ScID, decoded.ScID)
	assert.Equal(t, 1, len(decoded.FieldElementCertificateFields))
	assert.Equal(t, []byte{0x01}, decoded.FieldElementCertificateFields[0].RawData())
	assert.Equal(t, 1, len(decoded.BitVectorCertificateFields))
	assert.Equal(t, cert.BackwardTransfers, decoded.BackwardTransfers)
}

func TestBlockSerialize(t *testing.T) {
	block := &Block{
		Header: BlockHeader{
			Version:   1,
			Timestamp: time.Unix(1726000000, 0),
			Bits:      0x1d00ffff,
			Nonce:     42,
		},
		Transactions: []*Transaction{sampleTx()},
		Certificates: []*Certificate{sampleCert()},
	}
	block.Header.PrevBlock[0] = 0x11

	var buf bytes.Buffer
	assert.NoError(t, block.Serialize(&buf))
	assert.Equal(t, block.SerializeSize(), buf.Len())

	var decoded Block
	assert.NoError(t, decoded.Deserialize(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, block.BlockHash(), decoded.BlockHash())
	assert.Equal(t, 1, len(decoded.Transactions))
	assert.Equal(t, 1, len(decoded.Certificates))

	// SerializedBlock caches the hash and carries the assigned height.
	sb, err := NewBlockFromBytes(buf.Bytes())
	assert.NoError(t, err)
	wantHash := block.BlockHash()
	assert.True(t, sb.Hash().IsEqual(&wantHash))
	sb.SetHeight(9)
	assert.Equal(t, uint64(9), sb.Height())

	raw, err := sb.Bytes()
	assert.NoError(t, err)
	assert.Equal(t, buf.Bytes(), raw)

	// Truncated input fails.
	_, err = NewBlockFromBytes(buf.Bytes()[:buf.Len()-3])
	assert.Error(t, err)
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	hdr := BlockHeader{
		Version:   1,
		Timestamp: time.Unix(1726001234, 0),
		Bits:      0x207fffff,
		Nonce:     0xdeadbeef,
	}
	hdr.MerkleRoot[3] = 0x33
	hdr.ScTxsCommitment[4] = 0x44

	var buf bytes.Buffer
	assert.NoError(t, hdr.Serialize(&buf))

	var decoded BlockHeader
	assert.NoError(t, decoded.Deserialize(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, hdr.BlockHash(), decoded.BlockHash())
	assert.Equal(t, hdr.Timestamp.Unix(), decoded.Timestamp.Unix())
}
