// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
)

// UtxoEntry houses details about an individual transaction output in a utxo
// view such as whether or not it was contained in a coinbase tx, the height
// of the block that contains the tx, and whether or not it is spent.
type UtxoEntry struct {
	amount      uint64
	pkScript    []byte
	blockHeight uint64
	isCoinBase  bool
	spent       bool
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() uint64 {
	return entry.amount
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.pkScript
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() uint64 {
	return entry.blockHeight
}

// IsCoinBase returns whether or not the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.isCoinBase
}

// IsSpent returns whether or not the output has been spent within the view.
func (entry *UtxoEntry) IsSpent() bool {
	return entry.spent
}

// Spend marks the output as spent.
func (entry *UtxoEntry) Spend() {
	entry.spent = true
}

// UtxoViewpoint represents a view into the set of unspent transaction outputs
// from a specific point of view in the chain.  It also resolves sidechain
// registrations, which certificate validation and commitment building need
// alongside the spendable outputs.
type UtxoViewpoint struct {
	entries  map[types.OutPoint]*UtxoEntry
	bestHash hash.Hash

	registry registrationSource
}

// registrationSource resolves sidechain ids to their registrations.  The
// chain's registry implements it.
type registrationSource interface {
	lookup(scID *hash.Hash) *sidechain.Registration
}

// NewUtxoViewpoint returns a new empty unspent transaction output view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{
		entries: make(map[types.OutPoint]*UtxoEntry),
	}
}

// BestHash returns the hash of the best block in the chain the view currently
// represents.
func (view *UtxoViewpoint) BestHash() *hash.Hash {
	return &view.bestHash
}

// SetBestHash sets the hash of the best block in the chain the view
// represents.
func (view *UtxoViewpoint) SetBestHash(h *hash.Hash) {
	view.bestHash = *h
}

// LookupEntry returns information about a given transaction output according
// to the current state of the view.  It will return nil if the passed output
// does not exist in the view.
func (view *UtxoViewpoint) LookupEntry(outpoint types.OutPoint) *UtxoEntry {
	return view.entries[outpoint]
}

// AddTxOuts adds all outputs in the passed transaction to the view.
func (view *UtxoViewpoint) AddTxOuts(tx *types.Transaction, blockHeight uint64) {
	isCoinBase := tx.IsCoinBase()
	txHash := tx.TxHash()
	for txOutIdx, txOut := range tx.TxOut {
		outpoint := types.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}
		view.entries[outpoint] = &UtxoEntry{
			amount:      txOut.Amount,
			pkScript:    txOut.PkScript,
			blockHeight: blockHeight,
			isCoinBase:  isCoinBase,
		}
	}
}

// SidechainRegistration resolves a sidechain id to its registration, or nil
// when the sidechain is unknown.  This satisfies the registration view the
// merkle package consumes.
func (view *UtxoViewpoint) SidechainRegistration(scID *hash.Hash) *sidechain.Registration {
	if view.registry == nil {
		return nil
	}
	return view.registry.lookup(scID)
}
