// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/common/roughtime"
	"github.com/zenoproject/zeno/core/types"
)

// TxPool is used as a source of transactions and certificates that need to
// be mined into blocks and relayed to other peers.  It is safe for
// concurrent access from multiple peers.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64  // last time pool was updated.
	updateCount uint64 // monotonic counter bumped on every pool mutation.

	mtx       sync.RWMutex
	cfg       Config
	pool      map[hash.Hash]*TxDesc
	certs     map[hash.Hash]*CertDesc
	outpoints map[types.OutPoint]*types.Tx
}

// New returns a new memory pool for validating and storing standalone
// transactions and certificates until they are mined into a block.
func New(cfg *Config) *TxPool {
	return &TxPool{
		cfg:       *cfg,
		pool:      make(map[hash.Hash]*TxDesc),
		certs:     make(map[hash.Hash]*CertDesc),
		outpoints: make(map[types.OutPoint]*types.Tx),
	}
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *types.Tx

	// Added is the time when the entry was added to the pool.
	Added time.Time

	// Height is the best block height when the entry was added to the
	// pool.
	Height uint64

	// Fee is the total fee the transaction associated with the entry
	// pays.
	Fee int64

	// SigOps is the number of signature operations of the transaction.
	SigOps int64
}

// CertDesc is a descriptor containing a certificate in the mempool along
// with additional metadata.
type CertDesc struct {
	// Cert is the certificate associated with the entry.
	Cert *types.Cert

	// Added is the time when the entry was added to the pool.
	Added time.Time

	// Height is the best block height when the entry was added to the
	// pool.
	Height uint64

	// Fee is the total fee the certificate associated with the entry
	// pays.
	Fee int64

	// SigOps is the number of signature operations of the certificate.
	SigOps int64
}

// poolChanged must be called after every mutation of the pool contents.  It
// advances both the timestamp and the monotonic update counter that the
// long poll machinery folds into the long poll id.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) poolChanged() {
	atomic.StoreInt64(&mp.lastUpdated, roughtime.Now().Unix())
	atomic.AddUint64(&mp.updateCount, 1)
}

// LastUpdated returns the last time a transaction was added to or removed
// from the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// UpdateCount returns a counter that increases monotonically with every
// mutation of the pool.  Two equal counter reads bracket an unchanged pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) UpdateCount() uint64 {
	return atomic.LoadUint64(&mp.updateCount)
}

// HaveTransaction returns whether or not the passed transaction already
// exists in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(h *hash.Hash) bool {
	mp.mtx.RLock()
	_, exists := mp.pool[*h]
	mp.mtx.RUnlock()
	return exists
}

// HaveCertificate returns whether or not the passed certificate already
// exists in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveCertificate(h *hash.Hash) bool {
	mp.mtx.RLock()
	_, exists := mp.certs[*h]
	mp.mtx.RUnlock()
	return exists
}

// maybeAcceptTransaction is the internal function which implements the
// public ProcessTransaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *types.Tx) (*TxDesc, error) {
	txHash := tx.Hash()

	// Don't accept the transaction if it already exists in the pool.
	if _, exists := mp.pool[*txHash]; exists {
		return nil, txRuleError(fmt.Sprintf("already have transaction %v",
			txHash))
	}

	// A standalone transaction must not be a coinbase transaction.
	if tx.Transaction().IsCoinBase() {
		return nil, txRuleError(fmt.Sprintf("transaction %v is an "+
			"individual coinbase", txHash))
	}

	// Don't allow non-standard oversized transactions.
	serializedSize := int64(tx.Transaction().SerializeSize())
	if mp.cfg.Policy.MaxTxSize > 0 && serializedSize > mp.cfg.Policy.MaxTxSize {
		return nil, txRuleError(fmt.Sprintf("transaction %v size of %d "+
			"is larger than max allowed size of %d", txHash,
			serializedSize, mp.cfg.Policy.MaxTxSize))
	}

	// The transaction may not spend an outpoint that is already spent by
	// another transaction in the pool.
	for _, txIn := range tx.Transaction().TxIn {
		if conflict, exists := mp.outpoints[txIn.PreviousOut]; exists {
			return nil, txRuleError(fmt.Sprintf("output %v already "+
				"spent by transaction %v in the memory pool",
				txIn.PreviousOut, conflict.Hash()))
		}
	}

	// Compute the fee from the utxo view when every input resolves.  An
	// unresolvable input leaves the fee at zero, which only affects
	// template ordering, not correctness.
	var fee int64
	view, err := mp.cfg.FetchUtxoView(tx.Transaction())
	if err == nil && view != nil {
		var totalIn, totalOut uint64
		resolved := true
		for _, txIn := range tx.Transaction().TxIn {
			entry := view.LookupEntry(txIn.PreviousOut)
			if entry == nil || entry.IsSpent() {
				resolved = false
				break
			}
			totalIn += entry.Amount()
		}
		for _, txOut := range tx.Transaction().TxOut {
			totalOut += txOut.Amount
		}
		if resolved && totalIn >= totalOut {
			fee = int64(totalIn - totalOut)
		}
	}

	txD := &TxDesc{
		Tx:     tx,
		Added:  roughtime.Now(),
		Height: mp.cfg.BestHeight(),
		Fee:    fee,
		SigOps: int64(len(tx.Transaction().TxIn)),
	}
	mp.pool[*txHash] = txD
	for _, txIn := range tx.Transaction().TxIn {
		mp.outpoints[txIn.PreviousOut] = tx
	}
	mp.poolChanged()

	log.Debug("Accepted transaction", "hash", txHash,
		"pooltxs", len(mp.pool))
	return txD, nil
}

// ProcessTransaction is the main workhorse for handling insertion of new
// free-standing transactions into the memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(tx *types.Tx) (*TxDesc, error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.maybeAcceptTransaction(tx)
}

// maybeAcceptCertificate is the internal function which implements the
// public ProcessCertificate.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptCertificate(cert *types.Cert, fee int64) (*CertDesc, error) {
	certHash := cert.Hash()

	if _, exists := mp.certs[*certHash]; exists {
		return nil, txRuleError(fmt.Sprintf("already have certificate %v",
			certHash))
	}

	// Certificates are only acceptable once sidechain support is active
	// for the next block.
	nextHeight := mp.cfg.BestHeight() + 1
	if !mp.cfg.ChainParams.AreSidechainsSupported(nextHeight) {
		return nil, txRuleError(fmt.Sprintf("certificate %v rejected: "+
			"sidechains activate at height %d, next block is %d",
			certHash, mp.cfg.ChainParams.SidechainForkHeight, nextHeight))
	}

	// The referenced sidechain must be registered and the custom field
	// slots must validate against the registered configs.
	reg := mp.cfg.SidechainRegistration(&cert.Certificate().ScID)
	if reg == nil {
		return nil, txRuleError(fmt.Sprintf("certificate %v references "+
			"unknown sidechain %s", certHash, cert.Certificate().ScID))
	}
	err := reg.ValidateCustomFields(
		cert.Certificate().FieldElementCertificateFields,
		cert.Certificate().BitVectorCertificateFields)
	if err != nil {
		return nil, txRuleError(fmt.Sprintf("certificate %v: %v",
			certHash, err))
	}

	certD := &CertDesc{
		Cert:   cert,
		Added:  roughtime.Now(),
		Height: mp.cfg.BestHeight(),
		Fee:    fee,
		SigOps: 1,
	}
	mp.certs[*certHash] = certD
	mp.poolChanged()

	log.Debug("Accepted certificate", "hash", certHash,
		"scid", cert.Certificate().ScID, "poolcerts", len(mp.certs))
	return certD, nil
}

// ProcessCertificate is the main workhorse for handling insertion of new
// free-standing certificates into the memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessCertificate(cert *types.Cert, fee int64) (*CertDesc, error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.maybeAcceptCertificate(cert, fee)
}

// removeTransaction is the internal function which implements the public
// RemoveTransaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(tx *types.Tx, removeRedeemers bool) {
	txHash := tx.Hash()
	if removeRedeemers {
		// Remove any transactions which rely on this one.
		for i := uint32(0); i < uint32(len(tx.Transaction().TxOut)); i++ {
			outpoint := types.NewOutPoint(txHash, i)
			if txRedeemer, exists := mp.outpoints[*outpoint]; exists {
				mp.removeTransaction(txRedeemer, true)
			}
		}
	}

	if txDesc, exists := mp.pool[*txHash]; exists {
		for _, txIn := range txDesc.Tx.Transaction().TxIn {
			delete(mp.outpoints, txIn.PreviousOut)
		}
		delete(mp.pool, *txHash)
		mp.poolChanged()
	}
}

// RemoveTransaction removes the passed transaction from the mempool.  When
// the removeRedeemers flag is set, any transactions that redeem outputs from
// the removed transaction will also be removed recursively from the mempool,
// as they would otherwise become orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *types.Tx, removeRedeemers bool) {
	mp.mtx.Lock()
	mp.removeTransaction(tx, removeRedeemers)
	mp.mtx.Unlock()
}

// RemoveCertificate removes the passed certificate from the mempool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveCertificate(cert *types.Cert) {
	mp.mtx.Lock()
	if _, exists := mp.certs[*cert.Hash()]; exists {
		delete(mp.certs, *cert.Hash())
		mp.poolChanged()
	}
	mp.mtx.Unlock()
}

// PruneBlockContents removes everything the passed block confirmed from the
// pool.  It is called when a new block is connected to the main chain.
//
// This function is safe for concurrent access.
func (mp *TxPool) PruneBlockContents(block *types.Block) {
	mp.mtx.Lock()
	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		if desc, exists := mp.pool[txHash]; exists {
			mp.removeTransaction(desc.Tx, false)
		}
	}
	for _, cert := range block.Certificates {
		certHash := cert.CertHash()
		if _, exists := mp.certs[certHash]; exists {
			delete(mp.certs, certHash)
			mp.poolChanged()
		}
	}
	mp.mtx.Unlock()
}

// TxDescs returns a slice of descriptors for all the transactions in the
// pool.  The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()
	return descs
}

// CertDescs returns a slice of descriptors for all the certificates in the
// pool.  The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) CertDescs() []*CertDesc {
	mp.mtx.RLock()
	descs := make([]*CertDesc, 0, len(mp.certs))
	for _, desc := range mp.certs {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()
	return descs
}

// Count returns the number of transactions in the main pool.  It does not
// include certificates.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()
	return count
}

// CertCount returns the number of certificates in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) CertCount() int {
	mp.mtx.RLock()
	count := len(mp.certs)
	mp.mtx.RUnlock()
	return count
}
