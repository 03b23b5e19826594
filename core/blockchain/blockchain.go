// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync"
	"time"

	bolt "github.com/coreos/bbolt"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
)

// maxTimeOffsetSeconds is the maximum number of seconds a block time is
// allowed to be ahead of the current time.
const maxTimeOffsetSeconds = 2 * 60 * 60

// BlockChain provides functions for working with the block chain.  It
// includes functionality such as rejecting duplicate blocks, ensuring blocks
// follow all rules, and best chain selection.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db         *bolt.DB
	params     *params.Params
	timeSource MedianTimeSource

	// notifications holds the registered callbacks.  It has its own lock
	// since callbacks fire while the chain lock is held.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// index houses the entire block index in memory.
	index *blockIndex

	// bestNode is the tip of the best chain.
	bestNode *blockNode

	// scRegistry houses every known sidechain registration.
	scRegistry *scRegistry

	// utxoSet is the in-memory set of unspent outputs for the main chain.
	// It is protected by the chain lock and rebuilt from the stored
	// blocks on startup.
	utxoSet map[types.OutPoint]*UtxoEntry

	// These fields house a cached snapshot of the chain state which is
	// returned to callers when requested.  It operates on the principle
	// of MVCC such that any time a new block becomes the best block, the
	// state pointer is replaced with a new struct and the old state is
	// left untouched.  In this way, multiple callers can be pointing to
	// different best chain states.
	stateLock     sync.RWMutex
	stateSnapshot *BestState
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the database which houses the blocks.
	//
	// This field is required.
	DB *bolt.DB

	// ChainParams identifies which chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *params.Params

	// TimeSource defines the median time source to use for things such
	// as block processing and determining whether or not the chain is
	// current.
	TimeSource MedianTimeSource
}

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash       hash.Hash // The hash of the block.
	Height     uint64    // The height of the block.
	Bits       uint32    // The difficulty bits of the block.
	BlockSize  uint64    // The size of the block.
	NumTxns    uint64    // The number of txns in the block.
	NumCerts   uint64    // The number of certificates in the block.
	MedianTime time.Time // Median time as per CalcPastMedianTime.
	TotalTxns  uint64    // The total number of txns in the chain.
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode, blockSize, numTxns, numCerts uint64,
	medianTime time.Time, totalTxns uint64) *BestState {

	return &BestState{
		Hash:       node.hash,
		Height:     node.height,
		Bits:       node.bits,
		BlockSize:  blockSize,
		NumTxns:    numTxns,
		NumCerts:   numCerts,
		MedianTime: medianTime,
		TotalTxns:  totalTxns,
	}
}

// scRegistry tracks sidechain registrations in memory, mirroring the
// sidechains bucket.
type scRegistry struct {
	mtx  sync.RWMutex
	regs map[hash.Hash]*sidechain.Registration
}

func (r *scRegistry) lookup(scID *hash.Hash) *sidechain.Registration {
	r.mtx.RLock()
	reg := r.regs[*scID]
	r.mtx.RUnlock()
	return reg
}

// SidechainRegistration satisfies the registration view the merkle package
// consumes.
func (r *scRegistry) SidechainRegistration(scID *hash.Hash) *sidechain.Registration {
	return r.lookup(scID)
}

func (r *scRegistry) add(reg *sidechain.Registration) {
	r.mtx.Lock()
	r.regs[reg.ID] = reg
	r.mtx.Unlock()
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if config.TimeSource == nil {
		config.TimeSource = NewMedianTime()
	}

	b := BlockChain{
		db:         config.DB,
		params:     config.ChainParams,
		timeSource: config.TimeSource,
		index:      newBlockIndex(),
		scRegistry: &scRegistry{regs: make(map[hash.Hash]*sidechain.Registration)},
		utxoSet:    make(map[types.OutPoint]*UtxoEntry),
	}

	if err := createChainBuckets(config.DB); err != nil {
		return nil, err
	}
	if err := b.initChainState(); err != nil {
		return nil, err
	}

	best := b.BestSnapshot()
	log.Info("Blockchain database loaded", "bestheight", best.Height,
		"besthash", best.Hash, "mediantime", best.MedianTime)
	return &b, nil
}

// initChainState attempts to load and initialize the chain state from the
// database.  When the db does not yet contain any chain state, both it and
// the chain state will be initialized to contain only the genesis block.
func (b *BlockChain) initChainState() error {
	return b.db.Update(func(dbTx *bolt.Tx) error {
		state, err := dbFetchBestState(dbTx)
		if err != nil {
			return err
		}
		if state == nil {
			return b.createChainState(dbTx)
		}

		log.Info("Loading block index...")

		// Rebuild the in-memory index by walking the stored chain from
		// the best block back to genesis.
		nodesByHash := make(map[hash.Hash]*types.SerializedBlock)
		walk := state.hash
		for {
			block, err := dbFetchBlockByHash(dbTx, &walk)
			if err != nil {
				return err
			}
			if block == nil {
				return AssertError(fmt.Sprintf(
					"initChainState: missing block %s", walk))
			}
			nodesByHash[walk] = block
			if block.Block().Header.PrevBlock.IsEqual(&hash.ZeroHash) {
				break
			}
			walk = block.Block().Header.PrevBlock
		}

		// Attach nodes parent-first starting from genesis.
		var tip *blockNode
		attach := *b.params.GenesisHash
		for {
			block := nodesByHash[attach]
			node := newBlockNode(&block.Block().Header, tip)
			node.status = statusDataStored | statusValid
			b.index.AddNode(node)
			tip = node
			block.SetHeight(node.height)
			b.connectUtxos(block)
			if node.hash.IsEqual(&state.hash) {
				break
			}
			// Find the stored child of the current tip.
			var next *hash.Hash
			for h, blk := range nodesByHash {
				if blk.Block().Header.PrevBlock.IsEqual(&node.hash) {
					hh := h
					next = &hh
					break
				}
			}
			if next == nil {
				return AssertError(fmt.Sprintf(
					"initChainState: broken chain at %s", node.hash))
			}
			attach = *next
		}
		b.bestNode = tip

		regs, err := dbFetchRegistrations(dbTx)
		if err != nil {
			return err
		}
		b.scRegistry.regs = regs

		bestBlock := nodesByHash[state.hash]
		numTxns := uint64(len(bestBlock.Block().Transactions))
		numCerts := uint64(len(bestBlock.Block().Certificates))
		blockSize := uint64(bestBlock.Block().SerializeSize())
		b.stateSnapshot = newBestState(tip, blockSize, numTxns, numCerts,
			tip.CalcPastMedianTime(), state.height+numTxns)
		return nil
	})
}

// createChainState initializes both the database and the chain state to the
// genesis block.
func (b *BlockChain) createChainState(dbTx *bolt.Tx) error {
	genesisBlock := types.NewBlock(b.params.GenesisBlock)
	genesisBlock.SetHeight(0)
	header := &genesisBlock.Block().Header
	node := newBlockNode(header, nil)
	node.status = statusDataStored | statusValid
	b.index.AddNode(node)
	b.bestNode = node
	b.connectUtxos(genesisBlock)

	numTxns := uint64(len(genesisBlock.Block().Transactions))
	blockSize := uint64(genesisBlock.Block().SerializeSize())
	b.stateSnapshot = newBestState(node, blockSize, numTxns, 0,
		time.Unix(node.timestamp, 0), numTxns)

	log.Info("Creating new chain state", "genesis", node.hash)
	if err := dbStoreBlock(dbTx, genesisBlock); err != nil {
		return err
	}
	return dbPutBestState(dbTx, &bestChainState{hash: node.hash, height: 0})
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// ChainParams returns the chain parameters of the blockchain.
func (b *BlockChain) ChainParams() *params.Params {
	return b.params
}

// TimeSource returns the time source of the blockchain.
func (b *BlockChain) TimeSource() MedianTimeSource {
	return b.timeSource
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(h *hash.Hash) bool {
	return b.index.HaveBlock(h)
}

// IsKnownValid returns whether the block with the passed hash is known and
// has been fully validated.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsKnownValid(h *hash.Hash) bool {
	node := b.index.LookupNode(h)
	return node != nil && b.index.NodeStatus(node).KnownValid()
}

// IsKnownInvalid returns whether the block with the passed hash is known and
// has failed validation, or descends from a block that failed validation.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsKnownInvalid(h *hash.Hash) bool {
	node := b.index.LookupNode(h)
	return node != nil && b.index.NodeStatus(node).KnownInvalid()
}

// BlockByHash returns the block from the main chain with the given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHash(h *hash.Hash) (*types.SerializedBlock, error) {
	var block *types.SerializedBlock
	err := b.db.View(func(dbTx *bolt.Tx) error {
		var err error
		block, err = dbFetchBlockByHash(dbTx, h)
		return err
	})
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("block %s is not known", h)
	}
	node := b.index.LookupNode(h)
	if node != nil {
		block.SetHeight(node.height)
	}
	return block, nil
}

// isCurrent returns whether or not the chain believes it is current.  The
// chain considers itself current when the latest block has a timestamp newer
// than 24 hours ago relative to the adjusted time.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) isCurrent() bool {
	minus24Hours := b.timeSource.AdjustedTime().Add(-24 * time.Hour).Unix()
	return b.bestNode.timestamp >= minus24Hours
}

// IsCurrent returns whether or not the chain believes it is current.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsCurrent() bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.isCurrent()
}

// SidechainRegistration resolves a sidechain id to its registration, or nil
// when the sidechain is unknown.  This satisfies the registration view the
// merkle package consumes.
//
// This function is safe for concurrent access.
func (b *BlockChain) SidechainRegistration(scID *hash.Hash) *sidechain.Registration {
	return b.scRegistry.lookup(scID)
}

// RegisterSidechain persists a sidechain registration and makes it visible
// to certificate validation and commitment building.  The registration must
// pass its own structural checks and the referenced creation height must not
// precede sidechain activation.
//
// This function is safe for concurrent access.
func (b *BlockChain) RegisterSidechain(reg *sidechain.Registration) error {
	if !reg.IsValid() {
		return fmt.Errorf("sidechain registration %s is malformed", reg.ID)
	}
	if !b.params.AreSidechainsSupported(reg.CreationHeight) {
		return fmt.Errorf("sidechain %s declared before activation height %d",
			reg.ID, b.params.SidechainForkHeight)
	}
	err := b.db.Update(func(dbTx *bolt.Tx) error {
		return dbPutRegistration(dbTx, reg)
	})
	if err != nil {
		return err
	}
	b.scRegistry.add(reg)
	log.Info("Registered sidechain", "scid", reg.ID,
		"fefields", len(reg.FieldElementConfigs),
		"bvfields", len(reg.BitVectorConfigs))
	return nil
}

// connectUtxos applies the passed block to the in-memory utxo set.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectUtxos(block *types.SerializedBlock) {
	height := block.Height()
	for _, tx := range block.Block().Transactions {
		if !tx.IsCoinBase() {
			for _, txIn := range tx.TxIn {
				delete(b.utxoSet, txIn.PreviousOut)
			}
		}
		txHash := tx.TxHash()
		for txOutIdx, txOut := range tx.TxOut {
			outpoint := types.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}
			b.utxoSet[outpoint] = &UtxoEntry{
				amount:      txOut.Amount,
				pkScript:    txOut.PkScript,
				blockHeight: height,
				isCoinBase:  tx.IsCoinBase(),
			}
		}
	}
}

// FetchUtxoView returns a view of the unspent transaction outputs referenced
// by the passed transaction from the point of view of the end of the main
// chain.  The view also resolves sidechain registrations.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchUtxoView(tx *types.Transaction) (*UtxoViewpoint, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	view := NewUtxoViewpoint()
	view.SetBestHash(&b.bestNode.hash)
	view.registry = b.scRegistry

	for _, txIn := range tx.TxIn {
		if entry, ok := b.utxoSet[txIn.PreviousOut]; ok {
			entryCopy := *entry
			view.entries[txIn.PreviousOut] = &entryCopy
		}
	}
	return view, nil
}
