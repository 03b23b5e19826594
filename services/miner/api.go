// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/txscript"

	"github.com/zenoproject/zeno/core/blockchain"
	cjson "github.com/zenoproject/zeno/core/json"
	"github.com/zenoproject/zeno/core/merkle"
	"github.com/zenoproject/zeno/core/protocol"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/rpc"
	"github.com/zenoproject/zeno/services/mempool"
	"github.com/zenoproject/zeno/services/mining"
)

// gbtCoinbaseAux describes additional data that miners should include in the
// coinbase signature script.  It is declared here to avoid the overhead of
// creating a new object on every invocation for constant data.
var gbtCoinbaseAux = &cjson.GetBlockTemplateResultAux{
	Flags: hex.EncodeToString(builderScript(txscript.
		NewScriptBuilder().AddData([]byte(mining.CoinbaseFlags)))),
}

// builderScript is a convenience function which is used for hard-coded
// scripts built with the script builder.  Any errors are converted to a panic
// since it is only, and must only, be used with hard-coded, and therefore,
// known good, scripts.
func builderScript(builder *txscript.ScriptBuilder) []byte {
	script, err := builder.Script()
	if err != nil {
		panic(err)
	}
	return script
}

// PublicMinerAPI provides the miner RPC service: block template generation,
// long polling, proposal checking and block submission.
type PublicMinerAPI struct {
	miner *Miner
}

func NewPublicMinerAPI(m *Miner) *PublicMinerAPI {
	return &PublicMinerAPI{miner: m}
}

// GetBlockTemplate implements the getBlockTemplate command as defined in
// BIP22 and BIP23.
//
// See https://en.bitcoin.it/wiki/BIP_0022 and
// https://en.bitcoin.it/wiki/BIP_0023 for more details.
func (api *PublicMinerAPI) GetBlockTemplate(request *cjson.TemplateRequest) (interface{}, error) {
	gbtRequestCounter.Inc(1)

	// Set the default mode and override it if supplied.
	mode := "template"
	if request != nil && request.Mode != "" {
		mode = request.Mode
	}

	switch mode {
	case "template":
		return api.handleGetBlockTemplateRequest(request)
	case "proposal":
		return api.handleGetBlockTemplateProposal(request)
	}

	return nil, rpc.RpcInvalidError("Invalid mode")
}

// handleGetBlockTemplateRequest is a helper for GetBlockTemplate which deals
// with generating and returning block templates to the caller.
func (api *PublicMinerAPI) handleGetBlockTemplateRequest(request *cjson.TemplateRequest) (interface{}, error) {
	// Extract the relevant passed capabilities and restrict the result to
	// either a coinbase value or a coinbase transaction object depending
	// on the request.  Default to only providing a coinbase value.
	useCoinbaseValue := true
	if request != nil {
		var hasCoinbaseValue, hasCoinbaseTxn bool
		for _, capability := range request.Capabilities {
			switch capability {
			case "coinbasetxn":
				hasCoinbaseTxn = true
			case "coinbasevalue":
				hasCoinbaseValue = true
			}
		}

		if hasCoinbaseTxn && !hasCoinbaseValue {
			useCoinbaseValue = false
		}
	}

	m := api.miner

	// The coinbase transaction is always part of the template, so a
	// payment address is required no matter which capabilities were
	// requested.
	if len(m.cfg.GetMiningAddrs()) == 0 {
		return nil, rpc.RpcInternalError("No payment addresses specified via --miningaddr",
			"Configuration")
	}

	// Templates are worthless when a solved block cannot be relayed
	// anywhere.  The private network is exempt since it is typically a
	// single node used for development.
	if m.connectedCount() == 0 && m.params.Net != protocol.PrivNet {
		return nil, rpc.RPCClientNotConnectedError("Zeno is not connected",
			"the server has no connected peers...")
	}

	// Templates are useless while the chain is still syncing.
	best := m.chain.BestSnapshot()
	if m.params.Net != protocol.PrivNet && best.Height != 0 && !m.chain.IsCurrent() {
		return nil, rpc.RPCClientInInitialDownloadError("Client in initial download ",
			"the server is downloading blocks...")
	}

	// When a long poll ID was provided, this is a long poll request by
	// the client to be notified when the block template referenced by the
	// ID should be replaced with a new one.
	if request != nil && request.LongPollID != "" {
		return api.handleGetBlockTemplateLongPoll(request.LongPollID,
			useCoinbaseValue)
	}

	// Get and return a block template.  A new block template will be
	// generated when the current best block has changed or the
	// transactions in the memory pool have been updated and it has been
	// at least five seconds since the last template was generated.
	state := m.gbtWorkState
	state.Lock()
	defer state.Unlock()

	if err := state.updateBlockTemplate(m); err != nil {
		return nil, err
	}
	return state.blockTemplateResult(m, useCoinbaseValue, nil)
}

// handleGetBlockTemplateLongPoll is a helper for GetBlockTemplate which
// deals with long polling: when the passed long poll ID still identifies the
// current template the call blocks until the template is stale, either due
// to a new block connecting or the memory pool mutating.
func (api *PublicMinerAPI) handleGetBlockTemplateLongPoll(longPollID string, useCoinbaseValue bool) (interface{}, error) {
	gbtLongPollCounter.Inc(1)

	m := api.miner
	state := m.gbtWorkState
	state.Lock()

	// The state unlock is intentionally not deferred here since it needs
	// to be manually unlocked before waiting for a notification about
	// block template changes.
	if err := state.updateBlockTemplate(m); err != nil {
		state.Unlock()
		return nil, err
	}

	// Just return the current block template if the long poll ID provided
	// by the caller is invalid.
	prevHash, lastUpdateCount, err := decodeTemplateID(longPollID)
	if err != nil {
		result, err := state.blockTemplateResult(m, useCoinbaseValue, nil)
		state.Unlock()
		return result, err
	}

	// Return the block template now if the template identified by the
	// long poll ID is no longer current: the caller should stop working
	// on the old block when the chain tip moved on, but may keep going
	// when only the memory pool changed.
	templPrev := &state.template.Block.Header.PrevBlock
	if !prevHash.IsEqual(templPrev) || lastUpdateCount != state.lastTxUpdateCount {
		submitOld := prevHash.IsEqual(templPrev)
		result, err := state.blockTemplateResult(m, useCoinbaseValue,
			&submitOld)
		state.Unlock()
		return result, err
	}

	// Register the previous hash and mutation counter for block template
	// changes and get a channel that will be closed once the template is
	// stale.
	longPollChan := state.templateUpdateChan(*prevHash, lastUpdateCount)
	state.Unlock()

	// Block until the template is stale due to a new block or a memory
	// pool mutation, or the server is shutting down.
	if err := m.waitForTemplateUpdate(longPollChan, lastUpdateCount); err != nil {
		return nil, err
	}

	// Get the lastest block template
	state.Lock()
	defer state.Unlock()

	if err := state.updateBlockTemplate(m); err != nil {
		return nil, err
	}

	// Include whether or not it is valid to submit work against the old
	// block template depending on whether or not a solution has already
	// been found and added to the block chain.
	submitOld := prevHash.IsEqual(&state.template.Block.Header.PrevBlock)
	return state.blockTemplateResult(m, useCoinbaseValue, &submitOld)
}

// handleGetBlockTemplateProposal is a helper for GetBlockTemplate which
// deals with block proposals.
func (api *PublicMinerAPI) handleGetBlockTemplateProposal(request *cjson.TemplateRequest) (interface{}, error) {
	hexData := request.Data
	if hexData == "" {
		return false, rpc.RpcInvalidError("Data must contain the " +
			"hex-encoded serialized block that is being proposed")
	}

	// Ensure the provided data is sane and deserialize the proposed
	// block.
	if len(hexData)%2 != 0 {
		hexData = "0" + hexData
	}
	dataBytes, err := hex.DecodeString(hexData)
	if err != nil {
		return false, rpc.RpcDecodeHexError(hexData)
	}
	block, err := types.NewBlockFromBytes(dataBytes)
	if err != nil {
		return nil, rpc.RpcDeserializationError("Block decode failed: %s",
			err.Error())
	}

	m := api.miner
	blockHash := block.Hash()

	// A duplicate of an existing block is classified by what is already
	// known about that block.
	if m.chain.HaveBlock(blockHash) {
		if m.chain.IsKnownInvalid(blockHash) {
			return "duplicate-invalid", nil
		}
		if m.chain.IsKnownValid(blockHash) {
			return "duplicate", nil
		}
		return "duplicate-inconclusive", nil
	}

	// A proposal building on anything but the current tip can not be
	// fully validated.
	best := m.chain.BestSnapshot()
	prevBlock := &block.Block().Header.PrevBlock
	if !prevBlock.IsEqual(&best.Hash) {
		return "inconclusive-not-best-prevblk", nil
	}

	block.SetHeight(best.Height + 1)
	if err := m.chain.CheckConnectBlockTemplate(block); err != nil {
		if _, ok := err.(blockchain.RuleError); !ok {
			errStr := fmt.Sprintf("Failed to process block proposal: %v", err)
			log.Error(errStr)
			return nil, rpc.RpcInternalError(err.Error(),
				"Failed to process block proposal")
		}

		log.Info("Rejected block proposal", "hash", blockHash, "error", err)
		return "rejected: " + err.Error(), nil
	}

	// The proposal would be accepted by the consensus rules.
	return nil, nil
}

// SubmitBlock attempts to submit a new serialized block to the network.
func (api *PublicMinerAPI) SubmitBlock(hexBlock string) (interface{}, error) {
	// Deserialize the submitted block.
	if len(hexBlock)%2 != 0 {
		hexBlock = "0" + hexBlock
	}
	serializedBlock, err := hex.DecodeString(hexBlock)
	if err != nil {
		return nil, rpc.RpcDecodeHexError(hexBlock)
	}
	block, err := types.NewBlockFromBytes(serializedBlock)
	if err != nil {
		return nil, rpc.RpcDeserializationError("Block decode failed: %s",
			err.Error())
	}

	m := api.miner

	// Protect concurrent access when submitting blocks.
	m.submitBlockLock.Lock()
	defer m.submitBlockLock.Unlock()

	// A duplicate of an existing block is classified by what is already
	// known about that block rather than re-processed.
	blockHash := block.Hash()
	if m.chain.HaveBlock(blockHash) {
		if m.chain.IsKnownInvalid(blockHash) {
			return "duplicate-invalid", nil
		}
		if m.chain.IsKnownValid(blockHash) {
			return "duplicate", nil
		}
		return "duplicate-inconclusive", nil
	}

	// Process this block using the same rules as blocks coming from
	// other nodes.  This will in turn relay it to the network like
	// normal.
	isMainChain, isOrphan, err := m.chain.ProcessBlock(block, blockchain.BFNone)
	if err != nil {
		if _, ok := err.(blockchain.RuleError); !ok {
			return nil, rpc.RpcInternalError(err.Error(),
				"Unexpected error while processing block")
		}

		submitRejectCounter.Inc(1)
		log.Info("Block submitted via miner rejected",
			"hash", block.Hash(), "error", err)
		return fmt.Sprintf("rejected: %s", err.Error()), nil
	}
	if isOrphan {
		submitRejectCounter.Inc(1)
		return "rejected: block is an orphan building on an unknown parent", nil
	}
	if !isMainChain {
		return "inconclusive", nil
	}

	submitAcceptCounter.Inc(1)
	log.Info("Block submitted via miner accepted", "hash", blockHash,
		"height", block.Height())

	// Per BIP 0022 an accepted submission returns the empty value.
	return nil, nil
}

// SubmitCertificate attempts to add a serialized withdrawal certificate to
// the memory pool so it is considered for inclusion in new block templates.
func (api *PublicMinerAPI) SubmitCertificate(hexCert string) (interface{}, error) {
	if len(hexCert)%2 != 0 {
		hexCert = "0" + hexCert
	}
	serializedCert, err := hex.DecodeString(hexCert)
	if err != nil {
		return nil, rpc.RpcDecodeHexError(hexCert)
	}
	var cert types.Certificate
	if err := cert.Deserialize(bytes.NewReader(serializedCert)); err != nil {
		return nil, rpc.RpcDeserializationError("Certificate decode failed: %s",
			err.Error())
	}

	desc, err := api.miner.txPool.ProcessCertificate(types.NewCert(&cert), 0)
	if err != nil {
		if _, ok := err.(mempool.RuleError); ok {
			return nil, rpc.RpcRuleError("%s", err.Error())
		}
		return nil, rpc.RpcInternalError(err.Error(),
			"Unexpected error while processing certificate")
	}
	return desc.Cert.Hash().String(), nil
}

// GetBlockMerkleRoots computes the header commitments for an externally
// assembled block: the transaction merkle root over the provided
// transactions and certificates and the sidechain commitment over the
// certificates.  Miners that mutate the template content use it to rebuild
// the header fields.
func (api *PublicMinerAPI) GetBlockMerkleRoots(txs []string, certs []string) (interface{}, error) {
	if len(txs) == 0 {
		return nil, rpc.RpcInvalidError("The transaction list must contain at least the coinbase")
	}

	blockTxns := make([]*types.Transaction, 0, len(txs))
	for _, hexTx := range txs {
		if len(hexTx)%2 != 0 {
			hexTx = "0" + hexTx
		}
		serializedTx, err := hex.DecodeString(hexTx)
		if err != nil {
			return nil, rpc.RpcDecodeHexError(hexTx)
		}
		var tx types.Transaction
		if err := tx.Deserialize(bytes.NewReader(serializedTx)); err != nil {
			return nil, rpc.RpcDeserializationError("Transaction decode failed: %s",
				err.Error())
		}
		blockTxns = append(blockTxns, &tx)
	}

	blockCerts := make([]*types.Certificate, 0, len(certs))
	for _, hexCert := range certs {
		if len(hexCert)%2 != 0 {
			hexCert = "0" + hexCert
		}
		serializedCert, err := hex.DecodeString(hexCert)
		if err != nil {
			return nil, rpc.RpcDecodeHexError(hexCert)
		}
		var cert types.Certificate
		if err := cert.Deserialize(bytes.NewReader(serializedCert)); err != nil {
			return nil, rpc.RpcDeserializationError("Certificate decode failed: %s",
				err.Error())
		}
		blockCerts = append(blockCerts, &cert)
	}

	merkleRoot := merkle.CalcBlockMerkleRoot(blockTxns, blockCerts)
	commitment, err := merkle.BuildScTxsCommitment(blockCerts, api.miner.chain)
	if err != nil {
		return nil, rpc.RpcInternalError(err.Error(),
			"Failed to build sidechain commitment")
	}
	commitmentHash := merkle.ScTxsCommitmentHash(commitment)

	return &cjson.GetBlockMerkleRootsResult{
		MerkleTree:      merkleRoot.String(),
		ScTxsCommitment: commitmentHash.String(),
	}, nil
}
