// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.
package node

import (
	"bytes"
	"encoding/hex"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/common/marshal"
	cjson "github.com/zenoproject/zeno/core/json"
	"github.com/zenoproject/zeno/core/protocol"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/rpc"
	"github.com/zenoproject/zeno/services/mempool"
	"github.com/zenoproject/zeno/version"
)

func (zm *ZenoFull) apis() []rpc.API {
	return []rpc.API{
		{
			NameSpace: rpc.DefaultServiceNameSpace,
			Service:   NewPublicBlockChainAPI(zm),
			Public:    true,
		},
	}
}

type PublicBlockChainAPI struct {
	node *ZenoFull
}

func NewPublicBlockChainAPI(node *ZenoFull) *PublicBlockChainAPI {
	return &PublicBlockChainAPI{node}
}

// GetNodeInfo returns the node info
func (api *PublicBlockChainAPI) GetNodeInfo() (interface{}, error) {
	best := api.node.chain.BestSnapshot()
	par := api.node.node.Params
	ret := &cjson.InfoNodeResult{
		Version:         1,
		BuildVersion:    version.String(),
		ProtocolVersion: int32(protocol.ProtocolVersion),
		Blocks:          best.Height,
		BestBlockHash:   best.Hash.String(),
		MedianTime:      best.MedianTime.Unix(),
		Difficulty:      best.Bits,
		TestNet:         par.Net == protocol.TestNet,
		Network:         par.Net.String(),
		SidechainActive: par.AreSidechainsSupported(best.Height),
	}
	return ret, nil
}

// GetBlockCount returns the height of the best chain tip.
func (api *PublicBlockChainAPI) GetBlockCount() (interface{}, error) {
	best := api.node.chain.BestSnapshot()
	return best.Height, nil
}

// GetBestBlockHash returns the hash of the best chain tip.
func (api *PublicBlockChainAPI) GetBestBlockHash() (interface{}, error) {
	best := api.node.chain.BestSnapshot()
	return best.Hash.String(), nil
}

// GetBlock returns the serialized block for the given hash as hex.
func (api *PublicBlockChainAPI) GetBlock(hexHash string) (interface{}, error) {
	h, err := hash.NewHashFromStr(hexHash)
	if err != nil {
		return nil, rpc.RpcInvalidError("%s", err.Error())
	}
	block, err := api.node.chain.BlockByHash(h)
	if err != nil {
		return nil, rpc.RpcInvalidError("No information available about block %s", hexHash)
	}
	return marshal.MessageToHex(block.Block())
}

// SendRawTransaction submits a serialized transaction to the memory pool so
// it is considered for inclusion in new block templates.
func (api *PublicBlockChainAPI) SendRawTransaction(hexTx string) (interface{}, error) {
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

	desc, err := api.node.txMemPool.ProcessTransaction(types.NewTx(&tx))
	if err != nil {
		if _, ok := err.(mempool.RuleError); ok {
			return nil, rpc.RpcRuleError("%s", err.Error())
		}
		return nil, rpc.RpcInternalError(err.Error(),
			"Unexpected error while processing transaction")
	}
	return desc.Tx.Hash().String(), nil
}

// RegisterSidechain declares a new sidechain so its withdrawal certificates
// can be validated against the registered custom field configs.
func (api *PublicBlockChainAPI) RegisterSidechain(cmd *cjson.RegisterSidechainCmd) (interface{}, error) {
	if cmd == nil {
		return nil, rpc.RpcInvalidError("Command parameters are required")
	}
	scid, err := hash.NewHashFromStr(cmd.ScID)
	if err != nil {
		return nil, rpc.RpcInvalidError("Invalid sidechain id: %s", err.Error())
	}
	vkey, err := hex.DecodeString(cmd.VerificationKey)
	if err != nil {
		return nil, rpc.RpcDecodeHexError(cmd.VerificationKey)
	}

	reg := &sidechain.Registration{
		ID:              *scid,
		CreationHeight:  cmd.CreationHeight,
		VerificationKey: vkey,
	}
	for _, bitSize := range cmd.FieldElementConfigs {
		reg.FieldElementConfigs = append(reg.FieldElementConfigs,
			sidechain.FieldElementCertificateFieldConfig{BitSize: bitSize})
	}
	for _, pair := range cmd.BitVectorConfigs {
		if len(pair) != 2 {
			return nil, rpc.RpcInvalidError("Bit vector configs must be [sizeBits, maxCompressedBytes] pairs")
		}
		reg.BitVectorConfigs = append(reg.BitVectorConfigs,
			sidechain.BitVectorCertificateFieldConfig{
				BitVectorSizeBits:      pair[0],
				MaxCompressedSizeBytes: pair[1],
			})
	}

	if err := api.node.chain.RegisterSidechain(reg); err != nil {
		return nil, rpc.RpcRuleError("%s", err.Error())
	}
	return scid.String(), nil
}
