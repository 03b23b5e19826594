// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"

	bolt "github.com/coreos/bbolt"

	"github.com/zenoproject/zeno/common/hash"
	s "github.com/zenoproject/zeno/core/serialization"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/crypto/cctp"
)

var (
	// blocksBucket houses serialized blocks keyed by block hash.
	blocksBucket = []byte("blocks")

	// chainStateBucket houses the best chain state.
	chainStateBucket = []byte("chainstate")

	// sidechainsBucket houses serialized sidechain registrations keyed by
	// sidechain id.
	sidechainsBucket = []byte("sidechains")

	// bestChainKey is the chainstate key tracking the best block.
	bestChainKey = []byte("best")
)

// createChainBuckets creates the chain buckets when they do not exist yet.
func createChainBuckets(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{blocksBucket, chainStateBucket, sidechainsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// dbStoreBlock stores the provided block in the database.
func dbStoreBlock(tx *bolt.Tx, block *types.SerializedBlock) error {
	raw, err := block.Bytes()
	if err != nil {
		return err
	}
	return tx.Bucket(blocksBucket).Put(block.Hash()[:], raw)
}

// dbFetchBlockByHash retrieves the block with the given hash from the
// database, or nil when it is not stored.
func dbFetchBlockByHash(tx *bolt.Tx, h *hash.Hash) (*types.SerializedBlock, error) {
	raw := tx.Bucket(blocksBucket).Get(h[:])
	if raw == nil {
		return nil, nil
	}
	return types.NewBlockFromBytes(raw)
}

// bestChainState represents the data persisted for the best chain.
type bestChainState struct {
	hash   hash.Hash
	height uint64
}

// dbPutBestState stores the best chain state.
func dbPutBestState(tx *bolt.Tx, state *bestChainState) error {
	var buf bytes.Buffer
	if err := s.WriteElements(&buf, &state.hash, state.height); err != nil {
		return err
	}
	return tx.Bucket(chainStateBucket).Put(bestChainKey, buf.Bytes())
}

// dbFetchBestState retrieves the persisted best chain state, or nil for a
// fresh database.
func dbFetchBestState(tx *bolt.Tx) (*bestChainState, error) {
	raw := tx.Bucket(chainStateBucket).Get(bestChainKey)
	if raw == nil {
		return nil, nil
	}
	state := &bestChainState{}
	r := bytes.NewReader(raw)
	if err := s.ReadElements(r, &state.hash, &state.height); err != nil {
		return nil, err
	}
	return state, nil
}

// serializeRegistration encodes a sidechain registration for storage.
func serializeRegistration(reg *sidechain.Registration) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteElements(&buf, &reg.ID, reg.CreationHeight); err != nil {
		return nil, err
	}
	if err := s.WriteVarBytes(&buf, reg.VerificationKey); err != nil {
		return nil, err
	}
	if err := s.WriteVarInt(&buf, uint64(len(reg.FieldElementConfigs))); err != nil {
		return nil, err
	}
	for _, cfg := range reg.FieldElementConfigs {
		if err := s.WriteElements(&buf, cfg.BitSize); err != nil {
			return nil, err
		}
	}
	if err := s.WriteVarInt(&buf, uint64(len(reg.BitVectorConfigs))); err != nil {
		return nil, err
	}
	for _, cfg := range reg.BitVectorConfigs {
		if err := s.WriteElements(&buf, cfg.BitVectorSizeBits, cfg.MaxCompressedSizeBytes); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// deserializeRegistration decodes a stored sidechain registration.
func deserializeRegistration(raw []byte) (*sidechain.Registration, error) {
	reg := &sidechain.Registration{}
	r := bytes.NewReader(raw)
	if err := s.ReadElements(r, &reg.ID, &reg.CreationHeight); err != nil {
		return nil, err
	}
	var err error
	reg.VerificationKey, err = s.ReadVarBytes(r, cctp.VKeyByteSize, "verification key")
	if err != nil {
		return nil, err
	}
	feCount, err := s.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	reg.FieldElementConfigs = make([]sidechain.FieldElementCertificateFieldConfig, feCount)
	for i := range reg.FieldElementConfigs {
		if err := s.ReadElements(r, &reg.FieldElementConfigs[i].BitSize); err != nil {
			return nil, err
		}
	}
	bvCount, err := s.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	reg.BitVectorConfigs = make([]sidechain.BitVectorCertificateFieldConfig, bvCount)
	for i := range reg.BitVectorConfigs {
		cfg := &reg.BitVectorConfigs[i]
		if err := s.ReadElements(r, &cfg.BitVectorSizeBits, &cfg.MaxCompressedSizeBytes); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// dbPutRegistration stores a sidechain registration.
func dbPutRegistration(tx *bolt.Tx, reg *sidechain.Registration) error {
	raw, err := serializeRegistration(reg)
	if err != nil {
		return err
	}
	return tx.Bucket(sidechainsBucket).Put(reg.ID[:], raw)
}

// dbFetchRegistrations loads every stored sidechain registration.
func dbFetchRegistrations(tx *bolt.Tx) (map[hash.Hash]*sidechain.Registration, error) {
	regs := make(map[hash.Hash]*sidechain.Registration)
	err := tx.Bucket(sidechainsBucket).ForEach(func(k, v []byte) error {
		reg, err := deserializeRegistration(v)
		if err != nil {
			return fmt.Errorf("corrupt sidechain registration %x: %w", k, err)
		}
		regs[reg.ID] = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return regs, nil
}
