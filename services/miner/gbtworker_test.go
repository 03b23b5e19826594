// Copyright (c) 2017-2018 The qitmeer developers

package miner

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	bolt "github.com/coreos/bbolt"
	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/common/roughtime"
	"github.com/zenoproject/zeno/config"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
	"github.com/zenoproject/zeno/services/mempool"
	"github.com/zenoproject/zeno/services/mining"
)

func TestTemplateIDRoundTrip(t *testing.T) {
	h, err := hash.NewHashFromStr(
		"000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")
	assert.NoError(t, err)

	id := encodeTemplateID(h, 77)
	decodedHash, count, err := decodeTemplateID(id)
	assert.NoError(t, err)
	assert.True(t, h.IsEqual(decodedHash))
	assert.Equal(t, uint64(77), count)
}

func TestDecodeTemplateIDErrors(t *testing.T) {
	var h hash.Hash
	// No mutation counter suffix.
	_, _, err := decodeTemplateID(h.String())
	assert.Error(t, err)
	// Too short for a hash.
	_, _, err = decodeTemplateID("abcdef0")
	assert.Error(t, err)
	// Bad hex in the hash part.
	_, _, err = decodeTemplateID("zz" + h.String()[2:] + "1")
	assert.Error(t, err)
	// Bad counter suffix.
	_, _, err = decodeTemplateID(h.String() + "notanumber")
	assert.Error(t, err)
}

func closed(c chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

func TestNotifyLongPollers(t *testing.T) {
	state := newGbtWorkState(blockchain.NewMedianTime())

	var tip, stale hash.Hash
	tip[0] = 0x01
	stale[0] = 0x02

	state.Lock()
	// Waiters on the current tip at different mempool counters, plus a
	// waiter on a template built from another tip.
	tipOld := state.templateUpdateChan(tip, 1)
	tipCur := state.templateUpdateChan(tip, 5)
	staleChan := state.templateUpdateChan(stale, 5)

	// Registering the same template twice hands back the same channel.
	assert.Equal(t, tipCur, state.templateUpdateChan(tip, 5))

	state.notifyLongPollers(&tip, 5)
	state.Unlock()

	// Non-tip waiters are woken regardless of counter; tip waiters only
	// when their template predates the current mempool state.
	assert.True(t, closed(staleChan))
	assert.True(t, closed(tipOld))
	assert.False(t, closed(tipCur))

	// A later mempool mutation wakes the remaining tip waiter.
	state.Lock()
	state.notifyLongPollers(&tip, 6)
	state.Unlock()
	assert.True(t, closed(tipCur))

	// All registrations are cleaned up once notified.
	state.Lock()
	assert.Equal(t, 0, len(state.notifyMap))
	state.Unlock()
}

// newMinerHarness returns a miner backed by a real chain on the private
// network with a fresh database and an empty memory pool.
func newMinerHarness(t *testing.T) *Miner {
	db, err := bolt.Open(filepath.Join(t.TempDir(), "blocks.db"), 0600, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: &params.PrivNetParams,
		TimeSource:  blockchain.NewMedianTime(),
	})
	assert.NoError(t, err)

	txPool := mempool.New(&mempool.Config{
		Policy: mempool.Policy{
			MaxTxSize:     100000,
			MinRelayTxFee: mempool.DefaultMinRelayTxFee,
			MaxOrphanTxs:  100,
		},
		ChainParams:   &params.PrivNetParams,
		FetchUtxoView: chain.FetchUtxoView,
		BestHash: func() *hash.Hash {
			best := chain.BestSnapshot()
			return &best.Hash
		},
		BestHeight: func() uint64 { return chain.BestSnapshot().Height },
		PastMedianTime: func() time.Time {
			return chain.BestSnapshot().MedianTime
		},
		SidechainRegistration: chain.SidechainRegistration,
	})

	cfg := &config.Config{}
	payAddr, err := btcutil.NewAddressPubKeyHash(make([]byte, 20),
		params.PrivNetParams.AddressParams)
	assert.NoError(t, err)
	cfg.SetMiningAddrs(payAddr)

	policy := &mining.Policy{
		BlockMaxSize: types.MaxBlockPayload / 2,
	}
	return NewMiner(cfg, policy, &params.PrivNetParams, chain, txPool,
		blockchain.NewMedianTime(), func() int32 { return 1 })
}

// poolTx returns a transaction spending a tagged outpoint, suitable for
// mempool submission.
func poolTx(tag byte) *types.Tx {
	var prev hash.Hash
	prev[0] = tag
	tx := types.NewTransaction()
	tx.AddTxIn(&types.TxInput{
		PreviousOut: types.OutPoint{Hash: prev, Index: 0},
		SignScript:  []byte{0x51},
		Sequence:    types.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&types.TxOutput{Amount: 100, PkScript: []byte{0x51}})
	return types.NewTx(tx)
}

func TestUpdateBlockTemplate(t *testing.T) {
	m := newMinerHarness(t)
	state := m.gbtWorkState
	state.Lock()
	defer state.Unlock()

	// The first request generates a template building on the current
	// tip.
	assert.NoError(t, state.updateBlockTemplate(m))
	tmpl := state.template
	assert.NotNil(t, tmpl)
	best := m.chain.BestSnapshot()
	assert.True(t, state.prevHash.IsEqual(&best.Hash))
	assert.Equal(t, best.Height+1, tmpl.Height)

	// An immediate second request reuses the cached template.
	assert.NoError(t, state.updateBlockTemplate(m))
	assert.Same(t, tmpl, state.template)

	// A memory pool mutation alone does not regenerate within the
	// debounce window.
	_, err := m.txPool.ProcessTransaction(poolTx(0x11))
	assert.NoError(t, err)
	assert.NoError(t, state.updateBlockTemplate(m))
	assert.Same(t, tmpl, state.template)

	// Once the debounce window has passed the same mutation produces a
	// fresh template that includes the transaction.
	state.lastGenerated = roughtime.Now().Add(
		-time.Second * (gbtRegenerateSeconds + 1))
	assert.NoError(t, state.updateBlockTemplate(m))
	assert.NotSame(t, tmpl, state.template)
	assert.Equal(t, 2, len(state.template.Block.Transactions))
	assert.Equal(t, m.txPool.UpdateCount(), state.lastTxUpdateCount)

	// A stale previous hash always regenerates, regardless of debounce.
	tmpl = state.template
	var other hash.Hash
	other[0] = 0x33
	state.prevHash = &other
	assert.NoError(t, state.updateBlockTemplate(m))
	assert.NotSame(t, tmpl, state.template)
	assert.True(t, state.prevHash.IsEqual(&best.Hash))
}

func TestBlockTemplateResultCertificates(t *testing.T) {
	m := newMinerHarness(t)
	state := m.gbtWorkState

	// Sidechain support activates at height 1 on the private network, so
	// the first template already carries the certificate list and allows
	// certificate mutations.
	state.Lock()
	assert.NoError(t, state.updateBlockTemplate(m))
	reply, err := state.blockTemplateResult(m, true, nil)
	state.Unlock()
	assert.NoError(t, err)

	assert.NotNil(t, reply.Certificates)
	assert.Equal(t, 0, len(*reply.Certificates))
	assert.Contains(t, reply.Mutable, "certificates")
	raw, err := json.Marshal(reply)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"certificates":[]`)

	// Before activation the key and the mutation are absent.
	inactive := params.PrivNetParams
	inactive.SidechainForkHeight = 100
	m.params = &inactive
	state.Lock()
	reply, err = state.blockTemplateResult(m, true, nil)
	state.Unlock()
	assert.NoError(t, err)

	assert.Nil(t, reply.Certificates)
	assert.NotContains(t, reply.Mutable, "certificates")
	raw, err = json.Marshal(reply)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), `"certificates"`)
}

func TestLongPollWaitKeepsExtending(t *testing.T) {
	m := newMinerHarness(t)

	origMax, origExt := gbtLongPollMaxWait, gbtLongPollExtensionWait
	gbtLongPollMaxWait = 20 * time.Millisecond
	gbtLongPollExtensionWait = 10 * time.Millisecond
	defer func() {
		gbtLongPollMaxWait, gbtLongPollExtensionWait = origMax, origExt
	}()

	longPollChan := make(chan struct{})
	lastCount := m.txPool.UpdateCount()

	done := make(chan error, 1)
	go func() {
		done <- m.waitForTemplateUpdate(longPollChan, lastCount)
	}()

	// The wait must survive many timeout cycles while nothing changed,
	// not just a single extension.
	select {
	case <-done:
		t.Fatal("long poll wait returned on an idle mempool")
	case <-time.After(100 * time.Millisecond):
	}

	// A memory pool mutation is picked up by the next re-check.
	_, err := m.txPool.ProcessTransaction(poolTx(0x21))
	assert.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("long poll wait did not notice the mempool change")
	}
}

func TestSubmitBlockClassification(t *testing.T) {
	m := newMinerHarness(t)
	api := NewPublicMinerAPI(m)

	// Build a block on the current tip and solve it.  The private
	// network difficulty makes this a handful of header hashes.
	tmpl, err := mining.NewBlockTemplate(m.policy, m.params, m.chain,
		m.timeSource, m.txPool, m.cfg.GetMiningAddrs()[0])
	assert.NoError(t, err)

	block := tmpl.Block
	target := blockchain.CompactToBig(block.Header.Bits)
	solved := false
	for nonce := uint64(0); nonce < 1<<20; nonce++ {
		block.Header.Nonce = nonce
		h := block.Header.BlockHash()
		if blockchain.HashToBig(&h).Cmp(target) <= 0 {
			solved = true
			break
		}
	}
	assert.True(t, solved)

	var buf bytes.Buffer
	assert.NoError(t, block.Serialize(&buf))
	hexBlock := hex.EncodeToString(buf.Bytes())

	// An accepted submission returns the empty result.
	result, err := api.SubmitBlock(hexBlock)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Resubmitting the now connected block classifies as a duplicate
	// instead of a rejection.
	result, err = api.SubmitBlock(hexBlock)
	assert.NoError(t, err)
	assert.Equal(t, "duplicate", result)
}
