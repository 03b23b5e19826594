// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
)

func TestBigToCompact(t *testing.T) {
	tests := []struct {
		in  int64
		out uint32
	}{
		{0, 0},
		{-1, 25231360},
	}

	for x, test := range tests {
		n := big.NewInt(test.in)
		r := BigToCompact(n)
		if r != test.out {
			t.Errorf("TestBigToCompact test #%d failed: got %d want %d\n",
				x, r, test.out)
			return
		}
	}
}

func TestCompactToBig(t *testing.T) {
	tests := []struct {
		in  uint32
		out int64
	}{
		{10000000, 0},
	}

	for x, test := range tests {
		n := CompactToBig(test.in)
		want := big.NewInt(test.out)
		if n.Cmp(want) != 0 {
			t.Errorf("TestCompactToBig test #%d failed: got %d want %d\n",
				x, n.Int64(), test.out)
			return
		}
	}
}

func TestCompactRoundTrip(t *testing.T) {
	for _, bits := range []uint32{0x1d00ffff, 0x1e00ffff, 0x207fffff, 0x1b0404cb} {
		n := CompactToBig(bits)
		assert.Equal(t, bits, BigToCompact(n))
	}
}

func TestCalcWork(t *testing.T) {
	// Negative difficulty yields zero work.
	assert.Equal(t, int64(0), CalcWork(0x18800000).Int64())

	// Lower targets mean more work.
	easy := CalcWork(0x207fffff)
	hard := CalcWork(0x1d00ffff)
	assert.Equal(t, 1, hard.Cmp(easy))
}

func TestHashToBig(t *testing.T) {
	var h hash.Hash
	h[0] = 0x01
	// Hash bytes are little-endian, so the first byte is the lowest order.
	assert.Equal(t, int64(1), HashToBig(&h).Int64())

	// The original hash must not be modified.
	assert.Equal(t, byte(0x01), h[0])
}
