// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/zenoproject/zeno/params"
)

// CalcBlockSubsidy returns the subsidy amount a block at the provided height
// should have.  The subsidy is halved every SubsidyReductionInterval blocks.
func CalcBlockSubsidy(height uint64, params *params.Params) int64 {
	if params.SubsidyReductionInterval == 0 {
		return params.BaseSubsidy
	}

	// Equivalent to: baseSubsidy / 2^(height/subsidyHalvingInterval)
	halvings := uint(height / uint64(params.SubsidyReductionInterval))
	if halvings >= 64 {
		return 0
	}
	return params.BaseSubsidy >> halvings
}
