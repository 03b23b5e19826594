// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMedianTime(t *testing.T) {
	// Limit the window so the last test exercises the sliding behavior.
	origMaxMedianTimeEntries := maxMedianTimeEntries
	maxMedianTimeEntries = 10
	defer func() {
		maxMedianTimeEntries = origMaxMedianTimeEntries
	}()

	tests := []struct {
		in         []int64
		wantOffset int64
	}{
		// Not enough samples must result in an offset of 0.
		{in: []int64{1}, wantOffset: 0},
		{in: []int64{1, 2}, wantOffset: 0},
		{in: []int64{1, 2, 3}, wantOffset: 0},
		{in: []int64{1, 2, 3, 4}, wantOffset: 0},

		// Various number of entries.  The expected offset is only
		// updated on odd number of elements.
		{in: []int64{-13, 57, -4, -23, -12}, wantOffset: -12},
		{in: []int64{55, -13, 61, -52, 39, 55, 23}, wantOffset: 39},
		{in: []int64{-62, -58, -30, -62, 51, -30, 15, 5, -62, 12, 63}, wantOffset: -30},

		// The offset stops being updated once the max number of entries
		// has been reached.
		{in: []int64{-67, 67, -50, 24, 63, 17, 58, -14, 5, -32, -52}, wantOffset: 17},
	}

	// The time samples must be within the allowed offset to count.
	now := time.Unix(time.Now().Unix(), 0)
	for i, test := range tests {
		filter := NewMedianTime()
		for j, offset := range test.in {
			id := strconv.Itoa(j)
			tOffset := now.Add(time.Duration(offset) * time.Second)
			filter.AddTimeSample(id, tOffset)

			// Ensure the duplicate source is ignored.
			filter.AddTimeSample(id, tOffset.Add(time.Hour))
		}

		wantDuration := time.Duration(test.wantOffset) * time.Second
		assert.Equal(t, wantDuration, filter.Offset(), "test #%d", i)

		adjusted := filter.AdjustedTime()
		assert.Equal(t, now.Add(wantDuration).Unix(), adjusted.Unix(),
			"test #%d adjusted time", i)
	}
}
