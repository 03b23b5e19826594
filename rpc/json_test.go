// Copyright (c) 2017-2019 The qitmeer developers
//
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBatch(t *testing.T) {
	assert.True(t, isBatch(json.RawMessage(`[{"id":1}]`)))
	assert.True(t, isBatch(json.RawMessage(" \t\n[1,2]")))
	assert.False(t, isBatch(json.RawMessage(`{"id":1}`)))
	assert.False(t, isBatch(json.RawMessage("")))
}

func TestCheckReqId(t *testing.T) {
	assert.NoError(t, checkReqId(json.RawMessage(`1`)))
	assert.NoError(t, checkReqId(json.RawMessage(`2.5`)))
	assert.NoError(t, checkReqId(json.RawMessage(`"abc"`)))
	assert.Error(t, checkReqId(json.RawMessage(``)))
	assert.Error(t, checkReqId(json.RawMessage(`{}`)))
	assert.Error(t, checkReqId(json.RawMessage(`[]`)))
}

func TestParseRequest(t *testing.T) {
	reqs, batch, err := parseRequest(json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"miner_getBlockTemplate","params":[{}]}`))
	assert.Nil(t, err)
	assert.False(t, batch)
	assert.Equal(t, 1, len(reqs))
	assert.Equal(t, "miner", reqs[0].service)
	assert.Equal(t, "getBlockTemplate", reqs[0].method)
	assert.NotNil(t, reqs[0].params)

	// A bare method name lands in the default namespace.
	reqs, _, err = parseRequest(json.RawMessage(
		`{"jsonrpc":"2.0","id":"a","method":"getNodeInfo"}`))
	assert.Nil(t, err)
	assert.Equal(t, DefaultServiceNameSpace, reqs[0].service)
	assert.Equal(t, "getNodeInfo", reqs[0].method)
	assert.Nil(t, reqs[0].params)

	// Batches come back with the batch indication set.
	reqs, batch, err = parseRequest(json.RawMessage(
		`[{"jsonrpc":"2.0","id":1,"method":"zeno_getBlockCount"},
		  {"jsonrpc":"2.0","id":2,"method":"zeno_getBestBlockHash"}]`))
	assert.Nil(t, err)
	assert.True(t, batch)
	assert.Equal(t, 2, len(reqs))
	assert.Equal(t, "getBestBlockHash", reqs[1].method)

	// Missing ids are rejected.
	_, _, err = parseRequest(json.RawMessage(`{"method":"zeno_getBlockCount"}`))
	assert.NotNil(t, err)

	// A method with too many separators is flagged on the request.
	reqs, _, err = parseRequest(json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"a_b_c"}`))
	assert.Nil(t, err)
	assert.NotNil(t, reqs[0].err)
}

func TestParsePositionalArguments(t *testing.T) {
	stringT := reflect.TypeOf("")
	uintT := reflect.TypeOf(uint64(0))
	ptrT := reflect.TypeOf((*string)(nil))

	vals, err := parsePositionalArguments(json.RawMessage(`["abc", 7]`),
		[]reflect.Type{stringT, uintT})
	assert.Nil(t, err)
	assert.Equal(t, "abc", vals[0].Interface())
	assert.Equal(t, uint64(7), vals[1].Interface())

	// Missing optional pointer arguments become zero values.
	vals, err = parsePositionalArguments(json.RawMessage(`[]`),
		[]reflect.Type{ptrT})
	assert.Nil(t, err)
	assert.True(t, vals[0].IsNil())

	// Missing required arguments are an error.
	_, err = parsePositionalArguments(json.RawMessage(`[]`),
		[]reflect.Type{stringT})
	assert.NotNil(t, err)

	// So are extra arguments and non-array params.
	_, err = parsePositionalArguments(json.RawMessage(`[1,2]`),
		[]reflect.Type{uintT})
	assert.NotNil(t, err)
	_, err = parsePositionalArguments(json.RawMessage(`{"a":1}`),
		[]reflect.Type{uintT})
	assert.NotNil(t, err)
}
