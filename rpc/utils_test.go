// Copyright (c) 2017-2019 The qitmeer developers
//
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatName(t *testing.T) {
	assert.Equal(t, "getBlockTemplate", formatName("GetBlockTemplate"))
	assert.Equal(t, "submitBlock", formatName("submitBlock"))
	assert.Equal(t, "", formatName(""))
}

type calcService struct{}

func (s *calcService) Add(a, b int) int                                  { return a + b }
func (s *calcService) Div(a, b int) (int, error)                         { return 0, nil }
func (s *calcService) Ping(ctx context.Context, payload string) error    { return nil }
func (s *calcService) unexported()                                       {}
func (s *calcService) BadOrder(a int) (error, int)                       { return nil, 0 }

func TestSuitableCallbacks(t *testing.T) {
	svc := &calcService{}
	cbs := suitableCallbacks(reflect.ValueOf(svc), reflect.TypeOf(svc))

	assert.Contains(t, cbs, "add")
	assert.Contains(t, cbs, "div")
	assert.Contains(t, cbs, "ping")
	assert.NotContains(t, cbs, "unexported")
	// an error return that is not last disqualifies the method
	assert.NotContains(t, cbs, "badOrder")

	add := cbs["add"]
	assert.False(t, add.hasCtx)
	assert.Equal(t, -1, add.errPos)
	assert.Equal(t, 2, len(add.argTypes))

	div := cbs["div"]
	assert.Equal(t, 1, div.errPos)

	ping := cbs["ping"]
	assert.True(t, ping.hasCtx)
	assert.Equal(t, 1, len(ping.argTypes))
	assert.Equal(t, 0, ping.errPos)
}
