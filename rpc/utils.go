// Copyright (c) 2017-2019 The qitmeer developers
//
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"fmt"
	"math"
	"net"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/zenoproject/zeno/common/network"
	"github.com/zenoproject/zeno/common/roughtime"
	"github.com/zenoproject/zeno/config"
)

// Is this an exported - upper case - name?
func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// Is this type exported or a builtin?
func isExportedOrBuiltinType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	// PkgPath will be non-empty even for an exported type,
	// so we need to check the type name as well.
	return isExported(t.Name()) || t.PkgPath() == ""
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// isContextType returns an indication if the given t is of context.Context or *context.Context type
func isContextType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == contextType
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Implements this type the error interface
func isErrorType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Implements(errorType)
}

// formatName will convert to first character to lower case
func formatName(name string) string {
	ret := []rune(name)
	if len(ret) > 0 {
		ret[0] = unicode.ToLower(ret[0])
	}
	return string(ret)
}

// suitableCallbacks iterates over the methods of the given type. It will
// determine if a method satisfies the criteria for a RPC callback and adds it
// to the collection of callbacks. See server documentation for a summary of
// these criteria.
func suitableCallbacks(rcvr reflect.Value, typ reflect.Type) callbacks {
	callbacks := make(callbacks)

METHODS:
	for m := 0; m < typ.NumMethod(); m++ {
		method := typ.Method(m)
		mtype := method.Type
		mname := formatName(method.Name)
		if method.PkgPath != "" { // method must be exported
			continue
		}

		var h callback
		h.receiver = rcvr
		h.method = method
		h.errPos = -1

		firstArg := 1
		numIn := mtype.NumIn()
		if numIn >= 2 && mtype.In(1) == contextType {
			h.hasCtx = true
			firstArg = 2
		}

		// determine method arguments, ignore first arg since it's the receiver type
		// Arguments must be exported or builtin types
		h.argTypes = make([]reflect.Type, numIn-firstArg)
		for i := firstArg; i < numIn; i++ {
			argType := mtype.In(i)
			if !isExportedOrBuiltinType(argType) {
				continue METHODS
			}
			h.argTypes[i-firstArg] = argType
		}

		// check that all returned values are exported or builtin types
		for i := 0; i < mtype.NumOut(); i++ {
			if !isExportedOrBuiltinType(mtype.Out(i)) {
				continue METHODS
			}
		}

		// when a method returns an error it must be the last returned value
		h.errPos = -1
		for i := 0; i < mtype.NumOut(); i++ {
			if isErrorType(mtype.Out(i)) {
				h.errPos = i
				break
			}
		}

		if h.errPos >= 0 && h.errPos != mtype.NumOut()-1 {
			continue METHODS
		}

		switch mtype.NumOut() {
		case 0, 1, 2:
			if mtype.NumOut() == 2 && h.errPos == -1 { // method must one return value and 1 error
				continue METHODS
			}
			callbacks[mname] = &h
		}
	}

	return callbacks
}

// parseListeners creates the listeners for each normalized listen address in
// addrs on the correct interface "tcp4" and "tcp6".
func parseListeners(cfg *config.Config, addrs []string) ([]net.Listener, error) {
	ipListenAddrs, err := network.ParseListeners(addrs)
	if err != nil {
		return nil, err
	}
	listeners := make([]net.Listener, 0, len(ipListenAddrs))

	for _, addr := range ipListenAddrs {
		listener, err := net.Listen(addr.Network(), addr.String())
		if err != nil {
			log.Warn("Can't listen on", "addr", addr, "error", err)
			continue
		}
		listeners = append(listeners, listener)
	}

	if len(listeners) == 0 {
		return nil, fmt.Errorf("no valid listen address")
	}
	return listeners, nil
}

// JsonRequestStatus is the wire form of the per-method call statistics kept by
// the server.
type JsonRequestStatus struct {
	Name        string `json:"name"`
	TotalCalls  int    `json:"totalcalls"`
	TotalTime   string `json:"totaltime"`
	AverageTime string `json:"averagetime"`
	MaxTime     string `json:"maxtime"`
	MinTime     string `json:"mintime"`
	RunningNum  int    `json:"runningnum"`
}

type RequestStatus struct {
	Service    string
	Method     string
	TotalCalls uint
	TotalTime  time.Duration
	MaxTime    time.Duration
	MinTime    time.Duration

	Requests []*serverRequest
}

func (rs *RequestStatus) GetName() string {
	return rs.Service + "_" + rs.Method
}

func (rs *RequestStatus) AddRequst(sReq *serverRequest) {
	for _, v := range rs.Requests {
		if v == sReq {
			return
		}
	}
	rs.Requests = append(rs.Requests, sReq)
	rs.TotalCalls++
	sReq.time = roughtime.Now()
	log.Debug(fmt.Sprintf("Start RPC Call (id:%s method:%s)", sReq.id, rs.GetName()))
}

func (rs *RequestStatus) RemoveRequst(sReq *serverRequest) {
	for i := 0; i < len(rs.Requests); i++ {
		if rs.Requests[i] == sReq {
			cost := roughtime.Since(sReq.time)
			rs.TotalTime += cost
			rs.Requests = append(rs.Requests[:i], rs.Requests[i+1:]...)

			if cost > rs.MaxTime {
				rs.MaxTime = cost
			}
			if cost < rs.MinTime {
				rs.MinTime = cost
			}
			log.Debug(fmt.Sprintf("End RPC Call (id:%s method:%s)", sReq.id, rs.GetName()))
			return
		}
	}
}

func (rs *RequestStatus) ToJson() *JsonRequestStatus {
	rsj := JsonRequestStatus{Name: rs.GetName(), TotalCalls: int(rs.TotalCalls),
		TotalTime: rs.TotalTime.String(), AverageTime: "", RunningNum: len(rs.Requests)}
	aTime := rs.TotalTime / time.Duration(rs.TotalCalls)
	rsj.AverageTime = aTime.String()
	rsj.MaxTime = rs.MaxTime.String()
	rsj.MinTime = rs.MinTime.String()
	return &rsj
}

func NewRequestStatus(sReq *serverRequest) (*RequestStatus, error) {
	rs := RequestStatus{sReq.svcname, sReq.callb.method.Name, 0,
		0, time.Duration(0), time.Duration(math.MaxInt64), []*serverRequest{}}
	rs.AddRequst(sReq)
	return &rs, nil
}
