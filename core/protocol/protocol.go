// Copyright (c) 2017-2018 The nox developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"fmt"
)

const (
	// InitialProtocolVersion is the initial protocol version for the
	// network.
	InitialProtocolVersion uint32 = 1

	// ProtocolVersion is the latest protocol version this package supports.
	ProtocolVersion uint32 = 1
)

// Network represents which zeno network a message belongs to.
type Network uint32

// Constants used to indicate the message of network. They can also be used to
// seek to the next message when a stream's state is unknown.
const (
	// MainNet represents the main network.
	MainNet Network = 0xd9e4b1f2

	// TestNet represents the test network.
	TestNet Network = 0x41c52ba6

	// PrivNet represents the private test network.
	PrivNet Network = 0xe2fd0003
)

// bnStrings is a map of networks back to their constant names for
// pretty printing.
var bnStrings = map[Network]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	PrivNet: "PrivNet",
}

// String returns the Network in human-readable form.
func (n Network) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Network (%d)", uint32(n))
}
