// Copyright (c) 2017-2018 The qitmeer developers

package rpc

import (
	"fmt"
)

// RpcInvalidError is a convenience function to convert an invalid parameter
// error to an RPC error with the appropriate code set.
func RpcInvalidError(fmtStr string, args ...interface{}) error {
	str := fmt.Sprintf(fmtStr, args...)
	return fmt.Errorf("Invalid Parameter : %s", str)
}

// RpcDecodeHexError is a convenience function for returning a nicely formatted
// RPC error which indicates the provided hex string failed to decode.
func RpcDecodeHexError(gotHex string) error {
	return fmt.Errorf("Argument must be hexadecimal string (not %q)", gotHex)
}

// RpcDeserializationError is a convenience function to convert a
// deserialization error to an RPC error
func RpcDeserializationError(fmtStr string, args ...interface{}) error {
	str := fmt.Sprintf(fmtStr, args...)
	return fmt.Errorf("Deserialization Error : %s", str)
}

// RpcDuplicateTxError is a convenience function to convert a
// rejected duplicate tx error to an RPC error
func RpcDuplicateTxError(fmtStr string, args ...interface{}) error {
	str := fmt.Sprintf(fmtStr, args...)
	return fmt.Errorf("Duplicate Tx Error : %s", str)
}

// RpcRuleError is a convenience function to convert a
// rule error to an RPC error
func RpcRuleError(fmtStr string, args ...interface{}) error {
	str := fmt.Sprintf(fmtStr, args...)
	return fmt.Errorf("Rule Error : %s", str)
}

func RpcInternalError(err, context string) error {
	return fmt.Errorf("%s : %s", context, err)
}

// RPCClientInInitialDownloadError is used when a getblocktemplate style
// request arrives while the chain is still syncing.
func RPCClientInInitialDownloadError(err, context string) error {
	return fmt.Errorf("%s : %s", context, err)
}

// RPCClientNotConnectedError is used when a request requires connected
// peers but the node has none.
func RPCClientNotConnectedError(err, context string) error {
	return fmt.Errorf("%s : %s", context, err)
}
