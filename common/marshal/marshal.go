// Copyright (c) 2017-2018 The qitmeer developers

package marshal

import (
	"bytes"
	"encoding/hex"
	"fmt"

	s "github.com/zenoproject/zeno/core/serialization"
)

// MessageToHex serializes a wire object using its canonical encoding and
// returns a hex-encoded string of the result.
func MessageToHex(msg s.Serializable) (string, error) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize message: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
