// Copyright 2017-2018 The nox developers

package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxVarIntPayload is the maximum payload size a variable length integer can
// occupy on the wire.
const MaxVarIntPayload = 9

// Serializable is the interface shared by all wire objects.
type Serializable interface {
	Serialize(w io.Writer) error

	Deserialize(r io.Reader) error
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return binary.Write(w, binary.LittleEndian, uint8(val))
	}
	if val <= 0xffff {
		if err := binary.Write(w, binary.LittleEndian, uint8(0xfd)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint16(val))
	}
	if val <= 0xffffffff {
		if err := binary.Write(w, binary.LittleEndian, uint8(0xfe)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint32(val))
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(0xff)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, val)
}

// ReadVarInt deserializes a variable length integer from r. Non-canonical
// encodings are rejected.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant uint8
	if err := binary.Read(r, binary.LittleEndian, &discriminant); err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		if err := binary.Read(r, binary.LittleEndian, &rv); err != nil {
			return 0, err
		}
		if rv <= 0xffffffff {
			return 0, fmt.Errorf("non-canonical varint %d", rv)
		}
	case 0xfe:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		rv = uint64(v)
		if rv <= 0xffff {
			return 0, fmt.Errorf("non-canonical varint %d", rv)
		}
	case 0xfd:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		rv = uint64(v)
		if rv < 0xfd {
			return 0, fmt.Errorf("non-canonical varint %d", rv)
		}
	default:
		rv = uint64(discriminant)
	}
	return rv, nil
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= 0xffff {
		return 3
	}
	if val <= 0xffffffff {
		return 5
	}
	return MaxVarIntPayload
}

// WriteVarBytes serializes a variable length byte array prefixed with its
// length.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarBytes reads a variable length byte array bounded by maxAllowed.
// fieldName names the element in error messages.
func ReadVarBytes(r io.Reader, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > uint64(maxAllowed) {
		return nil, fmt.Errorf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteElements serializes the passed fixed-size elements with little endian
// byte order.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := binary.Write(w, binary.LittleEndian, element); err != nil {
			return err
		}
	}
	return nil
}

// ReadElements deserializes the passed fixed-size elements with little endian
// byte order.
func ReadElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := binary.Read(r, binary.LittleEndian, element); err != nil {
			return err
		}
	}
	return nil
}
