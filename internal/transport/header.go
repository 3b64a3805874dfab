// Package transport implements the wire package framing of spec §6 and a
// minimal framed-TCP client/server pair used to move pool sub-batches
// between the local node and its peers (spec §4.4 remote path).
package transport

import (
	"encoding/binary"
	"errors"
)

// PackageType identifies what a Package carries on the wire.
type PackageType uint8

const (
	ReqInsert        PackageType = 0x01
	ResInsertSuccess PackageType = 0x02
	ResInsertError   PackageType = 0x03
)

// HeaderSize is the fixed 8-byte header size from spec §6:
// {request_id: u16, body_length: u32, type: u8, type_check: u8}, little-endian.
const HeaderSize = 2 + 4 + 1 + 1

// Header is the fixed package header. TypeCheck must equal Type XOR 0xFF;
// DecodeHeader rejects any header where it doesn't.
type Header struct {
	RequestID  uint16
	BodyLength uint32
	Type       PackageType
	TypeCheck  uint8
}

// NewHeader builds a Header with TypeCheck derived from t.
func NewHeader(requestID uint16, bodyLength uint32, t PackageType) Header {
	return Header{RequestID: requestID, BodyLength: bodyLength, Type: t, TypeCheck: uint8(t) ^ 0xFF}
}

// Valid reports whether TypeCheck matches Type.
func (h Header) Valid() bool {
	return h.TypeCheck == uint8(h.Type)^0xFF
}

var errShortHeader = errors.New("transport: short header")
var errTypeCheckMismatch = errors.New("transport: type_check mismatch")

// EncodeHeader writes h into buf, which must be at least HeaderSize bytes.
func EncodeHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint16(buf[0:2], h.RequestID)
	binary.LittleEndian.PutUint32(buf[2:6], h.BodyLength)
	buf[6] = uint8(h.Type)
	buf[7] = h.TypeCheck
}

// DecodeHeader parses a Header from buf and validates its type_check.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errShortHeader
	}
	h := Header{
		RequestID:  binary.LittleEndian.Uint16(buf[0:2]),
		BodyLength: binary.LittleEndian.Uint32(buf[2:6]),
		Type:       PackageType(buf[6]),
		TypeCheck:  buf[7],
	}
	if !h.Valid() {
		return Header{}, errTypeCheckMismatch
	}
	return h, nil
}
