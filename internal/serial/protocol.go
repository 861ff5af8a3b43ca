// Package serial talks to the lighting controller over a serial port.
//
// Packets are framed as
//
//	start(0xE7) | opcode | payload... | checksum | end(0x7E)
//
// where the checksum is the wrapping sum of every byte from the opcode up to
// the checksum. Requests are answered with a fixed five byte response
//
//	start | request type | response code | checksum | end
package serial

import "time"

const (
	StartByte byte = 0xE7
	EndByte   byte = 0x7E

	OpRequest       byte = 0x3F // '?'
	OpWriteChannels byte = 0x57 // 'W'

	RequestReady byte = 0x72 // 'r'

	ResponseLength = 5
	RequestTimeout = time.Second
	BaudRate       = 57600

	// MaxRetries is how many times the ready request is re-sent before the
	// device is left unready.
	MaxRetries = 4

	opcodeIndex       = 1
	firstPayloadIndex = 2
)

// newPacket returns a zeroed packet with room for payloadLen bytes.
func newPacket(opcode byte, payloadLen int) []byte {
	p := make([]byte, payloadLen+4)
	p[0] = StartByte
	p[opcodeIndex] = opcode
	p[len(p)-1] = EndByte
	return p
}

// writeChecksum stores the wrapping sum of bytes opcode..checksum-1.
func writeChecksum(p []byte) {
	idx := len(p) - 2
	var sum byte
	for _, b := range p[opcodeIndex:idx] {
		sum += b
	}
	p[idx] = sum
}

// NewWritePacket returns a channel write packet for the given values.
func NewWritePacket(values ...byte) []byte {
	p := newPacket(OpWriteChannels, len(values))
	copy(p[firstPayloadIndex:], values)
	writeChecksum(p)
	return p
}

// NewRequestPacket returns a request packet for reqType with optional
// parameters.
func NewRequestPacket(reqType byte, params ...byte) []byte {
	p := newPacket(OpRequest, 1+len(params))
	p[firstPayloadIndex] = reqType
	copy(p[firstPayloadIndex+1:], params)
	writeChecksum(p)
	return p
}

// ValidateResponse checks length, delimiters, request type and checksum of a
// response to reqType.
func ValidateResponse(b []byte, reqType byte) bool {
	if len(b) != ResponseLength {
		return false
	}
	if b[0] != StartByte || b[ResponseLength-1] != EndByte {
		return false
	}
	if b[1] != reqType {
		return false
	}
	var sum byte
	for _, v := range b[1 : ResponseLength-2] {
		sum += v
	}
	return sum == b[ResponseLength-2]
}

// NewResponse builds a valid response frame. Controllers and tests use it.
func NewResponse(reqType, code byte) []byte {
	return []byte{StartByte, reqType, code, reqType + code, EndByte}
}
