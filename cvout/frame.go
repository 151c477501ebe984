// Package cvout drives a serial gate interface board: a microcontroller with
// one digital output per engine gate, updated by full-state frames.
package cvout

const (
	CmdSetGates = 0x20
	SOF0        = 0xAA
	SOF1        = 0x55
)

// NumGates is the number of gate outputs on the board: beat, accent and end
// of cycle for each of four tracks.
const NumGates = 12

// Frame is a full-state snapshot of all gate outputs.
type Frame struct {
	Mask uint16 // bit n set = gate n high
	Seq  byte
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][maskLo][maskHi][Seq][CKS]
//
// LEN counts CMD and payload. CKS is the XOR of LEN, CMD and payload.
func (f Frame) Encode() []byte {
	payload := [3]byte{byte(f.Mask), byte(f.Mask >> 8), f.Seq}

	length := byte(len(payload) + 1)
	cks := length ^ CmdSetGates
	for _, b := range payload {
		cks ^= b
	}

	out := make([]byte, 0, 4+len(payload)+1)
	out = append(out, SOF0, SOF1, length, CmdSetGates)
	out = append(out, payload[:]...)
	return append(out, cks)
}

// Decode parses one encoded frame. It is the inverse of Encode and is used
// by the loopback check.
func Decode(b []byte) (Frame, bool) {
	if len(b) != 8 || b[0] != SOF0 || b[1] != SOF1 || b[2] != 4 || b[3] != CmdSetGates {
		return Frame{}, false
	}
	cks := byte(0)
	for _, v := range b[2:7] {
		cks ^= v
	}
	if cks != b[7] {
		return Frame{}, false
	}
	return Frame{Mask: uint16(b[4]) | uint16(b[5])<<8, Seq: b[6]}, true
}
