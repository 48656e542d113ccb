// Wire helpers for the server list ping: VarInts, length-prefixed strings
// and packet framing.

package status

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Packet framing for the Java Edition status protocol: every packet is a
// VarInt length followed by a VarInt packet id and the payload.

const (
	packetHandshake int32 = 0x00
	packetStatus    int32 = 0x00
	packetPing      int32 = 0x01

	// maxPacketSize bounds status responses; favicons are the bulk of them.
	maxPacketSize = 1 << 20
	maxVarIntLen  = 5
)

var errVarIntTooLong = errors.New("varint exceeds 5 bytes")

func appendVarInt(b []byte, v int32) []byte {
	u := uint32(v)
	for {
		if u&^0x7F == 0 {
			return append(b, byte(u))
		}
		b = append(b, byte(u&0x7F|0x80))
		u >>= 7
	}
}

func readVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	for i := 0; i < maxVarIntLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, errVarIntTooLong
}

func appendString(b []byte, s string) []byte {
	b = appendVarInt(b, int32(len(s)))
	return append(b, s...)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readVarInt(r)
	if err != nil {
		return "", fmt.Errorf("string length: %w", err)
	}
	if n < 0 || int(n) > r.Len() {
		return "", fmt.Errorf("string length %d out of range", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writePacket frames id+payload and writes it in a single call.
func writePacket(w io.Writer, id int32, payload []byte) error {
	body := appendVarInt(nil, id)
	body = append(body, payload...)
	frame := appendVarInt(make([]byte, 0, len(body)+maxVarIntLen), int32(len(body)))
	frame = append(frame, body...)
	_, err := w.Write(frame)
	return err
}

// readPacket reads one framed packet and returns its id and payload reader.
func readPacket(r *bufio.Reader) (int32, *bytes.Reader, error) {
	length, err := readVarInt(r)
	if err != nil {
		return 0, nil, fmt.Errorf("packet length: %w", err)
	}
	if length <= 0 || length > maxPacketSize {
		return 0, nil, fmt.Errorf("packet length %d out of range", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, fmt.Errorf("packet body: %w", err)
	}
	br := bytes.NewReader(buf)
	id, err := readVarInt(br)
	if err != nil {
		return 0, nil, fmt.Errorf("packet id: %w", err)
	}
	return id, br, nil
}

func handshakePayload(protocol int32, host string, port uint16) []byte {
	b := appendVarInt(nil, protocol)
	b = appendString(b, host)
	b = binary.BigEndian.AppendUint16(b, port)
	return appendVarInt(b, 1) // next state: status
}
