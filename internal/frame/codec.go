// Package frame implements the wire codec: a catalog envelope is
// serialised to CBOR, protected by a CRC16-ARC stored little-endian, COBS
// stuffed, and delimited by 0x00 bytes:
//
//	DELIM  COBS( CBOR(envelope) || CRC16-LE )  DELIM
//
// The Finder reassembles frames from a noisy byte stream one byte at a
// time.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/sdfgeoff/slambot/internal/message"
)

const (
	// Delim frames every packet on the wire.
	Delim = 0x00
	// maxBody bounds the serialised envelope, mirroring the controller's
	// scratch buffer.
	maxBody = 500
	// MaxEncodedLen is the worst-case COBS output for a full body plus
	// checksum; callers sizing write buffers should add two delimiters.
	MaxEncodedLen = maxBody + 2 + (maxBody+2)/254 + 1
)

// Encode serialises env into dst and returns the number of bytes written.
// The output is the COBS payload only; the caller frames it with Delim
// bytes. Fails with ErrSerialize or ErrBufferTooSmall.
func Encode(env *message.Envelope, dst []byte) (int, error) {
	body, err := message.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	if len(body) > maxBody {
		return 0, fmt.Errorf("%w: body is %d bytes, limit %d", ErrSerialize, len(body), maxBody)
	}
	var scratch [maxBody + 2]byte
	n := copy(scratch[:], body)
	binary.LittleEndian.PutUint16(scratch[n:], Checksum(body))
	return cobsEncode(dst, scratch[:n+2])
}

// AppendFrame encodes env as a complete delimited frame and appends it to
// dst.
func AppendFrame(dst []byte, env *message.Envelope) ([]byte, error) {
	var buf [MaxEncodedLen]byte
	n, err := Encode(env, buf[:])
	if err != nil {
		return dst, err
	}
	dst = append(dst, Delim)
	dst = append(dst, buf[:n]...)
	return append(dst, Delim), nil
}

// Decode parses a COBS payload (delimiters already stripped) into an
// envelope. buf is unstuffed in place and must not be reused afterwards.
// A non-nil limits enforces the embedded string bounds.
func Decode(buf []byte, limits *message.Limits) (*message.Envelope, error) {
	n, err := cobsDecodeInPlace(buf)
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, ErrFrameTooShort
	}
	body, trailer := buf[:n-2], buf[n-2:n]
	got := binary.LittleEndian.Uint16(trailer)
	if want := Checksum(body); got != want {
		return nil, fmt.Errorf("%w: got %#04x want %#04x", ErrCRCMismatch, got, want)
	}
	env, err := message.Unmarshal(body, limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return env, nil
}
