package frame

import "errors"

var (
	// ErrBufferTooSmall is returned when the destination cannot hold the
	// encoded frame.
	ErrBufferTooSmall = errors.New("frame: destination buffer too small")
	// ErrCOBSDecode is returned for malformed COBS data (stray zero byte or
	// a block running past the end of the buffer).
	ErrCOBSDecode = errors.New("frame: invalid COBS data")
	// ErrFrameTooShort is returned when the decoded frame cannot even hold
	// its checksum.
	ErrFrameTooShort = errors.New("frame: too short")
	// ErrCRCMismatch is returned when the received checksum does not match
	// the payload.
	ErrCRCMismatch = errors.New("frame: crc mismatch")
	// ErrSerialize is returned when the envelope cannot be serialised or
	// exceeds the scratch buffer.
	ErrSerialize = errors.New("frame: payload serialization failed")
	// ErrDeserialize is returned when an integrity-checked payload does not
	// parse as a catalog envelope.
	ErrDeserialize = errors.New("frame: payload deserialization failed")
)
