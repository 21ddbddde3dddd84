package frame

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCOBS_KnownVectors(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		enc  []byte
	}{
		{"empty", []byte{}, []byte{0x01}},
		{"single zero", []byte{0x00}, []byte{0x01, 0x01}},
		{"two zeros", []byte{0x00, 0x00}, []byte{0x01, 0x01, 0x01}},
		{"zero in middle", []byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33}},
		{"no zeros", []byte{0x11, 0x22, 0x33, 0x44}, []byte{0x05, 0x11, 0x22, 0x33, 0x44}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dst := make([]byte, 64)
			n, err := cobsEncode(dst, tc.raw)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !bytes.Equal(dst[:n], tc.enc) {
				t.Fatalf("encoded % X, want % X", dst[:n], tc.enc)
			}
			buf := append([]byte(nil), dst[:n]...)
			m, err := cobsDecodeInPlace(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(buf[:m], tc.raw) {
				t.Fatalf("decoded % X, want % X", buf[:m], tc.raw)
			}
		})
	}
}

func TestCOBS_RoundTripRandom(t *testing.T) {
	for size := 0; size <= 1024; size += 37 {
		raw := make([]byte, size)
		rand.Read(raw)
		dst := make([]byte, size+size/254+2)
		n, err := cobsEncode(dst, raw)
		if err != nil {
			t.Fatalf("size %d: encode: %v", size, err)
		}
		if bytes.IndexByte(dst[:n], 0x00) >= 0 {
			t.Fatalf("size %d: encoded output contains 0x00", size)
		}
		m, err := cobsDecodeInPlace(dst[:n])
		if err != nil {
			t.Fatalf("size %d: decode: %v", size, err)
		}
		if !bytes.Equal(dst[:m], raw) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestCOBS_LongRuns(t *testing.T) {
	// 254 non-zero bytes need a phantom block; 255 spill into a second one.
	for _, size := range []int{253, 254, 255, 508, 510} {
		raw := bytes.Repeat([]byte{0xAA}, size)
		dst := make([]byte, size+size/254+2)
		n, err := cobsEncode(dst, raw)
		if err != nil {
			t.Fatalf("size %d: encode: %v", size, err)
		}
		m, err := cobsDecodeInPlace(dst[:n])
		if err != nil {
			t.Fatalf("size %d: decode: %v", size, err)
		}
		if !bytes.Equal(dst[:m], raw) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestCOBS_EncodeBufferTooSmall(t *testing.T) {
	raw := []byte{0x11, 0x22, 0x33}
	for size := 0; size < 4; size++ {
		if _, err := cobsEncode(make([]byte, size), raw); err != ErrBufferTooSmall {
			t.Fatalf("dst size %d: got %v, want ErrBufferTooSmall", size, err)
		}
	}
}

func TestCOBS_DecodeMalformed(t *testing.T) {
	cases := [][]byte{
		{0x00},             // zero code byte
		{0x05, 0x11},       // block runs past the buffer
		{0x03, 0x11, 0x00}, // zero inside a block
	}
	for _, raw := range cases {
		if _, err := cobsDecodeInPlace(append([]byte(nil), raw...)); err == nil {
			t.Fatalf("decode of % X succeeded, want error", raw)
		}
	}
}
