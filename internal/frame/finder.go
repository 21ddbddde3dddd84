package frame

// finderBufSize bounds a frame in flight; oversized frames are dropped.
const finderBufSize = 512

// Finder extracts complete frames from a byte stream. It tolerates noise:
// bytes outside a frame are discarded, and a frame that outgrows the
// buffer is dropped and scanning restarts at the next delimiter.
//
// A delimiter both terminates the current frame and opens the next one, so
// back-to-back frames may share a single delimiter on the wire. A
// delimiter arriving immediately after another yields an empty frame;
// callers discard those before decoding.
//
// The zero value is ready to use.
type Finder struct {
	buf     [finderBufSize]byte
	n       int
	inFrame bool
}

// Push consumes one byte. When a complete frame is available it returns
// (frame, true); the returned slice aliases the Finder's buffer and is
// only valid until the next Push.
func (f *Finder) Push(b byte) ([]byte, bool) {
	if b == Delim {
		if !f.inFrame {
			f.inFrame = true
			f.buf[0] = Delim
			f.n = 1
			return nil, false
		}
		pkt := f.buf[1:f.n]
		f.n = 1 // the delimiter that closed this frame opens the next
		return pkt, true
	}
	if !f.inFrame {
		return nil, false
	}
	if f.n == len(f.buf) {
		f.inFrame = false
		f.n = 0
		return nil, false
	}
	f.buf[f.n] = b
	f.n++
	return nil, false
}
