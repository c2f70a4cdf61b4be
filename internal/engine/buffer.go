package engine

import (
	"encoding/binary"
	"math"
	"time"
	"unicode/utf8"
)

// requestBuffer is the fixed-capacity storage exchanged between the worker
// and the consumer. The worker appends, the consumer copies out; both do so
// under the session lock. end marks the end of unconsumed data.
type requestBuffer struct {
	data []byte
	end  int
}

func newRequestBuffer(capacity int) *requestBuffer {
	return &requestBuffer{data: make([]byte, capacity)}
}

// Capacity returns the fixed size of the buffer.
func (b *requestBuffer) Capacity() int { return len(b.data) }

// Len returns the number of unconsumed bytes.
func (b *requestBuffer) Len() int { return b.end }

// Remaining returns the bytes left before the buffer is full.
func (b *requestBuffer) Remaining() int { return len(b.data) - b.end }

// Bytes returns the unconsumed data. The slice aliases the buffer; callers
// hold the session lock while using it.
func (b *requestBuffer) Bytes() []byte { return b.data[:b.end] }

// SetEnd moves the end cursor. Positions outside [0, capacity] are silently
// rejected and leave the buffer unchanged.
func (b *requestBuffer) SetEnd(pos int) {
	if pos >= 0 && pos <= len(b.data) {
		b.end = pos
	}
}

// Rewind discards all data.
func (b *requestBuffer) Rewind() { b.end = 0 }

// Consume drops the first n unconsumed bytes, moving any leftover to the
// front. Out-of-range n is ignored.
func (b *requestBuffer) Consume(n int) {
	if n < 0 || n > b.end {
		return
	}
	copy(b.data, b.data[n:b.end])
	b.end -= n
}

// Append copies as much of p as fits and returns the number of bytes taken.
func (b *requestBuffer) Append(p []byte) int {
	n := copy(b.data[b.end:], p)
	b.end += n
	return n
}

// AppendText copies as much of s as fits without splitting a multi-byte rune
// across the buffer boundary, and returns the number of bytes taken.
func (b *requestBuffer) AppendText(s string) int {
	room := b.Remaining()
	if room >= len(s) {
		return b.Append([]byte(s))
	}
	n := room
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return b.Append([]byte(s[:n]))
}

// CopyOutText copies unconsumed text into dst, cutting at a rune boundary
// when dst is smaller than the available data, and consumes the copied
// bytes. Leftover data moves to the front for the next call.
func (b *requestBuffer) CopyOutText(dst []byte) int {
	n := len(dst)
	if n > b.end {
		n = b.end
	}
	if n < b.end {
		for n > 0 && !utf8.RuneStart(b.data[n]) {
			n--
		}
	}
	copy(dst, b.data[:n])
	b.Consume(n)
	return n
}

// PutInt32 replaces the buffer contents with a little-endian int32.
func (b *requestBuffer) PutInt32(v int32) {
	binary.LittleEndian.PutUint32(b.data, uint32(v))
	b.end = 4
}

// Int32 decodes a PutInt32 payload.
func (b *requestBuffer) Int32() int32 {
	return int32(binary.LittleEndian.Uint32(b.data))
}

// PutFloat64 replaces the buffer contents with a little-endian float64.
func (b *requestBuffer) PutFloat64(v float64) {
	binary.LittleEndian.PutUint64(b.data, math.Float64bits(v))
	b.end = 8
}

// Float64 decodes a PutFloat64 payload.
func (b *requestBuffer) Float64() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b.data))
}

// PutBool replaces the buffer contents with a single 0/1 byte.
func (b *requestBuffer) PutBool(v bool) {
	b.data[0] = 0
	if v {
		b.data[0] = 1
	}
	b.end = 1
}

// Bool decodes a PutBool payload.
func (b *requestBuffer) Bool() bool { return b.data[0] != 0 }

// PutTime replaces the buffer contents with Unix nanoseconds.
func (b *requestBuffer) PutTime(t time.Time) {
	binary.LittleEndian.PutUint64(b.data, uint64(t.UnixNano()))
	b.end = 8
}

// Time decodes a PutTime payload.
func (b *requestBuffer) Time() time.Time {
	return time.Unix(0, int64(binary.LittleEndian.Uint64(b.data)))
}

// PutString replaces the buffer contents with s, truncated at a rune boundary
// when s exceeds the capacity.
func (b *requestBuffer) PutString(s string) {
	b.end = 0
	b.AppendText(s)
}

// String returns the unconsumed data as text.
func (b *requestBuffer) String() string { return string(b.data[:b.end]) }
