/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package ringbuffer is a fixed-capacity byte FIFO used for request bodies
// and CGI pipe staging. Unlike a growable buffer it never reallocates:
// writes past capacity are reported to the caller instead of discarding
// or blocking, so the HTTP parser and the CGI coordinator can apply their
// own backpressure (stop parsing / stop reading the pipe until the
// consumer drains).
package ringbuffer

import (
	"errors"
	"sync"
)

// ErrWouldOverflow is returned by Write when the requested bytes do not fit
// in the remaining free space; the caller must Read/Advance first.
var ErrWouldOverflow = errors.New("ringbuffer: write would overflow capacity")

// RingBuffer is a fixed-size byte ring. Zero value is not usable; use New.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []byte
	cap  int
	head int // next byte to read
	size int // number of valid bytes currently stored
}

// New allocates a RingBuffer able to hold capacity bytes.
func New(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]byte, capacity), cap: capacity}
}

// Capacity returns the fixed allocation size.
func (r *RingBuffer) Capacity() int {
	return r.cap
}

// Size returns the number of unread bytes currently stored.
func (r *RingBuffer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Free returns how many bytes can still be written without overflowing.
func (r *RingBuffer) Free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cap - r.size
}

// Write appends p to the buffer. It writes all of p or none of it: a
// partial write never happens, so a caller can always tell "not enough
// room yet" apart from a real error.
func (r *RingBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) > r.cap-r.size {
		return 0, ErrWouldOverflow
	}

	tail := (r.head + r.size) % r.cap
	n := copy(r.buf[tail:], p)
	if n < len(p) {
		copy(r.buf[0:], p[n:])
	}
	r.size += len(p)
	return len(p), nil
}

// Peek copies up to len(p) unread bytes into p without advancing the read
// cursor, returning how many bytes were copied.
func (r *RingBuffer) Peek(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peekLocked(p)
}

func (r *RingBuffer) peekLocked(p []byte) int {
	n := len(p)
	if n > r.size {
		n = r.size
	}
	if n == 0 {
		return 0
	}

	first := r.cap - r.head
	if first > n {
		first = n
	}
	copy(p[:first], r.buf[r.head:r.head+first])
	if n > first {
		copy(p[first:n], r.buf[0:n-first])
	}
	return n
}

// Read copies unread bytes into p and advances the read cursor by the
// number of bytes copied, draining the buffer exactly like Peek+Advance.
func (r *RingBuffer) Read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.peekLocked(p)
	r.advanceLocked(n)
	return n
}

// Advance discards n unread bytes without copying them anywhere, typically
// after a Peek. Advancing more bytes than are stored is a caller error and
// is clamped to Size().
func (r *RingBuffer) Advance(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked(n)
}

func (r *RingBuffer) advanceLocked(n int) {
	if n > r.size {
		n = r.size
	}
	r.head = (r.head + n) % r.cap
	r.size -= n
}

// Clear empties the buffer. Per the invariant, this is only meaningful
// once every pending byte has been consumed; clearing with unread bytes
// still present silently discards them. Reset() on the owning parser is
// the only caller; it drops any body bytes the finished request left
// unconsumed before the next keep-alive request.
func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
}
