// SPDX-License-Identifier: EPL-2.0

package audio

import "sync/atomic"

// Ring is a lock-free single-producer/single-consumer circular buffer of
// float32 samples. The fill goroutine writes, the render path reads; neither
// side ever blocks. One slot is kept unusable so that full and empty are
// distinguishable with only the two cursors: Available()+Free() == cap-1.
type Ring struct {
	buf      []float32
	capacity int

	writePos atomic.Int64
	readPos  atomic.Int64
}

// NewRing creates a ring holding at most capacity-1 samples.
func NewRing(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring{
		buf:      make([]float32, capacity),
		capacity: capacity,
	}
}

// Write copies up to min(len(data), Free()) samples into the ring and
// returns the count written. Partial writes under backpressure are expected.
func (r *Ring) Write(data []float32) int {
	toWrite := len(data)
	if free := r.Free(); toWrite > free {
		toWrite = free
	}
	if toWrite == 0 {
		return 0
	}

	writeIdx := int(r.writePos.Load())
	first := r.capacity - writeIdx
	if first > toWrite {
		first = toWrite
	}

	copy(r.buf[writeIdx:], data[:first])
	if toWrite > first {
		copy(r.buf, data[first:toWrite])
	}

	r.writePos.Store(int64((writeIdx + toWrite) % r.capacity))
	return toWrite
}

// Read copies up to min(len(dst), Available()) samples out of the ring in
// FIFO order and returns the count read. Returns 0 when empty.
func (r *Ring) Read(dst []float32) int {
	toRead := len(dst)
	if avail := r.Available(); toRead > avail {
		toRead = avail
	}
	if toRead == 0 {
		return 0
	}

	readIdx := int(r.readPos.Load())
	first := r.capacity - readIdx
	if first > toRead {
		first = toRead
	}

	copy(dst[:first], r.buf[readIdx:readIdx+first])
	if toRead > first {
		copy(dst[first:toRead], r.buf)
	}

	r.readPos.Store(int64((readIdx + toRead) % r.capacity))
	return toRead
}

// Available reports the number of samples ready to read.
func (r *Ring) Available() int {
	writeIdx := int(r.writePos.Load())
	readIdx := int(r.readPos.Load())

	if writeIdx >= readIdx {
		return writeIdx - readIdx
	}
	return r.capacity - (readIdx - writeIdx)
}

// Free reports the number of samples that can be written.
func (r *Ring) Free() int {
	// One slot stays empty to distinguish full from empty.
	return r.capacity - r.Available() - 1
}

// Capacity returns the ring's allocation size; usable space is Capacity()-1.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Reset discards all buffered samples by rewinding both cursors. The
// storage is not zeroed.
func (r *Ring) Reset() {
	r.writePos.Store(0)
	r.readPos.Store(0)
}
