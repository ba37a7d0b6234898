// Package trackbuf implements the reference-counted, amortised-growth
// detection buffer shared between sensor producers and the fusion engine.
//
// The original C source declared a mutex (ref_lock) alongside the refcount
// field but the actual implementation in track_list.c used atomic_int and
// never touched the mutex. That atomic form is the one this package
// reproduces; no internal lock protects the counter.
package trackbuf

import "sync/atomic"

// TargetType mirrors the original target_type_t enum.
type TargetType uint8

const (
	TargetVehicle TargetType = iota
	TargetNonVehicle
	TargetPedestrian
	TargetObstacle
)

// Detection is one sensor observation of a physical object.
type Detection struct {
	ID          uint32
	Type        TargetType
	Latitude    float64
	Longitude   float64
	Altitude    float64
	Velocity    float64 // m/s
	Heading     float64 // degrees, 0 = East, CCW positive
	Confidence  float64 // [0,1]
	TimestampUs int64   // microsecond resolution, monotonic within a source
	SensorID    int
}

// Buffer is an ordered, reference-counted sequence of detections with
// amortised doubling growth. The zero value is not usable; use New.
type Buffer struct {
	refcount int32
	items    []Detection
}

// New creates a buffer with the given initial capacity and refcount 1.
func New(initialCapacity int) *Buffer {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	return &Buffer{
		refcount: 1,
		items:    make([]Detection, 0, initialCapacity),
	}
}

// Retain atomically increments the reference count. Callers that intend to
// keep using a buffer concurrently with handing a reference to another
// owner (e.g. the queue) must Retain first.
func (b *Buffer) Retain() {
	atomic.AddInt32(&b.refcount, 1)
}

// Release atomically decrements the reference count. The caller must not
// touch b again after a Release that it cannot prove left refcount > 0.
// Go's garbage collector reclaims the backing storage once nothing
// references b; Release exists to preserve the original ownership contract
// (and to let callers assert they dropped a logical reference), not to
// manage memory directly.
func (b *Buffer) Release() {
	atomic.AddInt32(&b.refcount, -1)
}

// RefCount returns the current reference count. Intended for tests and
// diagnostics; the live value may change concurrently.
func (b *Buffer) RefCount() int32 {
	return atomic.LoadInt32(&b.refcount)
}

// Add appends a detection, growing the backing slice by Go's own amortised
// doubling (append) to match the spec's "doubles capacity on full" growth
// policy.
func (b *Buffer) Add(d Detection) {
	b.items = append(b.items, d)
}

// Clear sets the length to zero but preserves the underlying capacity.
func (b *Buffer) Clear() {
	b.items = b.items[:0]
}

// Len returns the number of detections currently stored.
func (b *Buffer) Len() int {
	return len(b.items)
}

// Cap returns the current backing capacity.
func (b *Buffer) Cap() int {
	return cap(b.items)
}

// At returns the detection at index i.
func (b *Buffer) At(i int) Detection {
	return b.items[i]
}

// All returns the live detections. The returned slice aliases the buffer's
// storage and must not be retained past a subsequent Clear or Add.
func (b *Buffer) All() []Detection {
	return b.items
}
