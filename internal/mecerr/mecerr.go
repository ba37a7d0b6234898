// Package mecerr defines the sentinel error values shared across the fusion
// pipeline so callers can branch with errors.Is instead of string matching.
package mecerr

import "errors"

var (
	// ErrAllocFailure is returned when a track table or buffer cannot grow.
	// It is always non-fatal: the caller drops the affected item and continues.
	ErrAllocFailure = errors.New("mec: allocation failure")

	// ErrQueueFull is returned by a non-blocking push against a full queue.
	ErrQueueFull = errors.New("mec: queue full")

	// ErrQueueTimeout is returned by pop when no message arrives within the
	// requested timeout. It is flow control, not a failure.
	ErrQueueTimeout = errors.New("mec: queue pop timed out")

	// ErrQueueClosed is returned by push/pop after Destroy has run.
	ErrQueueClosed = errors.New("mec: queue closed")

	// ErrBufferTooSmall is returned by the V2X codec when the destination
	// buffer cannot hold at least the header and the count byte.
	ErrBufferTooSmall = errors.New("mec: buffer too small")

	// ErrInvalidDetection marks a detection with NaN or out-of-range fields.
	ErrInvalidDetection = errors.New("mec: invalid detection")

	// ErrTrackTableFull is logged by the fusion engine (not returned, never
	// fatal) when a birth is attempted with the track table already at
	// capacity; the detection is dropped.
	ErrTrackTableFull = errors.New("mec: track table full")
)
