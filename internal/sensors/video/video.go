// Package video is the external video/detector collaborator: RTSP decode,
// perspective calibration and the visual object detector itself are all
// out of scope (spec §1) and specified only by the Detector interface and
// the calls it makes into the fusion pipeline.
package video

import (
	"mec-fusion-go/internal/trackbuf"
)

// SensorID is the fixed sensor identifier used for sensor_mask bits, matching
// the original main.c's convention (video = 1).
const SensorID = 1

// Detector produces a batch of detections for the current frame. A real
// implementation decodes an RTSP stream and runs a visual object detector;
// it is a black box from the fusion engine's point of view.
type Detector interface {
	// Detect returns the detections observed in the current frame, or an
	// error if the frame could not be captured/processed. Returning a nil
	// buffer with a nil error means "no detections this frame".
	Detect() (*trackbuf.Buffer, error)
}

// NopDetector always reports no detections; useful as a placeholder until
// a concrete RTSP-backed Detector is wired in.
type NopDetector struct{}

func (NopDetector) Detect() (*trackbuf.Buffer, error) { return nil, nil }
