// Package radar is the external radar collaborator: serial port I/O and
// frame parsing (spec §1, "the easy part") specified only by the Adapter
// interface and the calls it makes into the fusion pipeline.
package radar

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"time"

	"go.bug.st/serial"

	"mec-fusion-go/internal/mecerr"
	"mec-fusion-go/internal/trackbuf"
)

// SensorID is the fixed sensor identifier used for sensor_mask bits,
// matching the original main.c's convention (radar = 2).
const SensorID = 2

// Adapter produces a batch of detections from whatever framing the radar
// unit uses on the wire.
type Adapter interface {
	Detect() (*trackbuf.Buffer, error)
	Close() error
}

// frameSize is the fixed little-endian target record this adapter expects:
// u32 id, u8 type, f32 lat, f32 lon, f32 velocity, f32 heading, f32 confidence.
const frameSize = 4 + 1 + 4*5

// SerialAdapter reads fixed-size binary target frames from a serial port.
type SerialAdapter struct {
	port serial.Port
	r    *bufio.Reader
}

// Open opens portName at baud and returns a ready SerialAdapter.
func Open(portName string, baud int) (*SerialAdapter, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	return &SerialAdapter{port: p, r: bufio.NewReaderSize(p, 4096)}, nil
}

// Detect reads as many complete frames as are currently buffered and
// returns them as a single batch. It never blocks waiting for more data
// than is already available from the last successful read.
func (a *SerialAdapter) Detect() (*trackbuf.Buffer, error) {
	buf := trackbuf.New(8)
	for {
		n := a.r.Buffered()
		if n < frameSize {
			break
		}
		raw := make([]byte, frameSize)
		if _, err := io.ReadFull(a.r, raw); err != nil {
			return buf, err
		}
		d, err := decodeFrame(raw)
		if err != nil {
			continue
		}
		d.TimestampUs = time.Now().UnixMicro()
		buf.Add(d)
	}
	return buf, nil
}

func decodeFrame(raw []byte) (trackbuf.Detection, error) {
	if len(raw) != frameSize {
		return trackbuf.Detection{}, mecerr.ErrInvalidDetection
	}
	id := binary.LittleEndian.Uint32(raw[0:4])
	typ := trackbuf.TargetType(raw[4])
	lat := math.Float32frombits(binary.LittleEndian.Uint32(raw[5:9]))
	lon := math.Float32frombits(binary.LittleEndian.Uint32(raw[9:13]))
	vel := math.Float32frombits(binary.LittleEndian.Uint32(raw[13:17]))
	hdg := math.Float32frombits(binary.LittleEndian.Uint32(raw[17:21]))
	conf := math.Float32frombits(binary.LittleEndian.Uint32(raw[21:25]))

	return trackbuf.Detection{
		ID:         id,
		Type:       typ,
		Latitude:   float64(lat),
		Longitude:  float64(lon),
		Velocity:   float64(vel),
		Heading:    float64(hdg),
		Confidence: float64(conf),
		SensorID:   SensorID,
	}, nil
}

// Close releases the underlying serial port.
func (a *SerialAdapter) Close() error {
	return a.port.Close()
}
