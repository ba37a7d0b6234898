// Package v2x implements the big-endian V2X Roadside Safety Message (RSM)
// codec, grounded in the big-endian encoding/binary style used by
// cv2x_parser.go's BSM/CAM/DENM/CPM parsers, applied here to encoding
// rather than decoding.
//
// Two bugs present in the original v2x_codec.c are fixed here, per the
// spec's DESIGN NOTES: the header timestamp is written big-endian (the
// original memcpy'd host-endian bytes despite claiming network order), and
// the count byte reflects the number of participants actually written
// after truncation rather than the untruncated source count.
package v2x

import (
	"encoding/binary"
	"math"

	"mec-fusion-go/internal/fusion"
	"mec-fusion-go/internal/mecerr"
)

const (
	Magic          byte = 0x56 // 'V'
	ProtocolVer    byte = 1
	MsgTypeRSM     byte = 0x01
	headerSize          = 1 + 1 + 1 + 4 + 8 // magic, version, msg_type, device_id, timestamp_ms
	participantSize     = 2 + 1 + 4 + 4 + 2 + 2 + 1
)

// Encode serializes snapshot into buf as an RSM frame addressed from
// deviceID, at timestampMs milliseconds since the Unix epoch. It returns
// the number of bytes written. If buf cannot hold at least the header plus
// the count byte, it returns mecerr.ErrBufferTooSmall. If not all
// participants fit, the list is silently truncated and the count byte
// (and the returned length) reflect exactly what was written.
func Encode(snapshot []fusion.OutputTrack, deviceID uint32, timestampMs uint64, buf []byte) (int, error) {
	if len(buf) < headerSize+1 {
		return 0, mecerr.ErrBufferTooSmall
	}

	buf[0] = Magic
	buf[1] = ProtocolVer
	buf[2] = MsgTypeRSM
	binary.BigEndian.PutUint32(buf[3:7], deviceID)
	binary.BigEndian.PutUint64(buf[7:15], timestampMs)

	pos := headerSize + 1 // leave room for the count byte, patched below
	written := 0

	for _, t := range snapshot {
		if written >= 255 {
			break
		}
		if pos+participantSize > len(buf) {
			break
		}
		encodeParticipant(buf[pos:pos+participantSize], t)
		pos += participantSize
		written++
	}

	buf[headerSize] = byte(written)
	return pos, nil
}

func encodeParticipant(b []byte, t fusion.OutputTrack) {
	binary.BigEndian.PutUint16(b[0:2], uint16(t.GlobalID))
	b[2] = byte(t.Type)

	lat := clampI32(t.Latitude * 1e7)
	lon := clampI32(t.Longitude * 1e7)
	binary.BigEndian.PutUint32(b[3:7], uint32(lat))
	binary.BigEndian.PutUint32(b[7:11], uint32(lon))

	speed := saturateU16(t.Velocity / 0.02)
	binary.BigEndian.PutUint16(b[11:13], speed)

	heading := math.Mod(t.HeadingDeg, 360)
	if heading < 0 {
		heading += 360
	}
	headingUnits := saturateU16(heading / 0.0125)
	binary.BigEndian.PutUint16(b[13:15], headingUnits)

	conf := t.Confidence * 200.0
	if conf < 0 {
		conf = 0
	}
	if conf > 200 {
		conf = 200
	}
	b[15] = byte(math.Round(conf))
}

func clampI32(v float64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(math.Round(v))
}

func saturateU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(math.Round(v))
}
