package v2x

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mec-fusion-go/internal/fusion"
	"mec-fusion-go/internal/mecerr"
	"mec-fusion-go/internal/trackbuf"
)

// decodedHeader and decodedParticipant are the reference decode used only by tests, per the
// spec's note that no decoder is required by the production system.
type decodedHeader struct {
	magic       byte
	version     byte
	msgType     byte
	deviceID    uint32
	timestampMs uint64
	count       int
}

type decodedParticipant struct {
	targetID   uint16
	typ        byte
	lat        float64
	lon        float64
	speed      float64
	headingDeg float64
	confidence float64
}

func decode(buf []byte) (decodedHeader, []decodedParticipant) {
	h := decodedHeader{
		magic:       buf[0],
		version:     buf[1],
		msgType:     buf[2],
		deviceID:    binary.BigEndian.Uint32(buf[3:7]),
		timestampMs: binary.BigEndian.Uint64(buf[7:15]),
		count:       int(buf[headerSize]),
	}
	pos := headerSize + 1
	parts := make([]decodedParticipant, 0, h.count)
	for i := 0; i < h.count; i++ {
		b := buf[pos : pos+participantSize]
		lat := int32(binary.BigEndian.Uint32(b[3:7]))
		lon := int32(binary.BigEndian.Uint32(b[7:11]))
		speed := binary.BigEndian.Uint16(b[11:13])
		heading := binary.BigEndian.Uint16(b[13:15])
		parts = append(parts, decodedParticipant{
			targetID:   binary.BigEndian.Uint16(b[0:2]),
			typ:        b[2],
			lat:        float64(lat) / 1e7,
			lon:        float64(lon) / 1e7,
			speed:      float64(speed) * 0.02,
			headingDeg: float64(heading) * 0.0125,
			confidence: float64(b[15]) / 200.0,
		})
		pos += participantSize
	}
	return h, parts
}

func TestEncodeRoundTrip(t *testing.T) {
	snap := []fusion.OutputTrack{
		{GlobalID: 7, Type: trackbuf.TargetVehicle, Latitude: 40.123456, Longitude: 116.654321, Velocity: 12.34, HeadingDeg: 95.5, Confidence: 0.77},
	}
	buf := make([]byte, 256)
	n, err := Encode(snap, 42, 1_700_000_000_000, buf)
	require.NoError(t, err)

	h, parts := decode(buf[:n])
	assert.Equal(t, Magic, h.magic)
	assert.Equal(t, ProtocolVer, h.version)
	assert.Equal(t, MsgTypeRSM, h.msgType)
	assert.Equal(t, uint32(42), h.deviceID)
	assert.Equal(t, uint64(1_700_000_000_000), h.timestampMs)
	require.Len(t, parts, 1)

	p := parts[0]
	assert.Equal(t, uint16(7), p.targetID)
	assert.Equal(t, byte(trackbuf.TargetVehicle), p.typ)
	assert.InDelta(t, 40.123456, p.lat, 1e-7)
	assert.InDelta(t, 116.654321, p.lon, 1e-7)
	assert.InDelta(t, 12.34, p.speed, 0.02)
	assert.InDelta(t, 95.5, p.headingDeg, 0.0125)
	assert.InDelta(t, 0.77, p.confidence, 1.0/200.0)
}

func TestEncodeTruncatesToFitAndFixesCount(t *testing.T) {
	snap := make([]fusion.OutputTrack, 300)
	for i := range snap {
		snap[i] = fusion.OutputTrack{GlobalID: uint64(i + 1), Confidence: 0.5}
	}
	buf := make([]byte, 512)
	n, err := Encode(snap, 1, 0, buf)
	require.NoError(t, err)

	maxParticipants := (len(buf) - (headerSize + 1)) / participantSize
	h, parts := decode(buf[:n])
	assert.Equal(t, maxParticipants, h.count)
	assert.Len(t, parts, maxParticipants)
	assert.LessOrEqual(t, n, len(buf))
}

func TestEncodeBufferTooSmall(t *testing.T) {
	buf := make([]byte, 4)
	_, err := Encode(nil, 1, 0, buf)
	assert.ErrorIs(t, err, mecerr.ErrBufferTooSmall)
}

func TestEncodeEmptySnapshotHasZeroCount(t *testing.T) {
	buf := make([]byte, 64)
	n, err := Encode(nil, 1, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, headerSize+1, n)
	assert.Equal(t, byte(0), buf[headerSize])
}

func TestConfidenceClampedToUnitRange(t *testing.T) {
	snap := []fusion.OutputTrack{{Confidence: 5.0}, {GlobalID: 1, Confidence: -1}}
	buf := make([]byte, 256)
	n, err := Encode(snap, 1, 0, buf)
	require.NoError(t, err)
	_, parts := decode(buf[:n])
	require.Len(t, parts, 2)
	assert.Equal(t, 1.0, parts[0].confidence)
	assert.Equal(t, 0.0, parts[1].confidence)
}

func TestHeadingWrapsToPositiveRange(t *testing.T) {
	snap := []fusion.OutputTrack{{HeadingDeg: -90}}
	buf := make([]byte, 64)
	n, err := Encode(snap, 1, 0, buf)
	require.NoError(t, err)
	_, parts := decode(buf[:n])
	require.Len(t, parts, 1)
	assert.InDelta(t, 270.0, parts[0].headingDeg, 0.0125)
}

func TestTimestampIsBigEndian(t *testing.T) {
	buf := make([]byte, 64)
	_, err := Encode(nil, 1, 0x0102030405060708, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, buf[7:15])
}
