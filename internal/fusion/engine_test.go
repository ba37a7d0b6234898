package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mec-fusion-go/internal/trackbuf"
)

func det(id uint32, sensorID int, lat, lon, v, heading, conf float64, tsUs int64) trackbuf.Detection {
	return trackbuf.Detection{
		ID: id, Type: trackbuf.TargetVehicle, Latitude: lat, Longitude: lon,
		Velocity: v, Heading: heading, Confidence: conf, TimestampUs: tsUs, SensorID: sensorID,
	}
}

func bufOf(ds ...trackbuf.Detection) *trackbuf.Buffer {
	b := trackbuf.New(len(ds))
	for _, d := range ds {
		b.Add(d)
	}
	return b
}

// S1: single detection, pop, ingest, periodic cycle at now=T0.
func TestS1SingleDetectionBirth(t *testing.T) {
	e := New(DefaultConfig(), nil)
	t0 := int64(1_000_000)
	e.AddTracks(1, bufOf(det(7, 1, 40.0, 116.0, 10, 0, 0.9, t0)))
	e.RunCycle(t0)

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	tr := snap[0]
	assert.Equal(t, uint64(1), tr.GlobalID)
	assert.InDelta(t, 116.0, tr.Longitude, 1e-9)
	assert.InDelta(t, 40.0, tr.Latitude, 1e-9)
	assert.InDelta(t, 10.0, tr.Velocity, 1e-6)
	assert.InDelta(t, 0.0, tr.HeadingDeg, 1e-6)
	assert.InDelta(t, 0.9, tr.Confidence, 1e-9)
	assert.Equal(t, -1, tr.SensorID)
}

// S2: two detections 100ms apart on sensor 2, same object moving east.
func TestS2SameSensorReassociates(t *testing.T) {
	e := New(DefaultConfig(), nil)
	t0 := int64(0)
	e.AddTracks(2, bufOf(det(1, 2, 40.0, 116.0, 20, 0, 0.9, t0)))

	t1 := t0 + 100_000
	e.AddTracks(2, bufOf(det(1, 2, 40.0, 116.0002, 20, 0, 0.9, t1)))

	assert.Equal(t, 1, e.TrackCount())
	assert.Equal(t, uint32(1<<2), e.tracks[0].SensorMask)

	e.RunCycle(t1)
	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.InDelta(t, 20.0, snap[0].Velocity, 5.0)
}

// S3: video + radar detections of the same object in one cycle merge.
func TestS3DualSensorMerge(t *testing.T) {
	e := New(DefaultConfig(), nil)
	t0 := int64(0)
	e.AddTracks(1, bufOf(det(1, 1, 40.0, 116.0, 10, 0, 0.9, t0)))
	e.AddTracks(2, bufOf(det(2, 2, 40.0, 116.00001, 10, 0, 0.9, t0)))

	assert.Equal(t, 1, e.TrackCount())
	mask := e.tracks[0].SensorMask
	assert.Equal(t, uint32((1<<1)|(1<<2)), mask)
}

// S4: one detection then 51 periodic cycles with no further input evicts it.
func TestS4EvictsAfterMaxAge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTrackAge = 50
	e := New(cfg, nil)
	t0 := int64(0)
	e.AddTracks(1, bufOf(det(1, 1, 40.0, 116.0, 10, 0, 0.9, t0)))

	for i := 1; i <= 51; i++ {
		e.RunCycle(t0)
	}
	assert.Equal(t, 0, e.TrackCount())
}

// Property 10: eviction fires at exactly age == max_track_age + 1.
func TestEvictsAtExactAgePlusOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTrackAge = 3
	e := New(cfg, nil)
	e.AddTracks(1, bufOf(det(1, 1, 0, 0, 0, 0, 0.9, 0)))

	for i := 0; i < 3; i++ {
		e.RunCycle(0)
		assert.Equal(t, 1, e.TrackCount(), "should survive cycle %d", i+1)
	}
	e.RunCycle(0)
	assert.Equal(t, 0, e.TrackCount(), "should be evicted on the 4th cycle")
}

func TestEvictsBelowConfidenceThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.5
	e := New(cfg, nil)
	e.AddTracks(1, bufOf(det(1, 1, 0, 0, 0, 0, 0.1, 0)))
	e.RunCycle(0)
	assert.Equal(t, 0, e.TrackCount())
}

// Property 3: global_id values are strictly increasing and never repeat.
func TestGlobalIDMonotonic(t *testing.T) {
	e := New(DefaultConfig(), nil)
	seen := map[uint64]bool{}
	for i := 0; i < 20; i++ {
		lon := float64(i) * 100 // far enough apart to never associate
		e.AddTracks(1, bufOf(det(uint32(i), 1, 0, lon, 0, 0, 0.9, 0)))
	}
	require.Equal(t, 20, e.TrackCount())
	var last uint64
	for _, tr := range e.tracks {
		assert.False(t, seen[tr.GlobalID], "global_id %d repeated", tr.GlobalID)
		seen[tr.GlobalID] = true
		assert.Greater(t, tr.GlobalID, last)
		last = tr.GlobalID
	}
}

// Property 6: two identical detections in one ingest call associate
// together (the second associates to the track born by the first).
func TestSelfConsistentAssociationWithinOneIngest(t *testing.T) {
	e := New(DefaultConfig(), nil)
	d := det(1, 1, 40.0, 116.0, 10, 0, 0.9, 0)
	e.AddTracks(1, bufOf(d, d))
	assert.Equal(t, 1, e.TrackCount())
}

func TestTrackTableFullDropsBirths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrackCapacity = 2
	e := New(cfg, nil)
	for i := 0; i < 5; i++ {
		lon := float64(i) * 1000
		e.AddTracks(1, bufOf(det(uint32(i), 1, 0, lon, 0, 0, 0.9, 0)))
	}
	assert.Equal(t, 2, e.TrackCount())
}

func TestInvalidDetectionDropped(t *testing.T) {
	e := New(DefaultConfig(), nil)
	nan := 0.0
	nan = nan / nan
	e.AddTracks(1, bufOf(det(1, 1, nan, 0, 0, 0, 0.9, 0)))
	assert.Equal(t, 0, e.TrackCount())
}
