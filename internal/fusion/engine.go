// Package fusion implements the multi-sensor association engine: gating,
// Kalman-backed track lifecycle, and periodic snapshot production. The
// association and lifecycle formulas are carried over exactly from
// fusion_processor.c so fusion outputs reproduce the original system's.
package fusion

import (
	"math"
	"sync"

	"mec-fusion-go/internal/kalman"
	"mec-fusion-go/internal/mecerr"
	"mec-fusion-go/internal/obslog"
	"mec-fusion-go/internal/trackbuf"
)

// Config holds the association and lifecycle parameters from
// config.FusionConfig. It is duplicated here (rather than importing
// internal/config) so this package has no dependency on configuration
// file format.
type Config struct {
	AssociationThreshold float64
	PositionWeight       float64
	VelocityWeight       float64
	ConfidenceThreshold  float64
	MaxTrackAge          int
	TrackCapacity        int
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		AssociationThreshold: 5.0,
		PositionWeight:       1.0,
		VelocityWeight:       0.1,
		ConfidenceThreshold:  0.3,
		MaxTrackAge:          50,
		TrackCapacity:        100,
	}
}

// Recorder receives fusion-cycle observability events. internal/metrics
// implements this; nil is a valid Engine field (no metrics recorded).
type Recorder interface {
	ObserveCycle(trackCount int, evicted int)
	ObserveIngest(sensorID int, associated bool)
}

// FusedTrack is one internal tracked object.
type FusedTrack struct {
	GlobalID   uint64
	Type       trackbuf.TargetType
	Confidence float64
	Age        int
	SensorMask uint32
	LastUpdate int64 // microseconds
	Filter     *kalman.Filter
}

// OutputTrack is one value-copy record in the periodic snapshot.
type OutputTrack struct {
	GlobalID    uint64              `json:"global_id"`
	Type        trackbuf.TargetType `json:"type"`
	Latitude    float64             `json:"latitude"`
	Longitude   float64             `json:"longitude"`
	Altitude    float64             `json:"altitude"`
	Velocity    float64             `json:"velocity"`
	HeadingDeg  float64             `json:"heading_deg"`
	Confidence  float64             `json:"confidence"`
	SensorID    int                 `json:"sensor_id"` // -1: fused origin
	TimestampUs int64               `json:"timestamp_us"`
}

// Engine holds the fused-track table and the current output snapshot behind
// one mutex, matching the original's single-lock design: the lock is held
// for the whole of an ingestion call and for the whole of a periodic cycle.
type Engine struct {
	mu           sync.Mutex
	cfg          Config
	tracks       []*FusedTrack
	nextGlobalID uint64
	snapshot     []OutputTrack
	rec          Recorder
}

// New creates an engine with the given configuration and optional recorder.
func New(cfg Config, rec Recorder) *Engine {
	return &Engine{
		cfg:          cfg,
		tracks:       make([]*FusedTrack, 0, cfg.TrackCapacity),
		nextGlobalID: 1,
		rec:          rec,
	}
}

// SetConfig atomically replaces the live fusion parameters (SIGHUP reload).
// Track capacity changes only affect future births; it never shrinks the
// existing table.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// TrackCount returns the number of live fused tracks.
func (e *Engine) TrackCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tracks)
}

// Snapshot returns a value copy of the most recent periodic output,
// disconnected from the internal table, safe to read without further
// locking once returned.
func (e *Engine) Snapshot() []OutputTrack {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]OutputTrack, len(e.snapshot))
	copy(out, e.snapshot)
	return out
}

func headingRad(deg float64) float64 { return deg * math.Pi / 180 }

// distance implements the gating metric: ||dp||2 + w_v*||dv||2.
func (e *Engine) distance(f *FusedTrack, d trackbuf.Detection) float64 {
	lon, lat := f.Filter.Position()
	vx, vy := f.Filter.Velocity()

	dx := lon - d.Longitude
	dy := lat - d.Latitude

	rad := headingRad(d.Heading)
	mvx := d.Velocity * math.Cos(rad)
	mvy := d.Velocity * math.Sin(rad)
	dvx := vx - mvx
	dvy := vy - mvy

	dp := math.Hypot(dx, dy)
	dv := math.Hypot(dvx, dvy)
	return e.cfg.PositionWeight*dp + e.cfg.VelocityWeight*dv
}

// AddTracks is the ingestion path: for every detection in tracks, associate
// against the nearest live fused track below the association threshold, or
// birth a new one if the table has room. It must be called with the buffer's
// ownership already transferred to the caller (e.g. just popped from the
// queue); AddTracks does not retain or release tracks itself.
func (e *Engine) AddTracks(sensorID int, tracks *trackbuf.Buffer) {
	if tracks == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := 0; i < tracks.Len(); i++ {
		d := tracks.At(i)
		if invalidDetection(d) {
			obslog.L().Warn("fusion: dropping invalid detection from sensor %d: %v", sensorID, mecerr.ErrInvalidDetection)
			continue
		}
		e.ingestOneLocked(sensorID, d)
	}
}

func invalidDetection(d trackbuf.Detection) bool {
	return math.IsNaN(d.Latitude) || math.IsNaN(d.Longitude) ||
		math.IsNaN(d.Velocity) || math.IsNaN(d.Heading) ||
		math.IsNaN(d.Confidence)
}

func (e *Engine) ingestOneLocked(sensorID int, d trackbuf.Detection) {
	best := -1
	bestDist := e.cfg.AssociationThreshold

	for i, f := range e.tracks {
		dist := e.distance(f, d)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	if best >= 0 {
		f := e.tracks[best]
		f.Filter.Update(kalman.Measurement{
			Longitude:   d.Longitude,
			Latitude:    d.Latitude,
			Velocity:    d.Velocity,
			HeadingDeg:  d.Heading,
			TimestampUs: d.TimestampUs,
		})
		f.SensorMask |= 1 << uint(sensorID)
		f.Confidence = (f.Confidence + d.Confidence) / 2
		f.Age = 0
		f.LastUpdate = d.TimestampUs
		if e.rec != nil {
			e.rec.ObserveIngest(sensorID, true)
		}
		return
	}

	if len(e.tracks) >= e.cfg.TrackCapacity {
		obslog.L().Warn("fusion: %v, dropping detection from sensor %d", mecerr.ErrTrackTableFull, sensorID)
		if e.rec != nil {
			e.rec.ObserveIngest(sensorID, false)
		}
		return
	}

	filt := kalman.New()
	filt.Seed(kalman.Measurement{
		Longitude:   d.Longitude,
		Latitude:    d.Latitude,
		Velocity:    d.Velocity,
		HeadingDeg:  d.Heading,
		TimestampUs: d.TimestampUs,
	})
	nf := &FusedTrack{
		GlobalID:   e.nextGlobalID,
		Type:       d.Type,
		Confidence: d.Confidence,
		Age:        0,
		SensorMask: 1 << uint(sensorID),
		LastUpdate: d.TimestampUs,
		Filter:     filt,
	}
	e.nextGlobalID++
	e.tracks = append(e.tracks, nf)
	if e.rec != nil {
		e.rec.ObserveIngest(sensorID, false)
	}
}

// RunCycle is the periodic path: predict every track forward to nowUs,
// age it, evict if it has aged out or lost confidence (swap-remove,
// re-examining the vacated index), and otherwise emit it into the
// snapshot. The snapshot is cleared and rebuilt under the engine lock.
func (e *Engine) RunCycle(nowUs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.snapshot = e.snapshot[:0]
	evicted := 0

	for i := 0; i < len(e.tracks); i++ {
		f := e.tracks[i]
		dt := float64(nowUs-f.LastUpdate) / 1e6
		if dt < 0 {
			dt = 0
		}
		f.Filter.Predict(dt)
		f.Age++

		if f.Filter.HasNaN() {
			f.Filter.Initialized = false
		}

		if !f.Filter.Initialized || f.Age > e.cfg.MaxTrackAge || f.Confidence < e.cfg.ConfidenceThreshold {
			last := len(e.tracks) - 1
			e.tracks[i] = e.tracks[last]
			e.tracks[last] = nil
			e.tracks = e.tracks[:last]
			evicted++
			i--
			continue
		}

		lon, lat := f.Filter.Position()
		e.snapshot = append(e.snapshot, OutputTrack{
			GlobalID:    f.GlobalID,
			Type:        f.Type,
			Latitude:    lat,
			Longitude:   lon,
			Altitude:    0,
			Velocity:    f.Filter.Speed(),
			HeadingDeg:  f.Filter.HeadingDeg(),
			Confidence:  f.Confidence,
			SensorID:    -1,
			TimestampUs: nowUs,
		})
	}

	if e.rec != nil {
		e.rec.ObserveCycle(len(e.tracks), evicted)
	}
}
