package radar

import (
	"math"
	"time"

	"mec-fusion-go/internal/trackbuf"
)

// Simulator stands in for a serial-backed radar unit in -sim mode,
// observing the same moving object as video.Simulator but as a second
// independent sensor (sensor_id = 2) so S3-style dual-sensor association
// can be exercised end to end.
type Simulator struct {
	originLat, originLon float64
	speed                float64
	headingDeg           float64
	start                time.Time
}

// NewSimulator mirrors video.NewSimulator's signature.
func NewSimulator(lat, lon, speed, headingDeg float64) *Simulator {
	return &Simulator{originLat: lat, originLon: lon, speed: speed, headingDeg: headingDeg, start: time.Now()}
}

func (s *Simulator) Detect() (*trackbuf.Buffer, error) {
	elapsed := time.Since(s.start).Seconds()
	rad := s.headingDeg * math.Pi / 180
	metersPerDegLat := 111320.0
	metersPerDegLon := 111320.0 * math.Cos(s.originLat*math.Pi/180)

	dx := s.speed * elapsed * math.Cos(rad)
	dy := s.speed * elapsed * math.Sin(rad)

	buf := trackbuf.New(1)
	buf.Add(trackbuf.Detection{
		ID:          1,
		Type:        trackbuf.TargetVehicle,
		Latitude:    s.originLat + dy/metersPerDegLat,
		Longitude:   s.originLon + dx/metersPerDegLon,
		Velocity:    s.speed,
		Heading:     s.headingDeg,
		Confidence:  0.85,
		TimestampUs: time.Now().UnixMicro(),
		SensorID:    SensorID,
	})
	return buf, nil
}

func (s *Simulator) Close() error { return nil }
