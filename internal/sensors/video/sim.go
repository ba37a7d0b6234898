package video

import (
	"math"
	"time"

	"mec-fusion-go/internal/trackbuf"
)

// Simulator generates a synthetic vehicle moving east past the RSU,
// standing in for a real RTSP+detector pipeline in -sim mode.
type Simulator struct {
	originLat, originLon float64
	speed                float64 // m/s
	headingDeg           float64
	start                time.Time
}

// NewSimulator builds a Simulator whose object is at (lat, lon) when
// NewSimulator is called and moves at speed m/s along headingDeg.
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
		Confidence:  0.9,
		TimestampUs: time.Now().UnixMicro(),
		SensorID:    SensorID,
	})
	return buf, nil
}
