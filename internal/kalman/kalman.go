// Package kalman implements the fixed-gain, reduced Kalman core used by the
// fusion engine for per-track prediction and update. The filter is a
// deliberate simplification preserved exactly from the original
// fusion_processor.c: the fusion engine's job is association and lifecycle,
// not optimal estimation (see the original's DESIGN NOTES).
//
// State and covariance are backed by gonum's mat.VecDense/mat.Dense, the
// same matrix-storage types the teacher repo uses (via mat.SVD) for its own
// pseudo-inverse computation in fusion/utils.go.
package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// Dim is the state vector dimension: [x, y, vx, vy, ax, ay].
	Dim = 6

	// Gain is the fixed Kalman gain used by Update.
	Gain = 0.3

	// processNoiseRate is the per-second covariance inflation rate applied
	// uniformly to every entry of P during Predict.
	processNoiseRate = 0.1
)

// Measurement is the reduced observation consumed by Update: a detection's
// position, scalar speed, heading and timestamp.
type Measurement struct {
	Longitude   float64
	Latitude    float64
	Velocity    float64 // m/s
	HeadingDeg  float64 // degrees, 0 = East, CCW positive
	TimestampUs int64
}

// Filter holds one track's state vector, covariance and bookkeeping.
type Filter struct {
	X           *mat.VecDense // [x, y, vx, vy, ax, ay]
	P           *mat.Dense    // 6x6
	LastUpdate  int64         // microseconds
	Initialized bool
}

// New returns a zero-valued, uninitialised filter.
func New() *Filter {
	return &Filter{
		X: mat.NewVecDense(Dim, nil),
		P: mat.NewDense(Dim, Dim, nil),
	}
}

// Seed initialises the state from a birth measurement, per the association
// engine's birth rule: position from the measurement, velocity decomposed
// from speed/heading, acceleration zero, and the documented diagonal
// covariance [1, 1, 0.5, 0.5, 0.1, 0.1].
func (f *Filter) Seed(m Measurement) {
	rad := m.HeadingDeg * math.Pi / 180
	f.X.SetVec(0, m.Longitude)
	f.X.SetVec(1, m.Latitude)
	f.X.SetVec(2, m.Velocity*math.Cos(rad))
	f.X.SetVec(3, m.Velocity*math.Sin(rad))
	f.X.SetVec(4, 0)
	f.X.SetVec(5, 0)

	f.P.Zero()
	diag := [Dim]float64{1, 1, 0.5, 0.5, 0.1, 0.1}
	for i, v := range diag {
		f.P.Set(i, i, v)
	}

	f.LastUpdate = m.TimestampUs
	f.Initialized = true
}

// Predict advances the state by dt seconds using constant-acceleration
// kinematics and inflates every covariance entry by processNoiseRate*dt.
// dt == 0 is an exact no-op (property 4 of the testable properties).
func (f *Filter) Predict(dt float64) {
	if dt == 0 {
		return
	}
	x, y, vx, vy, ax, ay := f.X.AtVec(0), f.X.AtVec(1), f.X.AtVec(2), f.X.AtVec(3), f.X.AtVec(4), f.X.AtVec(5)

	x += vx*dt + 0.5*ax*dt*dt
	y += vy*dt + 0.5*ay*dt*dt
	vx += ax * dt
	vy += ay * dt

	f.X.SetVec(0, x)
	f.X.SetVec(1, y)
	f.X.SetVec(2, vx)
	f.X.SetVec(3, vy)
	// ax, ay unchanged.

	inflate := processNoiseRate * dt
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			f.P.Set(i, j, f.P.At(i, j)+inflate)
		}
	}
}

// Update applies the fixed-gain innovation-form correction described by the
// spec: position is pulled toward the measurement by Gain, velocity is
// blended with the measured velocity only if dt > 0, and covariance is
// scaled by (1-Gain).
func (f *Filter) Update(m Measurement) {
	innovX := m.Longitude - f.X.AtVec(0)
	innovY := m.Latitude - f.X.AtVec(1)
	f.X.SetVec(0, f.X.AtVec(0)+Gain*innovX)
	f.X.SetVec(1, f.X.AtVec(1)+Gain*innovY)

	dt := float64(m.TimestampUs-f.LastUpdate) / 1e6
	if dt > 0 {
		rad := m.HeadingDeg * math.Pi / 180
		vxm := m.Velocity * math.Cos(rad)
		vym := m.Velocity * math.Sin(rad)
		f.X.SetVec(2, (1-Gain)*f.X.AtVec(2)+Gain*vxm)
		f.X.SetVec(3, (1-Gain)*f.X.AtVec(3)+Gain*vym)
	}

	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			f.P.Set(i, j, f.P.At(i, j)*(1-Gain))
		}
	}
	f.LastUpdate = m.TimestampUs
}

// Position returns the current (longitude, latitude) estimate.
func (f *Filter) Position() (lon, lat float64) {
	return f.X.AtVec(0), f.X.AtVec(1)
}

// Velocity returns the current (vx, vy) estimate.
func (f *Filter) Velocity() (vx, vy float64) {
	return f.X.AtVec(2), f.X.AtVec(3)
}

// Speed returns the Euclidean norm of the velocity estimate.
func (f *Filter) Speed() float64 {
	vx, vy := f.Velocity()
	return math.Hypot(vx, vy)
}

// HeadingDeg returns atan2(vy, vx) in degrees, range (-180, 180].
func (f *Filter) HeadingDeg() float64 {
	vx, vy := f.Velocity()
	return math.Atan2(vy, vx) * 180 / math.Pi
}

// HasNaN reports whether any state entry is NaN, the trigger for the
// fusion engine to mark a track uninitialised and evict it.
func (f *Filter) HasNaN() bool {
	for i := 0; i < Dim; i++ {
		if math.IsNaN(f.X.AtVec(i)) {
			return true
		}
	}
	return false
}
