package sim

import "math"

// RayOffsets are the radar directions relative to the vehicle heading, in
// degrees. The order is the order of controller inputs.
var RayOffsets = [NumRays]float64{-135, -90, -45, 0, 45, 90, 135}

// NumRays is the number of radar rays, and therefore of controller inputs.
const NumRays = 7

// Readings is one radar sweep.
type Readings struct {
	Raw    [NumRays]float64 // distance to the first non-road pixel, capped
	MaxLen int
}

// Normalized scales each ray into [0,1] for the controller.
func (r Readings) Normalized() []float64 {
	out := make([]float64, NumRays)
	if r.MaxLen <= 0 {
		return out
	}
	for i, d := range r.Raw {
		out[i] = d / float64(r.MaxLen)
	}
	return out
}

// RawSum adds up the unnormalised ray lengths. The reward uses this, not
// the normalised inputs.
func (r Readings) RawSum() float64 {
	sum := 0.0
	for _, d := range r.Raw {
		sum += d
	}
	return sum
}

// Scan casts every radar ray from pos. Heading and offsets are in degrees
// with screen y pointing down, hence the 360-θ.
func Scan(s Surface, pos Vec, heading float64, maxLen int) Readings {
	r := Readings{MaxLen: maxLen}
	for i, off := range RayOffsets {
		r.Raw[i] = float64(castRay(s, pos, heading+off, maxLen))
	}
	return r
}

func castRay(s Surface, pos Vec, angle float64, maxLen int) int {
	rad := degToRad(360 - angle)
	dx, dy := math.Cos(rad), math.Sin(rad)

	length := 0
	for length < maxLen && s.DrivableAt(pos.X+dx*float64(length), pos.Y+dy*float64(length)) {
		length++
	}
	return length
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
