package sim

import "math"

// Evaluator turns one tick of vehicle state into a reward and decides
// whether the vehicle keeps running.
type Evaluator struct {
	OffTrackPenalty float64
	LoopPenalty     float64
	StallPenalty    float64
	SpinPenalty     float64

	LoopRepeatLimit int
	ProgressEpsilon float64
	StallTickLimit  int
	MaxRotation     float64
	SpeedDivisor    float64
	RadarDivisor    float64
}

// EvaluatorFrom extracts the reward settings from a Config.
func EvaluatorFrom(c Config) Evaluator {
	return Evaluator{
		OffTrackPenalty: c.OffTrackPenalty,
		LoopPenalty:     c.LoopPenalty,
		StallPenalty:    c.StallPenalty,
		SpinPenalty:     c.SpinPenalty,
		LoopRepeatLimit: c.LoopRepeatLimit,
		ProgressEpsilon: c.ProgressEpsilon,
		StallTickLimit:  c.StallTickLimit,
		MaxRotation:     c.MaxRotation,
		SpeedDivisor:    c.SpeedDivisor,
		RadarDivisor:    c.RadarDivisor,
	}
}

// Evaluate scores the vehicle's current tick. Rules are checked in order
// and the first one that fires kills the vehicle and returns its penalty.
// The caller adds the reward to the fitness accumulator.
func (e Evaluator) Evaluate(v *Vehicle, r Readings, s Surface) float64 {
	if !s.DrivableAt(v.Pos.X, v.Pos.Y) {
		v.Kill(DeathOffTrack)
		return e.OffTrackPenalty
	}

	cell := v.Pos.Round()
	v.history.push(cell)
	if v.history.count(cell) > e.LoopRepeatLimit {
		v.Kill(DeathLoop)
		return e.LoopPenalty
	}

	if math.Abs(v.Fitness-v.LastFitness) < e.ProgressEpsilon {
		v.StallTicks++
	} else {
		v.StallTicks = 0
	}
	v.LastFitness = v.Fitness
	if v.StallTicks > e.StallTickLimit {
		v.Kill(DeathStall)
		return e.StallPenalty
	}

	if v.RotationSum > e.MaxRotation {
		v.Kill(DeathSpin)
		return e.SpinPenalty
	}

	return v.Speed/e.SpeedDivisor + r.RawSum()/e.RadarDivisor
}
