// Package sim is the racetrack simulation: a raster track, radar sensing,
// vehicle kinematics, the per-tick reward function and the episode loop
// that steps every vehicle of a generation in lock-step.
//
// The evolutionary algorithm is not part of this package. Each vehicle is
// driven by a Controller that maps seven normalised radar distances to one
// of four actions and accumulates the rewards handed to it.
package sim
