package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Fouad1806/self-driving-car/sim"

// ErrNoControllers is returned when an episode is started without drivers.
var ErrNoControllers = errors.New("no controllers to run")

// Controller drives one vehicle. It is usually a neural network derived
// from a genome; the genome's fitness is reached through AddFitness.
type Controller interface {
	Decide(inputs []float64) (Action, error)
	AddFitness(delta float64)
}

// Observer receives a snapshot after every tick. Implementations must not
// block the simulation for long.
type Observer interface {
	ObserveTick(Snapshot)
}

// VehicleState is the public view of a vehicle inside a Snapshot.
type VehicleState struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed"`
	Alive   bool    `json:"alive"`
	Fitness float64 `json:"fitness"`
}

// Snapshot is the state of an episode at the end of a tick.
type Snapshot struct {
	Tick     int            `json:"tick"`
	Alive    int            `json:"alive"`
	Vehicles []VehicleState `json:"vehicles"`
}

// Result is the outcome of one vehicle's episode.
type Result struct {
	ID       int        `json:"id"`
	Fitness  float64    `json:"fitness"`
	Distance float64    `json:"distance"`
	Ticks    int        `json:"ticks"`
	Spawn    Vec        `json:"spawn"`
	Death    DeathCause `json:"death"`
}

// Best returns the index of the fittest result, or -1 if there are none.
func Best(results []Result) int {
	best := -1
	maxFitness := math.Inf(-1)
	for i, r := range results {
		if r.Fitness > maxFitness {
			maxFitness = r.Fitness
			best = i
		}
	}
	return best
}

// Runner steps a population of vehicles over a shared track in lock-step.
type Runner struct {
	track *Track
	cfg   Config
	kin   Kinematics
	eval  Evaluator

	log      zerolog.Logger
	rng      *rand.Rand
	observer Observer
	meter    metric.Meter

	ticks    metric.Int64Counter
	deaths   metric.Int64Counter
	duration metric.Float64Histogram
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for warnings and episode summaries.
func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithRand sets the random source used for spawn sampling.
func WithRand(rng *rand.Rand) RunnerOption {
	return func(r *Runner) { r.rng = rng }
}

// WithObserver registers a per-tick observer.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// WithMeter overrides the global OTel meter.
func WithMeter(m metric.Meter) RunnerOption {
	return func(r *Runner) { r.meter = m }
}

// NewRunner validates cfg and prepares a runner for track.
func NewRunner(track *Track, cfg Config, opts ...RunnerOption) (*Runner, error) {
	if track == nil {
		return nil, errors.New("track is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		track: track,
		cfg:   cfg,
		kin:   KinematicsFrom(cfg),
		eval:  EvaluatorFrom(cfg),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.meter == nil {
		r.meter = otel.Meter(instrumentationName)
	}

	var err error
	r.ticks, err = r.meter.Int64Counter("sim.ticks",
		metric.WithDescription("Simulation ticks executed"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	r.deaths, err = r.meter.Int64Counter("sim.deaths",
		metric.WithDescription("Vehicles stopped, by cause"))
	if err != nil {
		return nil, fmt.Errorf("creating death counter: %w", err)
	}
	r.duration, err = r.meter.Float64Histogram("sim.episode.duration",
		metric.WithDescription("Wall time of one episode"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating episode duration histogram: %w", err)
	}
	return r, nil
}

// Track returns the track the runner drives on.
func (r *Runner) Track() *Track { return r.track }

// Config returns the simulation settings in use.
func (r *Runner) Config() Config { return r.cfg }

// Spawn samples a uniformly random road pixel. After SpawnAttempts misses
// it falls back to the track centre.
func (r *Runner) Spawn() Vec {
	w, h := r.track.Width(), r.track.Height()
	if w > 0 && h > 0 {
		for i := 0; i < r.cfg.SpawnAttempts; i++ {
			x, y := r.rng.Intn(w), r.rng.Intn(h)
			if r.track.IsDrivable(x, y) {
				return Vec{X: float64(x), Y: float64(y)}
			}
		}
	}
	c := r.track.Center()
	r.log.Warn().
		Int("attempts", r.cfg.SpawnAttempts).
		Float64("x", c.X).Float64("y", c.Y).
		Msg("No drivable spawn found, using track centre")
	return c
}

// Run spawns one vehicle per controller at a random road position and
// steps them until all are dead, MaxTicks is reached or ctx is cancelled.
// On cancellation the partial results are returned with ctx's error.
func (r *Runner) Run(ctx context.Context, controllers []Controller) ([]Result, error) {
	spawns := make([]Vec, len(controllers))
	for i := range spawns {
		spawns[i] = r.Spawn()
	}
	return r.RunFrom(ctx, controllers, spawns)
}

// RunFrom is Run with caller-chosen spawn points, one per controller.
func (r *Runner) RunFrom(ctx context.Context, controllers []Controller, spawns []Vec) ([]Result, error) {
	if len(controllers) == 0 {
		return nil, ErrNoControllers
	}
	if len(spawns) != len(controllers) {
		return nil, fmt.Errorf("got %d spawn points for %d controllers", len(spawns), len(controllers))
	}

	start := time.Now()
	vehicles := make([]*Vehicle, len(controllers))
	for i := range controllers {
		vehicles[i] = NewVehicle(i, spawns[i], r.cfg.SpawnHeading, r.cfg.InitialSpeed)
	}

	var limiter *time.Ticker
	if r.cfg.TickRate > 0 {
		limiter = time.NewTicker(time.Duration(float64(time.Second) / r.cfg.TickRate))
		defer limiter.Stop()
	}

	alive := len(vehicles)
	tick := 0
	var runErr error
	for alive > 0 {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if r.cfg.MaxTicks > 0 && tick >= r.cfg.MaxTicks {
			for _, v := range vehicles {
				if v.Alive {
					v.Kill(DeathTimeout)
					r.recordDeath(ctx, v)
				}
			}
			r.log.Debug().Int("tick", tick).Msg("Episode hit tick cap")
			if r.observer != nil {
				r.observer.ObserveTick(snapshot(tick, 0, vehicles))
			}
			break
		}

		for i, v := range vehicles {
			if !v.Alive {
				continue
			}
			r.stepVehicle(v, controllers[i])
			if !v.Alive {
				alive--
				r.recordDeath(ctx, v)
			}
		}
		tick++
		r.ticks.Add(ctx, 1)

		if r.observer != nil {
			r.observer.ObserveTick(snapshot(tick, alive, vehicles))
		}
		if limiter != nil {
			select {
			case <-ctx.Done():
			case <-limiter.C:
			}
		}
	}

	elapsed := time.Since(start)
	r.duration.Record(ctx, elapsed.Seconds())

	results := make([]Result, len(vehicles))
	for i, v := range vehicles {
		results[i] = Result{
			ID:       v.ID,
			Fitness:  v.Fitness,
			Distance: v.Distance,
			Ticks:    v.Ticks,
			Spawn:    v.Spawn,
			Death:    v.Death,
		}
	}

	r.log.Debug().
		Int("vehicles", len(vehicles)).
		Int("ticks", tick).
		Dur("elapsed", elapsed).
		Msg("Episode finished")
	return results, runErr
}

// stepVehicle runs sense, decide, move and score for one live vehicle.
func (r *Runner) stepVehicle(v *Vehicle, c Controller) {
	readings := Scan(r.track, v.Pos, v.Heading, r.cfg.MaxRayLength)

	action, err := c.Decide(readings.Normalized())
	if err != nil {
		r.log.Error().Err(err).Int("vehicle", v.ID).Msg("Controller failed, stopping vehicle")
		v.Kill(DeathControllerError)
		return
	}

	Step(v, action, r.kin)

	reward := r.eval.Evaluate(v, readings, r.track)
	v.Fitness += reward
	c.AddFitness(reward)
}

func (r *Runner) recordDeath(ctx context.Context, v *Vehicle) {
	r.deaths.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", string(v.Death))))
}

func snapshot(tick, alive int, vehicles []*Vehicle) Snapshot {
	s := Snapshot{
		Tick:     tick,
		Alive:    alive,
		Vehicles: make([]VehicleState, len(vehicles)),
	}
	for i, v := range vehicles {
		s.Vehicles[i] = VehicleState{
			ID:      v.ID,
			X:       v.Pos.X,
			Y:       v.Pos.Y,
			Heading: v.WrappedHeading(),
			Speed:   v.Speed,
			Alive:   v.Alive,
			Fitness: v.Fitness,
		}
	}
	return s
}
