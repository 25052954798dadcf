// Package driver connects NEAT genomes to the racetrack simulation.
package driver

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Fouad1806/self-driving-car/neat"
	"github.com/Fouad1806/self-driving-car/neat/nn"
	"github.com/Fouad1806/self-driving-car/sim"
)

// GenomeController steers a vehicle with the feed-forward network of a
// genome and credits rewards to the genome's fitness.
type GenomeController struct {
	genome *neat.Genome
	net    *nn.FeedForwardNetwork
}

// NewGenomeController builds the network for g.
func NewGenomeController(g *neat.Genome) (*GenomeController, error) {
	net, err := nn.CreateFeedForwardNetwork(g)
	if err != nil {
		return nil, fmt.Errorf("building network for genome %d: %w", g.Key, err)
	}
	return &GenomeController{genome: g, net: net}, nil
}

// Decide activates the network and picks the strongest output.
func (c *GenomeController) Decide(inputs []float64) (sim.Action, error) {
	out, err := c.net.Activate(inputs)
	if err != nil {
		return 0, err
	}
	return sim.ArgMax(out)
}

// AddFitness credits delta to the genome.
func (c *GenomeController) AddFitness(delta float64) { c.genome.AddFitness(delta) }

// Genome returns the genome behind the controller.
func (c *GenomeController) Genome() *neat.Genome { return c.genome }

// brokenController stands in for a genome whose network cannot be built.
// The runner stops its vehicle on the first tick.
type brokenController struct {
	err error
}

func (b brokenController) Decide([]float64) (sim.Action, error) { return 0, b.err }
func (brokenController) AddFitness(float64)                     {}

// Evaluator runs one episode per generation with a vehicle for every genome.
// Its Evaluate method is a neat.FitnessFunc.
type Evaluator struct {
	runner *sim.Runner
	log    zerolog.Logger

	results map[int]sim.Result
}

// NewEvaluator returns an evaluator that drives runner.
func NewEvaluator(runner *sim.Runner, log zerolog.Logger) *Evaluator {
	return &Evaluator{runner: runner, log: log}
}

var _ neat.FitnessFunc = (*Evaluator)(nil).Evaluate

// Evaluate races every genome once. Genome fitness is the sum of the
// rewards its vehicle earned. When ctx is cancelled mid-episode the
// partial results are kept and ctx's error is returned.
func (e *Evaluator) Evaluate(ctx context.Context, genomes map[int]*neat.Genome) error {
	keys := make([]int, 0, len(genomes))
	for k := range genomes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	controllers := make([]sim.Controller, len(keys))
	for i, k := range keys {
		c, err := NewGenomeController(genomes[k])
		if err != nil {
			e.log.Warn().Err(err).Int("genome", k).Msg("Genome has no usable network")
			controllers[i] = brokenController{err: err}
			continue
		}
		controllers[i] = c
	}

	results, err := e.runner.Run(ctx, controllers)
	e.results = make(map[int]sim.Result, len(results))
	for i, r := range results {
		e.results[keys[i]] = r
	}
	return err
}

// Results returns the last episode's outcome per genome key.
func (e *Evaluator) Results() map[int]sim.Result { return e.results }

// ResultList returns the last episode's results ordered by genome key.
func (e *Evaluator) ResultList() []sim.Result {
	keys := make([]int, 0, len(e.results))
	for k := range e.results {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]sim.Result, len(keys))
	for i, k := range keys {
		out[i] = e.results[k]
	}
	return out
}

// Spawn returns where genome key started in the last episode.
func (e *Evaluator) Spawn(key int) (sim.Vec, bool) {
	r, ok := e.results[key]
	return r.Spawn, ok
}
