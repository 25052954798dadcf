package driver

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fouad1806/self-driving-car/neat"
	"github.com/Fouad1806/self-driving-car/sim"
)

const racerINI = `
[NEAT]
pop_size          = 6
fitness_threshold = 500

[DefaultGenome]
num_inputs         = 7
num_outputs        = 4
feed_forward       = True
initial_connection = full_direct
activation_default = tanh
activation_options = tanh
aggregation_default = sum
aggregation_options = sum
response_init_mean = 1.0
bias_max_value     = 30
bias_min_value     = -30
response_max_value = 30
response_min_value = -30
weight_init_stdev  = 1.0
weight_max_value   = 5
weight_min_value   = -5

[DefaultSpeciesSet]
compatibility_threshold = 3.0

[DefaultStagnation]
species_fitness_func = max
`

func newRunner(t *testing.T, maxTicks int) *sim.Runner {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.MaxTicks = maxTicks
	track := sim.NewTrackFunc(400, 400, func(x, y int) bool { return x > 20 && x < 380 && y > 20 && y < 380 })
	r, err := sim.NewRunner(track, cfg, sim.WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	return r
}

func newPopulation(t *testing.T) *neat.Population {
	t.Helper()
	cfg, err := neat.LoadConfigBytes([]byte(racerINI))
	require.NoError(t, err)
	p, err := neat.NewPopulation(cfg)
	require.NoError(t, err)
	return p
}

func TestGenomeControllerDecide(t *testing.T) {
	p := newPopulation(t)
	g := p.Population[1]
	for _, c := range g.Connections {
		c.Weight = 0
	}
	for _, n := range g.Nodes {
		n.Bias = 0
	}
	g.Nodes[2].Bias = 1

	c, err := NewGenomeController(g)
	require.NoError(t, err)
	a, err := c.Decide(make([]float64, sim.NumRays))
	require.NoError(t, err)
	assert.Equal(t, sim.TurnLeft, a)

	_, err = c.Decide([]float64{1})
	assert.Error(t, err)

	c.AddFitness(3)
	assert.Equal(t, 3.0, c.Genome().Fitness)
}

func TestEvaluateCreditsEveryGenome(t *testing.T) {
	p := newPopulation(t)
	e := NewEvaluator(newRunner(t, 40), zerolog.Nop())

	require.NoError(t, e.Evaluate(context.Background(), p.Population))

	results := e.Results()
	require.Len(t, results, len(p.Population))
	for k, g := range p.Population {
		r, ok := results[k]
		require.True(t, ok)
		assert.InDelta(t, r.Fitness, g.Fitness, 1e-9)
		assert.NotEqual(t, sim.DeathNone, r.Death)

		spawn, ok := e.Spawn(k)
		require.True(t, ok)
		assert.Equal(t, r.Spawn, spawn)
	}
	assert.Len(t, e.ResultList(), len(p.Population))
}

func TestEvaluateBrokenGenome(t *testing.T) {
	p := newPopulation(t)
	g := p.Population[1]
	a := neat.ConnectionKey{InNodeID: 0, OutNodeID: 1}
	b := neat.ConnectionKey{InNodeID: 1, OutNodeID: 0}
	g.Connections[a] = &neat.ConnectionGene{Key: a, Weight: 1, Enabled: true}
	g.Connections[b] = &neat.ConnectionGene{Key: b, Weight: 1, Enabled: true}

	e := NewEvaluator(newRunner(t, 40), zerolog.Nop())
	require.NoError(t, e.Evaluate(context.Background(), p.Population))

	assert.Equal(t, sim.DeathControllerError, e.Results()[1].Death)
	assert.Zero(t, g.Fitness)
}

func TestEvaluateCancelled(t *testing.T) {
	p := newPopulation(t)
	e := NewEvaluator(newRunner(t, 0), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Evaluate(ctx, p.Population)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPopulationTrainsOnTrack(t *testing.T) {
	p := newPopulation(t)
	e := NewEvaluator(newRunner(t, 30), zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := p.RunGeneration(context.Background(), e.Evaluate)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.Generation)
	require.NotNil(t, p.BestGenome)
}
