package neat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fouad1806/self-driving-car/neat"
	"github.com/Fouad1806/self-driving-car/neat/nn"
)

const xorINI = `
[NEAT]
fitness_threshold = 3.9
pop_size          = 60

[DefaultGenome]
num_inputs         = 2
num_outputs        = 1
feed_forward       = True
initial_connection = full_direct
activation_default = sigmoid
activation_options = sigmoid
aggregation_default = sum
aggregation_options = sum
conn_add_prob      = 0.5
conn_delete_prob   = 0.2
node_add_prob      = 0.2
node_delete_prob   = 0.1
bias_init_stdev    = 1.0
bias_max_value     = 30
bias_min_value     = -30
bias_mutate_power  = 0.5
bias_mutate_rate   = 0.7
bias_replace_rate  = 0.1
response_init_mean = 1.0
response_max_value = 30
response_min_value = -30
weight_init_stdev  = 1.0
weight_max_value   = 30
weight_min_value   = -30
weight_mutate_power = 0.5
weight_mutate_rate = 0.8
weight_replace_rate = 0.1
compatibility_disjoint_coefficient = 1.0
compatibility_weight_coefficient   = 0.5

[DefaultSpeciesSet]
compatibility_threshold = 3.0

[DefaultStagnation]
species_fitness_func = max
max_stagnation       = 20
species_elitism      = 2

[DefaultReproduction]
elitism            = 2
survival_threshold = 0.2
`

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorOutputs = []float64{0, 1, 1, 0}
)

func xorFitness(_ context.Context, genomes map[int]*neat.Genome) error {
	for _, g := range genomes {
		net, err := nn.CreateFeedForwardNetwork(g)
		if err != nil {
			return err
		}
		g.Fitness = 4
		for i, in := range xorInputs {
			out, err := net.Activate(in)
			if err != nil {
				return err
			}
			d := out[0] - xorOutputs[i]
			g.Fitness -= d * d
		}
	}
	return nil
}

func TestEvolveXOR(t *testing.T) {
	cfg, err := neat.LoadConfigBytes([]byte(xorINI))
	require.NoError(t, err)
	p, err := neat.NewPopulation(cfg)
	require.NoError(t, err)

	var first float64
	p.AddReporter(neat.ReporterFunc(func(r neat.GenerationReport) {
		if r.Generation == 1 {
			first = r.Best.Fitness
		}
	}))

	best, err := p.Run(context.Background(), xorFitness, 40)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.GreaterOrEqual(t, best.Fitness, first)
	assert.LessOrEqual(t, best.Fitness, 4.0)

	net, err := nn.CreateFeedForwardNetwork(best)
	require.NoError(t, err)
	for _, in := range xorInputs {
		out, err := net.Activate(in)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, out[0], 0.5)
	}
}
