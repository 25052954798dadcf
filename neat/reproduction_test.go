package neat

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSpawnAmounts(t *testing.T) {
	assert.Equal(t, []int{7, 3}, computeSpawnAmounts([]float64{1, 0}, []int{5, 5}, 10, 2))

	amounts := computeSpawnAmounts([]float64{0, 0, 0}, []int{1, 1, 1}, 9, 2)
	for _, n := range amounts {
		assert.GreaterOrEqual(t, n, 2)
	}
}

func TestCreateNewPopulation(t *testing.T) {
	cfg := testConfig(t)
	st, err := NewStagnation(&cfg.Stagnation)
	require.NoError(t, err)
	r := NewReproduction(&cfg.Reproduction, st, zerolog.Nop())

	pop, err := r.CreateNewPopulation(&cfg.Genome, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, sortedKeys(pop))
	assert.Equal(t, 6, r.NextGenomeKey)

	bad := cfg.Genome
	bad.InitialConnection = "bogus"
	_, err = r.CreateNewPopulation(&bad, 1)
	assert.Error(t, err)
}

func TestReproduceKeepsElitesAndSize(t *testing.T) {
	cfg := testConfig(t, "compatibility_threshold", "100")
	st, err := NewStagnation(&cfg.Stagnation)
	require.NoError(t, err)
	r := NewReproduction(&cfg.Reproduction, st, zerolog.Nop())

	pop, err := r.CreateNewPopulation(&cfg.Genome, cfg.Neat.PopSize)
	require.NoError(t, err)
	for k, g := range pop {
		g.Fitness = float64(k)
	}
	ss := NewSpeciesSet(&cfg.SpeciesSet, zerolog.Nop())
	ss.Speciate(pop, 1)
	require.Len(t, ss.Species, 1)

	next := r.Reproduce(cfg, ss, cfg.Neat.PopSize, 1)

	assert.Len(t, next, cfg.Neat.PopSize)
	assert.Same(t, pop[20], next[20])
	assert.Same(t, pop[19], next[19])
	for k, parents := range r.Ancestors {
		if k > 20 {
			require.Len(t, parents, 2)
			// only the top 20% breed
			assert.GreaterOrEqual(t, parents[0], 17)
			assert.GreaterOrEqual(t, parents[1], 17)
		}
	}
}

func TestReproduceAllStagnant(t *testing.T) {
	cfg := testConfig(t, "species_elitism", "0", "max_stagnation", "1")
	st, err := NewStagnation(&cfg.Stagnation)
	require.NoError(t, err)
	r := NewReproduction(&cfg.Reproduction, st, zerolog.Nop())

	ss := stagnantSet(t, cfg, 1, 2)
	next := r.Reproduce(cfg, ss, 10, 5)
	assert.Empty(t, next)
	assert.Empty(t, ss.Species)
}
