package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"
)

// Reproduction creates new genomes, either from scratch or by crossover and
// mutation of the survivors of each species.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int
	Ancestors     map[int][]int

	stagnation *Stagnation
	log        zerolog.Logger
}

// NewReproduction creates a reproduction manager. Genome keys start at 1.
func NewReproduction(config *ReproductionConfig, stagnation *Stagnation, log zerolog.Logger) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		stagnation:    stagnation,
		log:           log,
	}
}

func (r *Reproduction) nextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNewPopulation creates popSize freshly initialised genomes.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, popSize int) (map[int]*Genome, error) {
	genomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.nextKey()
		g := NewGenome(key, genomeConfig)
		if err := g.ConfigureNew(); err != nil {
			return nil, fmt.Errorf("configure genome %d: %w", key, err)
		}
		genomes[key] = g
		r.Ancestors[key] = nil
	}
	return genomes, nil
}

// Reproduce builds the next generation from the current species. An empty
// result means every species went extinct.
func (r *Reproduction) Reproduce(config *Config, speciesSet *SpeciesSet, popSize, generation int) map[int]*Genome {
	var (
		all       []float64
		remaining []*Species
	)
	for _, info := range r.stagnation.Update(speciesSet, generation) {
		if info.IsStagnant {
			r.log.Info().Int("species", info.SpeciesID).Int("generation", generation).Msg("Species removed for stagnation")
			continue
		}
		f := info.Species.GetFitnesses()
		if len(f) == 0 {
			continue
		}
		all = append(all, f...)
		remaining = append(remaining, info.Species)
	}

	if len(remaining) == 0 {
		speciesSet.Species = make(map[int]*Species)
		return map[int]*Genome{}
	}

	minFitness := MinFloat(all)
	fitnessRange := math.Max(1.0, MaxFloat(all)-minFitness)

	adjusted := make([]float64, len(remaining))
	previous := make([]int, len(remaining))
	for i, sp := range remaining {
		af := (Mean(sp.GetFitnesses()) - minFitness) / fitnessRange
		sp.AdjustedFitness = af
		adjusted[i] = af
		previous[i] = len(sp.Members)
	}
	r.log.Debug().Float64("mean_adjusted", Mean(adjusted)).Msg("Adjusted fitness")

	minSize := max(r.Config.MinSpeciesSize, r.Config.Elitism)
	spawnAmounts := computeSpawnAmounts(adjusted, previous, popSize, minSize)

	next := make(map[int]*Genome, popSize)
	ancestors := make(map[int][]int, popSize)
	for i, sp := range remaining {
		spawn := max(spawnAmounts[i], r.Config.Elitism)

		old := make([]*Genome, 0, len(sp.Members))
		for _, gid := range sortedKeys(sp.Members) {
			old = append(old, sp.Members[gid])
		}
		sort.SliceStable(old, func(a, b int) bool { return old[a].Fitness > old[b].Fitness })

		for j := 0; j < r.Config.Elitism && j < len(old); j++ {
			next[old[j].Key] = old[j]
			ancestors[old[j].Key] = r.Ancestors[old[j].Key]
			spawn--
		}
		if spawn <= 0 {
			continue
		}

		cutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(old))))
		cutoff = min(max(cutoff, 2), len(old))
		parents := old[:cutoff]

		for ; spawn > 0; spawn-- {
			p1 := parents[rand.Intn(len(parents))]
			p2 := parents[rand.Intn(len(parents))]
			key := r.nextKey()
			child := NewGenome(key, &config.Genome)
			child.ConfigureCrossover(p1, p2)
			child.Mutate()
			next[key] = child
			ancestors[key] = []int{p1.Key, p2.Key}
		}
	}
	r.Ancestors = ancestors
	return next
}

// computeSpawnAmounts apportions popSize offspring across species in
// proportion to adjusted fitness, moving each species halfway from its
// previous size toward its share.
func computeSpawnAmounts(adjusted []float64, previous []int, popSize, minSize int) []int {
	total := 0.0
	for _, af := range adjusted {
		total += af
	}

	amounts := make([]int, len(adjusted))
	sum := 0
	for i, af := range adjusted {
		s := float64(minSize)
		if total > 0 {
			s = math.Max(s, af/total*float64(popSize))
		}
		d := (s - float64(previous[i])) * 0.5
		c := int(math.Round(d))
		spawn := previous[i]
		switch {
		case c != 0:
			spawn += c
		case d > 0:
			spawn++
		case d < 0:
			spawn--
		}
		amounts[i] = spawn
		sum += spawn
	}

	norm := float64(popSize) / float64(max(sum, 1))
	for i, n := range amounts {
		amounts[i] = max(minSize, int(math.Round(float64(n)*norm)))
	}
	return amounts
}
