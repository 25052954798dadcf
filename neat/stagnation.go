package neat

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Stagnation manages the detection of stagnant species.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64
}

// NewStagnation creates a new stagnation manager.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[strings.ToLower(config.SpeciesFitnessFunc)]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{Config: config, SpeciesFitnessFunc: fn}, nil
}

// StagnationInfo holds the results of the stagnation update for a single species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update recomputes every species' fitness and flags the stagnant ones,
// least fit first. The species_elitism fittest species are always spared,
// and no species is flagged once only species_elitism remain unflagged.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) []StagnationInfo {
	all := make([]*Species, 0, len(speciesSet.Species))
	for _, sid := range sortedKeys(speciesSet.Species) {
		sp := speciesSet.Species[sid]
		previousBest := MaxFloat(sp.FitnessHistory)

		if f := sp.GetFitnesses(); len(f) > 0 {
			sp.Fitness = s.SpeciesFitnessFunc(f)
		} else {
			sp.Fitness = math.Inf(-1)
		}
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		sp.AdjustedFitness = 0
		if sp.Fitness > previousBest {
			sp.LastImproved = generation
		}
		all = append(all, sp)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Fitness < all[j].Fitness })

	result := make([]StagnationInfo, len(all))
	nonStagnant := len(all)
	for i, sp := range all {
		stagnant := false
		if nonStagnant > s.Config.SpeciesElitism {
			stagnant = generation-sp.LastImproved >= s.Config.MaxStagnation
		}
		if len(all)-i <= s.Config.SpeciesElitism {
			stagnant = false
		}
		if stagnant {
			nonStagnant--
		}
		result[i] = StagnationInfo{SpeciesID: sp.Key, Species: sp, IsStagnant: stagnant}
	}
	return result
}
