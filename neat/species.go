package neat

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int
	Created         int
	LastImproved    int
	Representative  *Genome
	Members         map[int]*Genome
	Fitness         float64
	AdjustedFitness float64
	FitnessHistory  []float64
}

// NewSpecies creates an empty species first seen in generation.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:          key,
		Created:      generation,
		LastImproved: generation,
		Members:      make(map[int]*Genome),
	}
}

// Update replaces the representative and the member set.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the fitness of every member.
func (s *Species) GetFitnesses() []float64 {
	out := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		out = append(out, g.Fitness)
	}
	return out
}

// distanceCache memoises genome distances for one speciation pass.
type distanceCache struct {
	distances map[[2]int]float64
}

func newDistanceCache() *distanceCache {
	return &distanceCache{distances: make(map[[2]int]float64)}
}

func (dc *distanceCache) distance(a, b *Genome) float64 {
	key := [2]int{a.Key, b.Key}
	if key[0] > key[1] {
		key[0], key[1] = key[1], key[0]
	}
	if d, ok := dc.distances[key]; ok {
		return d
	}
	d := a.Distance(b)
	dc.distances[key] = d
	return d
}

func (dc *distanceCache) values() []float64 {
	out := make([]float64, 0, len(dc.distances))
	for _, d := range dc.distances {
		out = append(out, d)
	}
	return out
}

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species         map[int]*Species
	GenomeToSpecies map[int]int
	Indexer         int
	Config          *SpeciesSetConfig

	log zerolog.Logger
}

// NewSpeciesSet creates an empty species set. Species keys start at 1.
func NewSpeciesSet(config *SpeciesSetConfig, log zerolog.Logger) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		Config:          config,
		log:             log,
	}
}

// Speciate partitions population by compatibility distance. Each existing
// species first claims the unassigned genome closest to its old
// representative, then the rest join the nearest species within the
// threshold or found new ones.
func (ss *SpeciesSet) Speciate(population map[int]*Genome, generation int) {
	ss.GenomeToSpecies = make(map[int]int)
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		return
	}

	cache := newDistanceCache()
	unspeciated := make(map[int]*Genome, len(population))
	for k, g := range population {
		unspeciated[k] = g
	}

	reps := make(map[int]*Genome)
	members := make(map[int][]int)

	for _, sid := range sortedKeys(ss.Species) {
		s := ss.Species[sid]
		if s.Representative == nil || len(unspeciated) == 0 {
			continue
		}
		var closest *Genome
		best := math.Inf(1)
		for _, gid := range sortedKeys(unspeciated) {
			g := unspeciated[gid]
			if d := cache.distance(s.Representative, g); d < best {
				best, closest = d, g
			}
		}
		reps[sid] = closest
		members[sid] = []int{closest.Key}
		delete(unspeciated, closest.Key)
	}

	for _, gid := range sortedKeys(unspeciated) {
		g := unspeciated[gid]
		target := -1
		best := math.Inf(1)
		for _, sid := range sortedKeys(reps) {
			d := cache.distance(reps[sid], g)
			if d < ss.Config.CompatibilityThreshold && d < best {
				best, target = d, sid
			}
		}
		if target == -1 {
			target = ss.Indexer
			ss.Indexer++
			reps[target] = g
		}
		members[target] = append(members[target], gid)
	}

	next := make(map[int]*Species, len(reps))
	for sid, rep := range reps {
		s := ss.Species[sid]
		if s == nil {
			s = NewSpecies(sid, generation)
			ss.log.Debug().Int("species", sid).Int("representative", rep.Key).Msg("New species")
		}
		m := make(map[int]*Genome, len(members[sid]))
		for _, gid := range members[sid] {
			m[gid] = population[gid]
			ss.GenomeToSpecies[gid] = sid
		}
		s.Update(rep, m)
		next[sid] = s
	}
	for sid := range ss.Species {
		if _, ok := next[sid]; !ok {
			ss.log.Debug().Int("species", sid).Msg("Species died out")
		}
	}
	ss.Species = next

	if d := cache.values(); len(d) > 0 {
		ss.log.Debug().
			Float64("mean", Mean(d)).
			Float64("stdev", Stdev(d)).
			Msg("Genetic distance")
	}
}

// GetSpeciesID returns the species ID for a given genome ID.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, ok := ss.GenomeToSpecies[genomeID]
	return sid, ok
}

// GetSpecies returns the species a genome belongs to.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, ok := ss.GenomeToSpecies[genomeID]
	if !ok {
		return nil, false
	}
	s, ok := ss.Species[sid]
	return s, ok
}

// Sizes maps species key to member count.
func (ss *SpeciesSet) Sizes() map[int]int {
	out := make(map[int]int, len(ss.Species))
	for sid, s := range ss.Species {
		out[sid] = len(s.Members)
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
