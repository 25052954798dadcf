package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// checkpoint holds the parts of a Population that are saved. The config is
// reloaded from its INI file instead.
type checkpoint struct {
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Generation   int
	BestGenome   *Genome
}

func init() {
	gob.Register(map[int]*Genome{})
	gob.Register(map[ConnectionKey]*ConnectionGene{})
	gob.Register(map[int]*NodeGene{})
	gob.Register(map[int]*Species{})
}

// SaveCheckpoint writes the population state to filePath as gzipped gob.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	data := checkpoint{
		Population:   p.Population,
		SpeciesSet:   p.SpeciesSet,
		Reproduction: p.Reproduction,
		Generation:   p.Generation,
		BestGenome:   p.BestGenome,
	}
	if err := gob.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}

	p.Logger.Info().Str("path", filePath).Int("generation", p.Generation).Msg("Checkpoint saved")
	return nil
}

// LoadCheckpoint restores a population saved by SaveCheckpoint. config must
// be the configuration the checkpoint was produced with.
func LoadCheckpoint(checkpointPath string, config *Config, log zerolog.Logger) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gz.Close()

	var data checkpoint
	if err := gob.NewDecoder(gz).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}
	if data.Population == nil || data.SpeciesSet == nil || data.Reproduction == nil {
		return nil, fmt.Errorf("checkpoint '%s' is incomplete", checkpointPath)
	}

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to re-initialize stagnation from loaded config: %w", err)
	}

	gc := &config.Genome
	maxNode := gc.NumOutputs - 1
	relink := func(g *Genome) {
		g.Config = gc
		if g.Nodes == nil {
			g.Nodes = make(map[int]*NodeGene)
		}
		if g.Connections == nil {
			g.Connections = make(map[ConnectionKey]*ConnectionGene)
		}
		for k := range g.Nodes {
			maxNode = max(maxNode, k)
		}
	}
	for _, g := range data.Population {
		relink(g)
	}
	if data.BestGenome != nil {
		relink(data.BestGenome)
	}

	// Gob does not preserve pointer identity, so species members are
	// pointed back at the population's genomes. Empty maps decode as nil.
	ss := data.SpeciesSet
	ss.Config = &config.SpeciesSet
	ss.log = log
	for _, sp := range ss.Species {
		if sp.Representative != nil {
			relink(sp.Representative)
		}
		members := make(map[int]*Genome, len(sp.Members))
		for gid, g := range sp.Members {
			if pg, ok := data.Population[gid]; ok {
				members[gid] = pg
			} else {
				relink(g)
				members[gid] = g
			}
		}
		sp.Members = members
	}
	gc.NodeKeyIndex = max(gc.NodeKeyIndex, maxNode+1)

	r := data.Reproduction
	r.Config = &config.Reproduction
	r.stagnation = stagnation
	r.log = log
	if r.Ancestors == nil {
		r.Ancestors = make(map[int][]int)
	}

	p := &Population{
		Config:       config,
		Population:   data.Population,
		SpeciesSet:   ss,
		Reproduction: r,
		Stagnation:   stagnation,
		Generation:   data.Generation,
		BestGenome:   data.BestGenome,
		Logger:       log,
	}
	log.Info().Str("path", checkpointPath).Int("generation", p.Generation).Msg("Checkpoint loaded")
	return p, nil
}
