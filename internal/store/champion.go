// Package store persists champions and per-generation statistics.
package store

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"

	"github.com/Fouad1806/self-driving-car/neat"
	"github.com/Fouad1806/self-driving-car/sim"
)

// ErrNoChampion is returned when a champion file is missing or unreadable.
var ErrNoChampion = errors.New("no usable champion")

// Champion is the best genome of a run together with the spawn point it
// earned its fitness from, so it can be replayed.
type Champion struct {
	Genome     *neat.Genome
	Spawn      sim.Vec
	Fitness    float64
	Generation int
}

// SaveChampion writes c to path as gzipped gob, replacing any previous file.
func SaveChampion(path string, c Champion) error {
	if c.Genome == nil {
		return errors.New("champion has no genome")
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating champion file: %w", err)
	}

	gz := gzip.NewWriter(f)
	if err := gob.NewEncoder(gz).Encode(c); err != nil {
		gz.Close()
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding champion: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing champion: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing champion file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadChampion reads a champion saved by SaveChampion and binds its genome
// to config. Every failure wraps ErrNoChampion.
func LoadChampion(path string, config *neat.GenomeConfig) (Champion, error) {
	f, err := os.Open(path)
	if err != nil {
		return Champion{}, fmt.Errorf("%w: %w", ErrNoChampion, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Champion{}, fmt.Errorf("%w: %s: %w", ErrNoChampion, path, err)
	}
	defer gz.Close()

	var c Champion
	if err := gob.NewDecoder(gz).Decode(&c); err != nil {
		return Champion{}, fmt.Errorf("%w: %s: %w", ErrNoChampion, path, err)
	}
	if c.Genome == nil {
		return Champion{}, fmt.Errorf("%w: %s holds no genome", ErrNoChampion, path)
	}
	c.Genome.Config = config
	if c.Genome.Nodes == nil {
		c.Genome.Nodes = make(map[int]*neat.NodeGene)
	}
	if c.Genome.Connections == nil {
		c.Genome.Connections = make(map[neat.ConnectionKey]*neat.ConnectionGene)
	}
	return c, nil
}
