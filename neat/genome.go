package neat

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// Genome represents an individual organism in the population.
type Genome struct {
	Key         int
	Nodes       map[int]*NodeGene
	Connections map[ConnectionKey]*ConnectionGene
	Fitness     float64
	Config      *GenomeConfig
}

// NewGenome creates an empty genome bound to config.
func NewGenome(key int, config *GenomeConfig) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Config:      config,
	}
}

// AddFitness adds delta to the genome's fitness accumulator.
func (g *Genome) AddFitness(delta float64) { g.Fitness += delta }

// ResetFitness zeroes the accumulator before an evaluation.
func (g *Genome) ResetFitness() { g.Fitness = 0 }

// Clone returns a deep copy sharing only the config pointer.
func (g *Genome) Clone() *Genome {
	c := NewGenome(g.Key, g.Config)
	c.Fitness = g.Fitness
	for k, n := range g.Nodes {
		c.Nodes[k] = n.Copy()
	}
	for k, conn := range g.Connections {
		c.Connections[k] = conn.Copy()
	}
	return c
}

// ConfigureNew creates the output and hidden nodes and the initial
// connections described by initial_connection.
func (g *Genome) ConfigureNew() error {
	for _, key := range g.Config.OutputKeys {
		g.Nodes[key] = NewNodeGene(key, g.Config)
	}
	for i := 0; i < g.Config.NumHidden; i++ {
		key := g.Config.GetNewNodeKey()
		if _, exists := g.Nodes[key]; exists {
			return fmt.Errorf("duplicate node key %d", key)
		}
		g.Nodes[key] = NewNodeGene(key, g.Config)
	}
	return g.connectInitial()
}

// parseInitialConnection splits "partial_direct 0.5" into its mode and
// connection fraction. Non-partial modes always use fraction 1.
func parseInitialConnection(s string) (string, float64, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", 0, fmt.Errorf("initial_connection is empty")
	}
	mode := parts[0]
	switch mode {
	case "unconnected", "fs_neat_nohidden", "fs_neat", "fs_neat_hidden",
		"full_nodirect", "full", "full_direct":
		return mode, 1, nil
	case "partial_nodirect", "partial", "partial_direct":
		if len(parts) < 2 {
			return "", 0, fmt.Errorf("initial_connection '%s' needs a fraction", mode)
		}
		frac, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || frac < 0 || frac > 1 {
			return "", 0, fmt.Errorf("invalid connection fraction '%s'", parts[1])
		}
		return mode, frac, nil
	}
	return "", 0, fmt.Errorf("invalid initial_connection type '%s'", mode)
}

func (g *Genome) hiddenKeys() []int {
	outputs := make(map[int]bool, len(g.Config.OutputKeys))
	for _, k := range g.Config.OutputKeys {
		outputs[k] = true
	}
	var hidden []int
	for k := range g.Nodes {
		if !outputs[k] {
			hidden = append(hidden, k)
		}
	}
	sort.Ints(hidden)
	return hidden
}

func (g *Genome) connectInitial() error {
	mode, fraction, err := parseInitialConnection(g.Config.InitialConnection)
	if err != nil {
		return err
	}

	inputs, outputs, hidden := g.Config.InputKeys, g.Config.OutputKeys, g.hiddenKeys()
	connect := func(from, to []int) {
		for _, i := range from {
			for _, o := range to {
				if fraction < 1 && rand.Float64() >= fraction {
					continue
				}
				key := ConnectionKey{InNodeID: i, OutNodeID: o}
				g.Connections[key] = NewConnectionGene(key, g.Config)
			}
		}
	}

	switch mode {
	case "unconnected":
	case "fs_neat_nohidden", "fs_neat":
		// one random input wired to every output
		connect([]int{inputs[rand.Intn(len(inputs))]}, outputs)
	case "fs_neat_hidden":
		in := []int{inputs[rand.Intn(len(inputs))]}
		connect(in, hidden)
		connect(in, outputs)
	case "full_nodirect", "full", "partial_nodirect", "partial":
		if len(hidden) == 0 {
			connect(inputs, outputs)
			break
		}
		connect(inputs, hidden)
		connect(hidden, outputs)
	case "full_direct", "partial_direct":
		connect(inputs, hidden)
		connect(hidden, outputs)
		connect(inputs, outputs)
	}
	if !g.Config.FeedForward {
		// recurrent genomes also get self and hidden-hidden links
		connect(hidden, hidden)
	}
	return nil
}

// ConfigureCrossover builds g from two parents. Genes present in both are
// mixed, disjoint and excess genes come from the fitter parent.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome) {
	if parent1.Fitness < parent2.Fitness {
		parent1, parent2 = parent2, parent1
	}
	g.Config = parent1.Config

	for key, n1 := range parent1.Nodes {
		if n2, ok := parent2.Nodes[key]; ok {
			g.Nodes[key] = n1.Crossover(n2)
		} else {
			g.Nodes[key] = n1.Copy()
		}
	}
	for key, c1 := range parent1.Connections {
		if c2, ok := parent2.Connections[key]; ok {
			g.Connections[key] = c1.Crossover(c2)
		} else {
			g.Connections[key] = c1.Copy()
		}
	}
}

// Mutate applies structural and then attribute mutations.
func (g *Genome) Mutate() {
	cfg := g.Config
	structural := []struct {
		prob float64
		op   func()
	}{
		{cfg.NodeAddProb, g.mutateAddNode},
		{cfg.NodeDeleteProb, g.mutateDeleteNode},
		{cfg.ConnAddProb, g.mutateAddConnection},
		{cfg.ConnDeleteProb, g.mutateDeleteConnection},
	}

	if cfg.SingleStructuralMutation {
		total := 0.0
		for _, s := range structural {
			total += s.prob
		}
		div := total
		if div < 1 {
			div = 1
		}
		r := rand.Float64()
		acc := 0.0
		for _, s := range structural {
			acc += s.prob / div
			if r < acc {
				s.op()
				break
			}
		}
	} else {
		for _, s := range structural {
			if rand.Float64() < s.prob {
				s.op()
			}
		}
	}

	for _, node := range g.Nodes {
		node.Mutate(cfg)
	}
	for _, conn := range g.Connections {
		conn.Mutate(cfg)
	}
}

func (g *Genome) connectionKeys() []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].InNodeID != keys[j].InNodeID {
			return keys[i].InNodeID < keys[j].InNodeID
		}
		return keys[i].OutNodeID < keys[j].OutNodeID
	})
	return keys
}

// mutateAddNode splits a random connection in two around a new node. The
// incoming half gets weight 1 and the outgoing half keeps the old weight.
func (g *Genome) mutateAddNode() {
	if len(g.Connections) == 0 {
		return
	}
	keys := g.connectionKeys()
	split := g.Connections[keys[rand.Intn(len(keys))]]
	split.Enabled = false

	nodeKey := g.Config.GetNewNodeKey()
	g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)

	in := &ConnectionGene{Key: ConnectionKey{InNodeID: split.Key.InNodeID, OutNodeID: nodeKey}, Weight: 1, Enabled: true}
	out := &ConnectionGene{Key: ConnectionKey{InNodeID: nodeKey, OutNodeID: split.Key.OutNodeID}, Weight: split.Weight, Enabled: true}
	g.Connections[in.Key] = in
	g.Connections[out.Key] = out
}

// mutateDeleteNode removes a random hidden node and every connection
// touching it. Output nodes are never removed.
func (g *Genome) mutateDeleteNode() {
	hidden := g.hiddenKeys()
	if len(hidden) == 0 {
		return
	}
	victim := hidden[rand.Intn(len(hidden))]
	for key := range g.Connections {
		if key.InNodeID == victim || key.OutNodeID == victim {
			delete(g.Connections, key)
		}
	}
	delete(g.Nodes, victim)
}

func (g *Genome) isInput(key int) bool {
	for _, k := range g.Config.InputKeys {
		if k == key {
			return true
		}
	}
	return false
}

// mutateAddConnection tries a bounded number of random node pairs and
// adds the first one that is new and, for feed-forward genomes, acyclic.
func (g *Genome) mutateAddConnection() {
	targets := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		targets = append(targets, k)
	}
	if len(targets) == 0 {
		return
	}
	sort.Ints(targets)
	sources := append(append([]int{}, g.Config.InputKeys...), targets...)

	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		in := sources[rand.Intn(len(sources))]
		out := targets[rand.Intn(len(targets))]
		key := ConnectionKey{InNodeID: in, OutNodeID: out}

		if _, exists := g.Connections[key]; exists {
			continue
		}
		if g.Config.FeedForward && createsCycle(g, in, out) {
			continue
		}
		g.Connections[key] = NewConnectionGene(key, g.Config)
		return
	}
}

func (g *Genome) mutateDeleteConnection() {
	if len(g.Connections) == 0 {
		return
	}
	keys := g.connectionKeys()
	delete(g.Connections, keys[rand.Intn(len(keys))])
}

// Distance is the NEAT compatibility distance: a node term plus a
// connection term. Each term counts disjoint and excess genes together,
// normalised by the larger genome.
func (g *Genome) Distance(other *Genome) float64 {
	return g.nodeDistance(other) + g.connectionDistance(other)
}

func (g *Genome) nodeDistance(other *Genome) float64 {
	if len(g.Nodes) == 0 && len(other.Nodes) == 0 {
		return 0
	}
	disjoint := 0
	diff := 0.0
	for key, n1 := range g.Nodes {
		if n2, ok := other.Nodes[key]; ok {
			diff += n1.Distance(n2, g.Config)
		} else {
			disjoint++
		}
	}
	for key := range other.Nodes {
		if _, ok := g.Nodes[key]; !ok {
			disjoint++
		}
	}
	n := max(len(g.Nodes), len(other.Nodes))
	return (diff + g.Config.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(n)
}

func (g *Genome) connectionDistance(other *Genome) float64 {
	disjoint := 0
	weightDiff := 0.0
	matching := 0

	for key, c1 := range g.Connections {
		if c2, ok := other.Connections[key]; ok {
			weightDiff += c1.Distance(c2, g.Config)
			matching++
		} else {
			disjoint++
		}
	}
	for key := range other.Connections {
		if _, ok := g.Connections[key]; !ok {
			disjoint++
		}
	}

	n := max(len(g.Connections), len(other.Connections), 1)
	d := g.Config.CompatibilityDisjointCoefficient * float64(disjoint) / float64(n)
	if matching > 0 {
		d += weightDiff / float64(matching)
	}
	return d
}

// Size returns the number of nodes and enabled connections.
func (g *Genome) Size() (nodes, enabled int) {
	for _, c := range g.Connections {
		if c.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// createsCycle reports whether adding in->out would close a loop. Disabled
// connections count too, since crossover or mutation may enable them later.
func createsCycle(genome *Genome, in, out int) bool {
	if in == out {
		return true
	}
	visited := map[int]bool{out: true}
	queue := []int{out}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for key := range genome.Connections {
			if key.InNodeID != current {
				continue
			}
			if key.OutNodeID == in {
				return true
			}
			if !visited[key.OutNodeID] {
				visited[key.OutNodeID] = true
				queue = append(queue, key.OutNodeID)
			}
		}
	}
	return false
}
