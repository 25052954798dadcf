package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenome(t *testing.T, cfg *Config, key int) *Genome {
	t.Helper()
	g := NewGenome(key, &cfg.Genome)
	require.NoError(t, g.ConfigureNew())
	return g
}

func TestConfigureNewFullDirect(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenome(t, cfg, 1)

	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Connections, 6)
	for key, c := range g.Connections {
		assert.Equal(t, key, c.Key)
		assert.Less(t, key.InNodeID, 0)
		assert.True(t, c.Enabled)
		assert.InDelta(t, 0, c.Weight, 5)
	}
}

func TestConfigureNewHidden(t *testing.T) {
	cfg := testConfig(t, "num_hidden", "2", "initial_connection", "full_nodirect")
	g := newTestGenome(t, cfg, 1)

	assert.Len(t, g.Nodes, 4)
	// 3 inputs to 2 hidden, 2 hidden to 2 outputs
	assert.Len(t, g.Connections, 10)
	for key := range g.Connections {
		assert.False(t, key.InNodeID < 0 && key.OutNodeID < 2, "direct input-output link %v", key)
	}
}

func TestConfigureNewUnconnected(t *testing.T) {
	cfg := testConfig(t, "initial_connection", "unconnected")
	g := newTestGenome(t, cfg, 1)
	assert.Empty(t, g.Connections)
}

func TestCrossoverTakesFitterParentGenes(t *testing.T) {
	cfg := testConfig(t)
	p1 := newTestGenome(t, cfg, 1)
	p2 := newTestGenome(t, cfg, 2)
	p1.mutateAddNode()
	p1.Fitness = 10
	p2.Fitness = 1

	child := NewGenome(3, &cfg.Genome)
	child.ConfigureCrossover(p2, p1)

	assert.Equal(t, len(p1.Nodes), len(child.Nodes))
	assert.Equal(t, len(p1.Connections), len(child.Connections))
	for key := range child.Connections {
		assert.Contains(t, p1.Connections, key)
	}
}

func TestMutateAddNodeSplitsConnection(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenome(t, cfg, 1)
	before := len(g.Connections)

	g.mutateAddNode()

	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Connections, before+2)
	disabled := 0
	for _, c := range g.Connections {
		if !c.Enabled {
			disabled++
		}
	}
	assert.Equal(t, 1, disabled)
	assert.Equal(t, 3, cfg.Genome.NodeKeyIndex)
}

func TestMutateDeleteNodeKeepsOutputs(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenome(t, cfg, 1)
	g.mutateDeleteNode()
	assert.Len(t, g.Nodes, 2)

	g.mutateAddNode()
	g.mutateDeleteNode()
	assert.Len(t, g.Nodes, 2)
	for key := range g.Connections {
		assert.Less(t, key.OutNodeID, 2)
		assert.True(t, key.InNodeID < 0 || key.InNodeID < 2)
	}
}

func TestCreatesCycle(t *testing.T) {
	cfg := testConfig(t, "initial_connection", "unconnected")
	g := newTestGenome(t, cfg, 1)
	g.Nodes[5] = NewNodeGene(5, &cfg.Genome)
	add := func(in, out int, enabled bool) {
		k := ConnectionKey{InNodeID: in, OutNodeID: out}
		g.Connections[k] = &ConnectionGene{Key: k, Weight: 1, Enabled: enabled}
	}
	add(-1, 5, true)
	add(5, 0, false)

	assert.True(t, createsCycle(g, 0, 0))
	assert.True(t, createsCycle(g, 0, 5), "disabled links still count")
	assert.False(t, createsCycle(g, -2, 5))
	assert.False(t, createsCycle(g, 5, 1))
}

func TestMutateKeepsFeedForwardAcyclic(t *testing.T) {
	cfg := testConfig(t, "conn_add_prob", "1", "node_add_prob", "0.5")
	g := newTestGenome(t, cfg, 1)
	for i := 0; i < 200; i++ {
		g.Mutate()
	}
	for key := range g.Connections {
		delete(g.Connections, key)
		assert.False(t, createsCycle(g, key.InNodeID, key.OutNodeID), "link %v closes a cycle", key)
		g.Connections[key] = &ConnectionGene{Key: key}
	}
}

func TestDistance(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenome(t, cfg, 1)
	assert.Zero(t, g.Distance(g))

	other := g.Clone()
	other.Key = 2
	for _, c := range other.Connections {
		c.Weight += 1
	}
	// weight coefficient 0.5 times a weight difference of 1
	assert.InDelta(t, 0.5, g.Distance(other), 1e-9)

	empty := NewGenome(3, &cfg.Genome)
	// both nodes and all six connections are disjoint
	assert.InDelta(t, 2.0, g.Distance(empty), 1e-9)
	assert.InDelta(t, g.Distance(empty), empty.Distance(g), 1e-9)
}

func TestDistanceCountsNodeGenes(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenome(t, cfg, 1)

	other := g.Clone()
	other.Key = 2
	for _, n := range other.Nodes {
		n.Bias += 2
	}
	// 0.5 * 2 per node, averaged over two nodes
	assert.InDelta(t, 1.0, g.Distance(other), 1e-9)

	other.Nodes[0].Activation = "relu"
	// node 0 now differs by 0.5 * (2 + 1)
	assert.InDelta(t, 1.25, g.Distance(other), 1e-9)
	assert.InDelta(t, g.Distance(other), other.Distance(g), 1e-9)

	bigger := g.Clone()
	bigger.Key = 3
	bigger.mutateAddNode()
	// one disjoint node out of three, plus the split connection's changes
	assert.Greater(t, g.Distance(bigger), 1.0/3)
}

func TestCloneIsDeep(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGenome(t, cfg, 1)
	g.Fitness = 4
	c := g.Clone()

	for _, conn := range c.Connections {
		conn.Weight = 99
	}
	for _, conn := range g.Connections {
		assert.NotEqual(t, 99.0, conn.Weight)
	}
	assert.Equal(t, 4.0, c.Fitness)
}

func TestFitnessAccumulator(t *testing.T) {
	g := NewGenome(1, &GenomeConfig{})
	g.AddFitness(2.5)
	g.AddFitness(-1)
	assert.Equal(t, 1.5, g.Fitness)
	g.ResetFitness()
	assert.Zero(t, g.Fitness)
}
