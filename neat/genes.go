package neat

import (
	"fmt"
	"math"
	"math/rand"
)

// NodeGene represents a node (neuron) in the neural network genome.
// Input nodes have negative keys and no gene; outputs are 0..n-1.
type NodeGene struct {
	Key         int
	Bias        float64
	Response    float64
	Activation  string
	Aggregation string
}

// NewNodeGene creates a new NodeGene with attributes initialized according to the config.
func NewNodeGene(key int, config *GenomeConfig) *NodeGene {
	return &NodeGene{
		Key:         key,
		Bias:        config.biasAttr().init(),
		Response:    config.responseAttr().init(),
		Activation:  initChoice(config.ActivationDefault, config.ActivationOptions),
		Aggregation: initChoice(config.AggregationDefault, config.AggregationOptions),
	}
}

func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(Key: %d, Bias: %.3f, Response: %.3f, Activation: %s, Aggregation: %s)",
		ng.Key, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate adjusts the attributes of the NodeGene based on mutation rates in the config.
func (ng *NodeGene) Mutate(config *GenomeConfig) {
	ng.Bias = config.biasAttr().mutate(ng.Bias)
	ng.Response = config.responseAttr().mutate(ng.Response)
	ng.Activation = mutateChoice(ng.Activation, config.ActivationMutateRate, config.ActivationOptions)
	ng.Aggregation = mutateChoice(ng.Aggregation, config.AggregationMutateRate, config.AggregationOptions)
}

// Distance is the attribute difference between two homologous nodes.
func (ng *NodeGene) Distance(other *NodeGene, config *GenomeConfig) float64 {
	d := math.Abs(ng.Bias-other.Bias) + math.Abs(ng.Response-other.Response)
	if ng.Activation != other.Activation {
		d++
	}
	if ng.Aggregation != other.Aggregation {
		d++
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover inherits each attribute from either parent with equal odds.
func (ng *NodeGene) Crossover(other *NodeGene) *NodeGene {
	child := ng.Copy()
	if rand.Float64() < 0.5 {
		child.Bias = other.Bias
	}
	if rand.Float64() < 0.5 {
		child.Response = other.Response
	}
	if rand.Float64() < 0.5 {
		child.Activation = other.Activation
	}
	if rand.Float64() < 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// ConnectionKey identifies a connection gene by its endpoints. It doubles
// as the innovation marker.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

// ConnectionGene represents a connection between two nodes in the genome.
type ConnectionGene struct {
	Key     ConnectionKey
	Weight  float64
	Enabled bool
}

// NewConnectionGene creates a new ConnectionGene with attributes initialized according to the config.
func NewConnectionGene(key ConnectionKey, config *GenomeConfig) *ConnectionGene {
	return &ConnectionGene{
		Key:     key,
		Weight:  config.weightAttr().init(),
		Enabled: parseBoolAttribute(config.EnabledDefault),
	}
}

func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(Key: %d->%d, Weight: %.3f, Enabled: %t)",
		cg.Key.InNodeID, cg.Key.OutNodeID, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// Mutate perturbs the weight and may toggle the enabled flag.
func (cg *ConnectionGene) Mutate(config *GenomeConfig) {
	cg.Weight = config.weightAttr().mutate(cg.Weight)

	rate := config.EnabledMutateRate
	if cg.Enabled {
		rate += config.EnabledRateToFalseAdd
	} else {
		rate += config.EnabledRateToTrueAdd
	}
	if rate <= 0 || rand.Float64() >= rate {
		return
	}

	cg.Enabled = rand.Float64() < 0.5
}

// Distance is the attribute difference between two homologous connections.
func (cg *ConnectionGene) Distance(other *ConnectionGene, config *GenomeConfig) float64 {
	d := math.Abs(cg.Weight - other.Weight)
	if cg.Enabled != other.Enabled {
		d++
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover inherits weight and enabled flag from either parent.
func (cg *ConnectionGene) Crossover(other *ConnectionGene) *ConnectionGene {
	child := cg.Copy()
	if rand.Float64() < 0.5 {
		child.Weight = other.Weight
	}
	if rand.Float64() < 0.5 {
		child.Enabled = other.Enabled
	}
	return child
}
