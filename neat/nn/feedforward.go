package nn

import (
	"fmt"
	"sort"

	"github.com/Fouad1806/self-driving-car/neat"
)

type link struct {
	from   int
	weight float64
}

type neuron struct {
	slot        int
	bias        float64
	response    float64
	activation  neat.ActivationType
	aggregation neat.AggregationType
	links       []link
}

// FeedForwardNetwork is the phenotype of a feed-forward genome. Node values
// live in a flat slice; inputs occupy the first slots.
type FeedForwardNetwork struct {
	InputKeys  []int
	OutputKeys []int

	neurons []neuron
	outputs []int
	values  []float64
	buf     []float64
}

// CreateFeedForwardNetwork builds a network from g. Only enabled
// connections on a path to an output take part.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	if !g.Config.FeedForward {
		return nil, fmt.Errorf("genome %d is not configured as feed-forward", g.Key)
	}

	var conns []neat.ConnectionKey
	weights := make(map[neat.ConnectionKey]float64)
	for key, c := range g.Connections {
		if c.Enabled {
			conns = append(conns, key)
			weights[key] = c.Weight
		}
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].OutNodeID != conns[j].OutNodeID {
			return conns[i].OutNodeID < conns[j].OutNodeID
		}
		return conns[i].InNodeID < conns[j].InNodeID
	})

	order, err := evalOrder(g.Config.InputKeys, g.Config.OutputKeys, conns)
	if err != nil {
		return nil, fmt.Errorf("genome %d: %w", g.Key, err)
	}

	slots := make(map[int]int, len(g.Config.InputKeys)+len(order))
	for i, k := range g.Config.InputKeys {
		slots[k] = i
	}
	for _, k := range order {
		slots[k] = len(slots)
	}
	for _, k := range g.Config.OutputKeys {
		if _, ok := slots[k]; !ok {
			slots[k] = len(slots)
		}
	}

	net := &FeedForwardNetwork{
		InputKeys:  g.Config.InputKeys,
		OutputKeys: g.Config.OutputKeys,
		values:     make([]float64, len(slots)),
	}
	for _, k := range order {
		gene, ok := g.Nodes[k]
		if !ok {
			return nil, fmt.Errorf("genome %d: connection to unknown node %d", g.Key, k)
		}
		act, err := neat.GetActivation(gene.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", k, err)
		}
		agg, err := neat.GetAggregation(gene.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", k, err)
		}
		n := neuron{slot: slots[k], bias: gene.Bias, response: gene.Response, activation: act, aggregation: agg}
		for _, c := range conns {
			if c.OutNodeID != k {
				continue
			}
			if from, ok := slots[c.InNodeID]; ok {
				n.links = append(n.links, link{from: from, weight: weights[c]})
			}
		}
		net.neurons = append(net.neurons, n)
	}
	for _, k := range g.Config.OutputKeys {
		net.outputs = append(net.outputs, slots[k])
	}
	return net, nil
}

// evalOrder returns the non-input nodes needed to compute the outputs, each
// after all of its inputs.
func evalOrder(inputs, outputs []int, conns []neat.ConnectionKey) ([]int, error) {
	required := make(map[int]bool)
	for _, k := range outputs {
		required[k] = true
	}
	isInput := make(map[int]bool, len(inputs))
	for _, k := range inputs {
		isInput[k] = true
	}
	for grew := true; grew; {
		grew = false
		for _, c := range conns {
			if required[c.OutNodeID] && !required[c.InNodeID] && !isInput[c.InNodeID] {
				required[c.InNodeID] = true
				grew = true
			}
		}
	}

	indegree := make(map[int]int)
	for _, c := range conns {
		if required[c.OutNodeID] && required[c.InNodeID] {
			indegree[c.OutNodeID]++
		}
	}
	var ready, order []int
	for k := range required {
		if indegree[k] == 0 {
			ready = append(ready, k)
		}
	}
	for len(ready) > 0 {
		sort.Ints(ready)
		k := ready[0]
		ready = ready[1:]
		order = append(order, k)
		for _, c := range conns {
			if c.InNodeID == k && required[c.OutNodeID] {
				if indegree[c.OutNodeID]--; indegree[c.OutNodeID] == 0 {
					ready = append(ready, c.OutNodeID)
				}
			}
		}
	}
	if len(order) != len(required) {
		return nil, fmt.Errorf("cycle among %d nodes", len(required)-len(order))
	}
	return order, nil
}

// Activate computes the outputs for inputs. The returned slice is fresh;
// a network must not be activated from two goroutines at once.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.InputKeys), len(inputs))
	}
	for i := range net.values {
		net.values[i] = 0
	}
	copy(net.values, inputs)

	for _, n := range net.neurons {
		net.buf = net.buf[:0]
		for _, l := range n.links {
			net.buf = append(net.buf, net.values[l.from]*l.weight)
		}
		net.values[n.slot] = n.activation(n.bias + n.response*n.aggregation(net.buf))
	}

	out := make([]float64, len(net.outputs))
	for i, s := range net.outputs {
		out[i] = net.values[s]
	}
	return out, nil
}
