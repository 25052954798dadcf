package neat

import (
	"fmt"
	"math"
)

// AggregationType combines the weighted inputs of a node.
type AggregationType func(inputs []float64) float64

// AggregationFunctions maps config names to aggregation functions.
var AggregationFunctions = map[string]AggregationType{
	"sum":     Sum,
	"product": product,
	"min":     minOrZero,
	"max":     maxOrZero,
	"mean":    Mean,
	"median":  medianOrZero,
	"maxabs":  maxAbs,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationType, error) {
	if fn, ok := AggregationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

// Nodes with no incoming connections aggregate to zero.

func product(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	p := 1.0
	for _, v := range inputs {
		p *= v
	}
	return p
}

func minOrZero(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return MinFloat(inputs)
}

func maxOrZero(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return MaxFloat(inputs)
}

func medianOrZero(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	return Median(inputs)
}

func maxAbs(inputs []float64) float64 {
	best := 0.0
	for _, v := range inputs {
		if math.Abs(v) > math.Abs(best) {
			best = v
		}
	}
	return best
}
