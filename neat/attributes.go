package neat

import (
	"math"
	"math/rand"
	"strings"
)

// floatAttribute bundles the init/mutation settings of one numeric gene
// attribute (bias, response or weight).
type floatAttribute struct {
	InitMean    float64
	InitStdev   float64
	InitType    string
	ReplaceRate float64
	MutateRate  float64
	MutatePower float64
	Min, Max    float64
}

func (gc *GenomeConfig) biasAttr() floatAttribute {
	return floatAttribute{gc.BiasInitMean, gc.BiasInitStdev, gc.BiasInitType, gc.BiasReplaceRate, gc.BiasMutateRate, gc.BiasMutatePower, gc.BiasMinValue, gc.BiasMaxValue}
}

func (gc *GenomeConfig) responseAttr() floatAttribute {
	return floatAttribute{gc.ResponseInitMean, gc.ResponseInitStdev, gc.ResponseInitType, gc.ResponseReplaceRate, gc.ResponseMutateRate, gc.ResponseMutatePower, gc.ResponseMinValue, gc.ResponseMaxValue}
}

func (gc *GenomeConfig) weightAttr() floatAttribute {
	return floatAttribute{gc.WeightInitMean, gc.WeightInitStdev, gc.WeightInitType, gc.WeightReplaceRate, gc.WeightMutateRate, gc.WeightMutatePower, gc.WeightMinValue, gc.WeightMaxValue}
}

// init draws a fresh value. Uniform init spans two standard deviations
// either side of the mean, clipped to [Min, Max].
func (a floatAttribute) init() float64 {
	if strings.EqualFold(a.InitType, "uniform") {
		lo := math.Max(a.Min, a.InitMean-2*a.InitStdev)
		hi := math.Min(a.Max, a.InitMean+2*a.InitStdev)
		if hi < lo {
			hi = lo
		}
		return clamp(lo+rand.Float64()*(hi-lo), a.Min, a.Max)
	}
	return clamp(rand.NormFloat64()*a.InitStdev+a.InitMean, a.Min, a.Max)
}

// mutate perturbs, replaces or keeps value. A single roll decides which.
func (a floatAttribute) mutate(value float64) float64 {
	r := rand.Float64()
	switch {
	case r < a.MutateRate:
		return clamp(value+rand.NormFloat64()*a.MutatePower, a.Min, a.Max)
	case r < a.MutateRate+a.ReplaceRate:
		return a.init()
	}
	return value
}

// initChoice picks def if it is one of options; "random", "none" or an
// unknown default draw uniformly.
func initChoice(def string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	for _, opt := range options {
		if opt == def {
			return def
		}
	}
	return options[rand.Intn(len(options))]
}

// mutateChoice swaps value for a different option with probability rate.
func mutateChoice(value string, rate float64, options []string) string {
	if rate <= 0 || rand.Float64() >= rate {
		return value
	}
	others := make([]string, 0, len(options))
	for _, opt := range options {
		if opt != value {
			others = append(others, opt)
		}
	}
	if len(others) == 0 {
		return value
	}
	return others[rand.Intn(len(others))]
}
