package neat

import (
	"fmt"
	"math"
)

// ActivationType is a node activation function.
type ActivationType func(x float64) float64

// ActivationFunctions maps config names to activation functions.
var ActivationFunctions = map[string]ActivationType{
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"gaussian": Gaussian,
	"abs":      math.Abs,
	"sin":      Sine,
	"inv":      Inv,
	"log":      Log,
	"exp":      Exp,
	"hat":      Hat,
	"square":   Square,
	"cube":     Cube,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Sigmoid is the logistic function with neat-python's steepness of 5,
// input clamped to keep exp finite.
func Sigmoid(x float64) float64 {
	x = clamp(5*x, -60, 60)
	return 1 / (1 + math.Exp(-x))
}

// Tanh is tanh(2.5x), input clamped like Sigmoid.
func Tanh(x float64) float64 {
	return math.Tanh(clamp(2.5*x, -60, 60))
}

func ReLU(x float64) float64 { return math.Max(0, x) }

func Identity(x float64) float64 { return x }

func Clamped(x float64) float64 { return clamp(x, -1, 1) }

func Gaussian(x float64) float64 {
	x = clamp(x, -3.4, 3.4)
	return math.Exp(-5 * x * x)
}

func Sine(x float64) float64 { return math.Sin(clamp(5*x, -60, 60)) }

// Inv returns 1/x, or 0 where that is undefined.
func Inv(x float64) float64 {
	if x == 0 {
		return 0
	}
	return 1 / x
}

func Log(x float64) float64 { return math.Log(math.Max(1e-7, x)) }

func Exp(x float64) float64 { return math.Exp(clamp(x, -60, 60)) }

func Hat(x float64) float64 { return math.Max(0, 1-math.Abs(x)) }

func Square(x float64) float64 { return x * x }

func Cube(x float64) float64 { return x * x * x }
