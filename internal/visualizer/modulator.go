package visualizer

import "math"

// Modulator reshapes a location in [0, 1] before it is looked up in the
// gradient.
type Modulator interface {
	ValueAt(location float64) float64
}

// ModulatorFunc adapts a plain function to Modulator.
type ModulatorFunc func(float64) float64

func (f ModulatorFunc) ValueAt(location float64) float64 { return f(location) }

// LinearModulator passes locations through, clamped to [0, 1].
func LinearModulator() Modulator {
	return ModulatorFunc(func(l float64) float64 {
		return math.Min(math.Max(l, 0), 1)
	})
}

// SineModulator sweeps the gradient forward and back once per unit.
// Locations outside [0, 1] read 0.5.
func SineModulator() Modulator {
	return ModulatorFunc(func(l float64) float64 {
		if l > 1 || l < 0 {
			return 0.5
		}
		return 0.5 + math.Sin(2*math.Pi*l)/2
	})
}

// ConstantModulator always returns c clamped to [0, 1].
func ConstantModulator(c float64) Modulator {
	c = math.Min(math.Max(c, 0), 1)
	return ModulatorFunc(func(float64) float64 { return c })
}

// ModulatorByName resolves the command line names "linear", "sine", "low" and
// "high". Unknown names give the linear modulator.
func ModulatorByName(name string) Modulator {
	switch name {
	case "sine":
		return SineModulator()
	case "low":
		return ConstantModulator(0)
	case "high":
		return ConstantModulator(1)
	}
	return LinearModulator()
}
