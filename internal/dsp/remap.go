// Package dsp holds the scalar filters and range helpers used by the mapping
// pipeline.
package dsp

// RemapToUnit maps v from [min, max] to [0, 1]. Values at or beyond a bound
// clamp to it, so min == max never divides.
func RemapToUnit(v, min, max float32) float32 {
	if v >= max {
		return 1
	} else if v <= min {
		return 0
	}
	return (v - min) / (max - min)
}

// RemapFromUnit maps v from [0, 1] to [min, max], clamping outside the unit range.
func RemapFromUnit(v, min, max float32) float32 {
	if v >= 1 {
		return max
	} else if v <= 0 {
		return min
	}
	return min + v*(max-min)
}

// RemapToBounds maps v from [inMin, inMax] to [outMin, outMax].
func RemapToBounds(v, inMin, inMax, outMin, outMax float32) float32 {
	if v >= inMax {
		return outMax
	} else if v <= inMin {
		return outMin
	}
	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin)
}

// Clip clamps v to [min, max].
func Clip(v, min, max float32) float32 {
	if v >= max {
		return max
	} else if v <= min {
		return min
	}
	return v
}
