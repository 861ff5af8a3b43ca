package dsp

import "math"

const (
	AlphaMin = 0.995
	AlphaMax = 0.9995

	peakAlpha         = 0.6
	defaultAggression = 0.5
)

// DynamicRange tracks a soft [min, max] envelope of a signal. The max bound
// rises quickly and decays slowly; the min bound mirrors it.
type DynamicRange struct {
	maxFilter BiasedIIR
	minFilter BiasedIIR

	UseMax bool
	UseMin bool

	aggression float32
}

func NewDynamicRange() *DynamicRange {
	d := &DynamicRange{UseMax: true, UseMin: true}
	d.SetAggression(defaultAggression)
	d.ResetRange()
	return d
}

// CalculateRange feeds v to the enabled bound filters and returns the
// current envelope. A disabled bound reads 0 for min and 1 for max.
func (d *DynamicRange) CalculateRange(v float32) (min, max float32) {
	min, max = 0, 1
	if d.UseMax {
		max = d.maxFilter.Filter(v)
	}
	if d.UseMin {
		min = d.minFilter.Filter(v)
	}
	return min, max
}

func (d *DynamicRange) Aggression() float32 { return d.aggression }

// SetAggression sets how fast the envelope follows the signal. Higher values
// track faster.
func (d *DynamicRange) SetAggression(a float32) {
	d.aggression = Clip(a, 0, 1)
	slow := RemapToBounds(float32(math.Sqrt(float64(1-d.aggression))), 0, 1, AlphaMin, AlphaMax)

	d.maxFilter.SetUpwardsAlpha(peakAlpha)
	d.maxFilter.SetDownwardsAlpha(slow)
	d.minFilter.SetUpwardsAlpha(slow)
	d.minFilter.SetDownwardsAlpha(peakAlpha)
}

// ResetRange seeds the envelope at [0, 1].
func (d *DynamicRange) ResetRange() { d.ResetRangeWithInitial(0, 1) }

// ResetRangeWithInitial seeds both bounds without blending.
func (d *DynamicRange) ResetRangeWithInitial(min, max float32) {
	d.minFilter.Reset(min)
	d.maxFilter.Reset(max)
}

// Bounds returns the last envelope without feeding a sample.
func (d *DynamicRange) Bounds() (min, max float32) {
	return d.minFilter.Value(), d.maxFilter.Value()
}
