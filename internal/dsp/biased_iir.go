package dsp

// BiasedIIR is a single-pole IIR low-pass with separate decay weights for
// rising and falling input. An alpha is the weight kept on the previous output.
type BiasedIIR struct {
	last           float32
	upwardsAlpha   float32
	downwardsAlpha float32
}

// NewBiasedIIR returns a filter starting at zero. Alphas are clamped to [0, 1].
func NewBiasedIIR(upwardsAlpha, downwardsAlpha float32) *BiasedIIR {
	f := &BiasedIIR{}
	f.SetUpwardsAlpha(upwardsAlpha)
	f.SetDownwardsAlpha(downwardsAlpha)
	return f
}

func (f *BiasedIIR) Filter(next float32) float32 {
	prev := f.last
	if next == prev {
		return next
	}
	alpha := f.downwardsAlpha
	if next > prev {
		alpha = f.upwardsAlpha
	}
	out := alpha*prev + (1-alpha)*next
	// rounding may step past the target
	if (next > prev && out > next) || (next < prev && out < next) {
		out = next
	}
	f.last = out
	return out
}

// Reset forces the filter state without blending.
func (f *BiasedIIR) Reset(v float32) { f.last = v }

// Value returns the last output.
func (f *BiasedIIR) Value() float32 { return f.last }

func (f *BiasedIIR) UpwardsAlpha() float32   { return f.upwardsAlpha }
func (f *BiasedIIR) DownwardsAlpha() float32 { return f.downwardsAlpha }

func (f *BiasedIIR) SetUpwardsAlpha(a float32)   { f.upwardsAlpha = Clip(a, 0, 1) }
func (f *BiasedIIR) SetDownwardsAlpha(a float32) { f.downwardsAlpha = Clip(a, 0, 1) }
