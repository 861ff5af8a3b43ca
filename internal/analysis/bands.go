package analysis

import "math"

// Bands groups the spectrum into n logarithmically spaced bands and returns
// the mean magnitude of each.
func (f *Features) Bands(n int) []float32 {
	out := make([]float32, n)
	maxBin := len(f.Spectrum)
	if maxBin < 2 {
		return out
	}
	for b := 0; b < n; b++ {
		lo := int(math.Pow(float64(maxBin), float64(b)/float64(n)))
		hi := int(math.Pow(float64(maxBin), float64(b+1)/float64(n)))
		if lo < 1 {
			lo = 1
		}
		if hi <= lo {
			hi = lo + 1
		}
		if hi > maxBin {
			hi = maxBin
		}

		var sum float32
		count := 0
		for i := lo; i < hi; i++ {
			sum += f.Spectrum[i]
			count++
		}
		if count > 0 {
			out[b] = sum / float32(count)
		}
	}
	return out
}

// BandSmoother applies exponential decay to successive band snapshots.
type BandSmoother struct {
	decay float32
	bands []float32
}

func NewBandSmoother(decay float32) *BandSmoother {
	return &BandSmoother{decay: decay}
}

// Update blends bands into the running values and returns them normalized to
// the current maximum.
func (s *BandSmoother) Update(bands []float32) []float32 {
	if len(s.bands) != len(bands) {
		s.bands = make([]float32, len(bands))
	}
	maxVal := float32(0.01)
	for i, v := range bands {
		s.bands[i] = s.bands[i]*s.decay + v*(1-s.decay)
		maxVal = max(maxVal, s.bands[i])
	}
	norm := make([]float32, len(s.bands))
	for i, v := range s.bands {
		norm[i] = v / maxVal
	}
	return norm
}
