package analysis

// Features is the analysis of one audio frame.
type Features struct {
	SampleRate int

	RMS                float32
	PeakEnergy         float32
	SpectralDifference float32
	SpectralCrest      float32
	Pitch              float32

	// Spectrum holds unnormalized FFT magnitudes, one per bin below Nyquist.
	Spectrum []float32
}

// AverageMagOfRange averages the bins lo..hi inclusive, blending in falloff
// bins on each side with linearly decreasing weight 1 - i/(falloff+1). The
// result is divided by the total weight used, and neighbors outside the
// spectrum are skipped.
func (f *Features) AverageMagOfRange(lo, hi, falloff int) float32 {
	n := len(f.Spectrum)
	lo = max(lo, 0)
	hi = min(hi, n-1)
	if hi < lo {
		return 0
	}

	var sum float32
	denom := float32(hi - lo + 1)
	for i := lo; i <= hi; i++ {
		sum += f.Spectrum[i]
	}

	if falloff > 0 {
		df := 1 / float32(falloff+1)
		factor := float32(1)
		for i := 1; i <= falloff; i++ {
			factor -= df
			if lo-i >= 0 {
				sum += f.Spectrum[lo-i] * factor
				denom += factor
			}
			if hi+i < n {
				sum += f.Spectrum[hi+i] * factor
				denom += factor
			}
		}
	}
	return sum / denom
}
