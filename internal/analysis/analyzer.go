// Package analysis turns raw audio frames into the scalar features the
// visualizer drivers read.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	SampleRate = 44100
	BufferSize = 1024
)

// Analyzer computes Features for successive frames of a mono signal. It keeps
// the previous spectrum for spectral difference, so one Analyzer serves one
// stream.
type Analyzer struct {
	sampleRate int
	size       int
	window     []float64
	input      []float64
	prev       []float32
}

// NewAnalyzer creates an analyzer for frames of size samples.
func NewAnalyzer(sampleRate, size int) *Analyzer {
	if size < 4 {
		size = BufferSize
	}
	return &Analyzer{
		sampleRate: sampleRate,
		size:       size,
		window:     window.Hann(size),
		input:      make([]float64, size),
		prev:       make([]float32, size/2),
	}
}

// Analyze windows the frame, runs the FFT and derives every feature. Short
// frames are zero-padded; long frames use their most recent samples.
func (a *Analyzer) Analyze(buf []float32) *Features {
	if len(buf) > a.size {
		buf = buf[len(buf)-a.size:]
	}

	f := &Features{
		SampleRate: a.sampleRate,
		Spectrum:   make([]float32, a.size/2),
	}

	var sumSq float64
	for i := 0; i < a.size; i++ {
		var s float64
		if i < len(buf) {
			s = float64(buf[i])
		}
		sumSq += s * s
		if abs := float32(math.Abs(s)); abs > f.PeakEnergy {
			f.PeakEnergy = abs
		}
		a.input[i] = s * a.window[i]
	}
	f.RMS = float32(math.Sqrt(sumSq / float64(a.size)))

	coeffs := fft.FFTReal(a.input)
	for i := range f.Spectrum {
		f.Spectrum[i] = float32(cmplx.Abs(coeffs[i]))
	}

	f.SpectralDifference = spectralDifference(f.Spectrum, a.prev)
	f.SpectralCrest = spectralCrest(f.Spectrum)
	f.Pitch = dominantFrequency(f.Spectrum, a.sampleRate)
	copy(a.prev, f.Spectrum)
	return f
}

// spectralDifference sums the absolute bin-by-bin change from the previous
// frame.
func spectralDifference(cur, prev []float32) float32 {
	var sum float32
	for i := range cur {
		d := cur[i] - prev[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

// spectralCrest is the peak-to-mean magnitude ratio; a silent frame reads 1.
func spectralCrest(spec []float32) float32 {
	var sum, max float32
	for _, v := range spec {
		sum += v
		if v > max {
			max = v
		}
	}
	if sum == 0 {
		return 1
	}
	return max / (sum / float32(len(spec)))
}

// dominantFrequency returns the frequency of the strongest non-DC bin refined
// by parabolic interpolation.
func dominantFrequency(spec []float32, sampleRate int) float32 {
	if len(spec) < 3 {
		return 0
	}
	peak := 1
	for i := 2; i < len(spec); i++ {
		if spec[i] > spec[peak] {
			peak = i
		}
	}
	if spec[peak] == 0 {
		return 0
	}

	pos := float64(peak)
	if peak+1 < len(spec) {
		l, c, r := float64(spec[peak-1]), float64(spec[peak]), float64(spec[peak+1])
		if denom := l - 2*c + r; denom != 0 {
			pos += 0.5 * (l - r) / denom
		}
	}
	binHz := float64(sampleRate) / float64(2*len(spec))
	return float32(pos * binHz)
}
